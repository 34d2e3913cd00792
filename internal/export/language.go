package export

import (
	"golang.org/x/text/language"
)

// supported lists export languages; the first entry is the fallback.
var supported = []language.Tag{
	language.English,
	language.Chinese,
}

var matcher = language.NewMatcher(supported)

// labels are the human-facing strings of an export.
type labels struct {
	title        string
	question     string
	dimension    string
	value        string
	preference   string
	satisfaction string
	importance   string
	confidence   string
	responseTime string
	text         string
	metadata     string
	createdAt    string
	score        string
	label        string
	strength     string
}

var labelsByLanguage = map[language.Tag]labels{
	language.English: {
		title:        "Assessment answers",
		question:     "question",
		dimension:    "dimension",
		value:        "value",
		preference:   "preference",
		satisfaction: "satisfaction",
		importance:   "importance",
		confidence:   "confidence",
		responseTime: "response_time_ms",
		text:         "text",
		metadata:     "metadata",
		createdAt:    "created_at",
		score:        "score",
		label:        "label",
		strength:     "strength",
	},
	language.Chinese: {
		title:        "测评作答记录",
		question:     "题目",
		dimension:    "维度",
		value:        "分值",
		preference:   "倾向",
		satisfaction: "满意度",
		importance:   "重要性",
		confidence:   "置信度",
		responseTime: "作答时长(毫秒)",
		text:         "文本",
		metadata:     "元数据",
		createdAt:    "创建时间",
		score:        "得分",
		label:        "等级",
		strength:     "强度",
	},
}

// matchLanguage resolves a BCP 47 tag such as "zh-CN" or "en-GB" to one of
// the supported languages. Empty or unparsable input selects English.
func matchLanguage(s string) language.Tag {
	if s == "" {
		return supported[0]
	}
	tags, _, err := language.ParseAcceptLanguage(s)
	if err != nil || len(tags) == 0 {
		return supported[0]
	}
	_, index, _ := matcher.Match(tags...)
	return supported[index]
}

func labelsFor(tag language.Tag) labels {
	if l, ok := labelsByLanguage[tag]; ok {
		return l
	}
	return labelsByLanguage[supported[0]]
}
