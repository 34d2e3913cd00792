package scoring

import (
	"sort"

	"github.com/phrazzld/psyche-api/internal/domain"
)

// Recommendation priorities. Lower values sort first.
const (
	PriorityCritical = 0
	PriorityHigh     = 1
	PriorityMedium   = 2
	PriorityLow      = 3
)

// Fixed recommendations added outside the per-instrument table.
var (
	RecommendationCrisisSupport = domain.Recommendation{
		Code:     "crisis_support",
		Priority: PriorityCritical,
		Message:  "Thoughts of self-harm were reported. Contact a crisis line or emergency services now, and reach out to someone you trust.",
	}
	RecommendationLowReliability = domain.Recommendation{
		Code:     "low_reliability",
		Priority: PriorityHigh,
		Message:  "Answers were incomplete or inconsistent. Consider retaking the assessment before acting on this result.",
	}
	RecommendationInsufficientData = domain.Recommendation{
		Code:     "insufficient_data",
		Priority: PriorityHigh,
		Message:  "Not enough valid answers were provided to produce a result. Complete the assessment and try again.",
	}
)

// recommendationRule matches the result label when Dimension is empty, or
// the label of the named dimension otherwise.
type recommendationRule struct {
	Dimension      string
	Label          string
	Recommendation domain.Recommendation
}

func rec(code string, priority int, message string) domain.Recommendation {
	return domain.Recommendation{Code: code, Priority: priority, Message: message}
}

var recommendationRules = map[domain.Instrument][]recommendationRule{
	domain.InstrumentTypeInventory: {
		{domain.DimensionExtraversionIntroversion, "E", rec("recharge_socially", PriorityLow,
			"You draw energy from others. Plan collaborative work and regular social contact.")},
		{domain.DimensionExtraversionIntroversion, "I", rec("protect_focus_time", PriorityLow,
			"You recharge alone. Protect uninterrupted time for deep work and reflection.")},
		{domain.DimensionSensingIntuition, "S", rec("use_concrete_plans", PriorityLow,
			"You trust concrete detail. Break goals into specific, observable steps.")},
		{domain.DimensionSensingIntuition, "N", rec("connect_big_picture", PriorityLow,
			"You think in patterns. Anchor new ideas with one practical next step.")},
		{domain.DimensionThinkingFeeling, "T", rec("balance_logic_empathy", PriorityLow,
			"You decide by analysis. Check how decisions land with the people involved.")},
		{domain.DimensionThinkingFeeling, "F", rec("name_your_criteria", PriorityLow,
			"You decide by values. Write down the criteria behind hard choices.")},
		{domain.DimensionJudgingPerceiving, "J", rec("leave_room_to_adapt", PriorityLow,
			"You like closure. Build slack into plans for the unexpected.")},
		{domain.DimensionJudgingPerceiving, "P", rec("set_light_deadlines", PriorityLow,
			"You keep options open. Use light checkpoints to finish what you start.")},
	},
	domain.InstrumentClinicalScreening: {
		{"", "none", rec("maintain_wellbeing", PriorityLow,
			"No significant symptoms were reported. Keep up routines that support your mood.")},
		{"", "mild", rec("monitor_symptoms", PriorityMedium,
			"Mild symptoms were reported. Track your mood and rescreen in two weeks.")},
		{"", "mild", rec("self_care_practices", PriorityLow,
			"Regular sleep, physical activity and social contact can ease mild symptoms.")},
		{"", "moderate", rec("consult_professional", PriorityHigh,
			"Moderate symptoms were reported. Consider speaking with a health professional.")},
		{"", "moderate", rec("monitor_symptoms", PriorityMedium,
			"Track your mood and rescreen in two weeks.")},
		{"", "severe", rec("seek_professional_care", PriorityCritical,
			"Severe symptoms were reported. Please contact a health professional promptly.")},
	},
	domain.InstrumentEmotionalCompetency: {
		{"", "high", rec("mentor_others", PriorityLow,
			"Your emotional skills are strong. Consider coaching or mentoring others.")},
		{"", "moderate", rec("targeted_practice", PriorityMedium,
			"Focus practice on your lowest-scoring area to round out your skills.")},
		{"", "low", rec("structured_training", PriorityHigh,
			"A structured emotional skills program can help build a solid foundation.")},
		{domain.DimensionSelfAwareness, "low", rec("develop_self_awareness", PriorityMedium,
			"Keep a short daily journal of emotions and what triggered them.")},
		{domain.DimensionSelfManagement, "low", rec("develop_self_management", PriorityMedium,
			"Practice pausing before reacting, such as a few slow breaths.")},
		{domain.DimensionSocialAwareness, "low", rec("develop_social_awareness", PriorityMedium,
			"In conversations, summarize what the other person feels before responding.")},
		{domain.DimensionRelationshipManagement, "low", rec("develop_relationship_management", PriorityMedium,
			"Ask for feedback on how you handle disagreements and act on one point.")},
	},
	domain.InstrumentWellbeing: {
		{"", "excellent", rec("sustain_habits", PriorityLow,
			"Your wellbeing is excellent. Keep the habits that got you here.")},
		{"", "good", rec("fine_tune_balance", PriorityLow,
			"Your wellbeing is good. Small adjustments in weaker areas can lift it further.")},
		{"", "fair", rec("strengthen_weak_domains", PriorityMedium,
			"Pick one lower-scoring area and set a concrete goal for the next month.")},
		{"", "low", rec("seek_support", PriorityHigh,
			"Your wellbeing is low across several areas. Consider reaching out for support.")},
		{domain.DomainPhysical, "low", rec("improve_physical", PriorityMedium,
			"Start with sleep and a short daily walk.")},
		{domain.DomainEmotional, "low", rec("improve_emotional", PriorityMedium,
			"Set aside time each week for activities that restore you.")},
		{domain.DomainSocial, "low", rec("improve_social", PriorityMedium,
			"Schedule regular contact with one person you feel close to.")},
		{domain.DomainOccupational, "low", rec("improve_occupational", PriorityMedium,
			"Discuss workload or direction with someone you trust at work.")},
		{domain.DomainFinancial, "low", rec("improve_financial", PriorityMedium,
			"Review monthly spending and build a small emergency buffer.")},
	},
}

// recommend applies the rule table to a scored result. Crisis support is
// always added when the risk flag is set, and a low-reliability note when
// reliability falls under the configured threshold. The output is sorted by
// priority then code, with duplicate codes removed.
func (e *engine) recommend(result *domain.Result) []domain.Recommendation {
	var out []domain.Recommendation

	if result.RiskFlag {
		out = append(out, RecommendationCrisisSupport)
	}

	if result.IsInsufficient() {
		out = append(out, RecommendationInsufficientData)
		return finalizeRecommendations(out)
	}

	for _, rule := range recommendationRules[result.Instrument] {
		if rule.Dimension == "" {
			if rule.Label == result.Label {
				out = append(out, rule.Recommendation)
			}
			continue
		}
		if ds, ok := result.Dimension(rule.Dimension); ok && ds.ItemCount > 0 && ds.Label == rule.Label {
			out = append(out, rule.Recommendation)
		}
	}

	if result.Reliability < e.params.LowReliabilityThreshold {
		out = append(out, RecommendationLowReliability)
	}

	return finalizeRecommendations(out)
}

func finalizeRecommendations(recs []domain.Recommendation) []domain.Recommendation {
	seen := make(map[string]struct{}, len(recs))
	out := make([]domain.Recommendation, 0, len(recs))
	for _, r := range recs {
		if _, dup := seen[r.Code]; dup {
			continue
		}
		seen[r.Code] = struct{}{}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Code < out[j].Code
	})
	return out
}
