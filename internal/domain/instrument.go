package domain

import "strings"

// Instrument identifies one fixed psychometric test definition.
type Instrument string

// Supported instruments.
const (
	InstrumentTypeInventory       Instrument = "type_inventory"
	InstrumentClinicalScreening   Instrument = "clinical_screening"
	InstrumentEmotionalCompetency Instrument = "emotional_competency"
	InstrumentWellbeing           Instrument = "wellbeing"
)

// Type inventory dimensions, in the fixed order used to assemble type codes.
const (
	DimensionExtraversionIntroversion = "E/I"
	DimensionSensingIntuition         = "S/N"
	DimensionThinkingFeeling          = "T/F"
	DimensionJudgingPerceiving        = "J/P"
)

// Clinical screening symptom categories.
const (
	DimensionAnhedonia        = "anhedonia"
	DimensionDepressedMood    = "depressed_mood"
	DimensionSleep            = "sleep"
	DimensionFatigue          = "fatigue"
	DimensionAppetite         = "appetite"
	DimensionSelfWorth        = "self_worth"
	DimensionConcentration    = "concentration"
	DimensionPsychomotor      = "psychomotor"
	DimensionSelfHarmIdeation = "self_harm_ideation"
)

// Emotional competency dimensions.
const (
	DimensionSelfAwareness          = "self_awareness"
	DimensionSelfManagement         = "self_management"
	DimensionSocialAwareness        = "social_awareness"
	DimensionRelationshipManagement = "relationship_management"
)

// Wellbeing domains.
const (
	DomainPhysical     = "physical"
	DomainEmotional    = "emotional"
	DomainSocial       = "social"
	DomainOccupational = "occupational"
	DomainFinancial    = "financial"
)

var instrumentDimensions = map[Instrument][]string{
	InstrumentTypeInventory: {
		DimensionExtraversionIntroversion,
		DimensionSensingIntuition,
		DimensionThinkingFeeling,
		DimensionJudgingPerceiving,
	},
	InstrumentClinicalScreening: {
		DimensionAnhedonia,
		DimensionDepressedMood,
		DimensionSleep,
		DimensionFatigue,
		DimensionAppetite,
		DimensionSelfWorth,
		DimensionConcentration,
		DimensionPsychomotor,
		DimensionSelfHarmIdeation,
	},
	InstrumentEmotionalCompetency: {
		DimensionSelfAwareness,
		DimensionSelfManagement,
		DimensionSocialAwareness,
		DimensionRelationshipManagement,
	},
	InstrumentWellbeing: {
		DomainPhysical,
		DomainEmotional,
		DomainSocial,
		DomainOccupational,
		DomainFinancial,
	},
}

// Instruments returns all supported instruments in a stable order.
func Instruments() []Instrument {
	return []Instrument{
		InstrumentTypeInventory,
		InstrumentClinicalScreening,
		InstrumentEmotionalCompetency,
		InstrumentWellbeing,
	}
}

// IsValid reports whether the instrument is one of the supported instruments.
func (i Instrument) IsValid() bool {
	_, ok := instrumentDimensions[i]
	return ok
}

// Dimensions returns a copy of the instrument's enumerated dimensions in
// their canonical order. It returns nil for unknown instruments.
func (i Instrument) Dimensions() []string {
	dims, ok := instrumentDimensions[i]
	if !ok {
		return nil
	}
	out := make([]string, len(dims))
	copy(out, dims)
	return out
}

// HasDimension reports whether dimension belongs to the instrument.
func (i Instrument) HasDimension(dimension string) bool {
	for _, d := range instrumentDimensions[i] {
		if d == dimension {
			return true
		}
	}
	return false
}

// ParseInstrument normalizes a user-supplied instrument tag.
func ParseInstrument(s string) (Instrument, bool) {
	inst := Instrument(strings.ToLower(strings.TrimSpace(s)))
	return inst, inst.IsValid()
}

// Poles returns the two poles of a type inventory dimension, first-listed
// pole first. The first pole wins ties.
func Poles(dimension string) (first, second string, ok bool) {
	parts := strings.Split(dimension, "/")
	if len(parts) != 2 || !InstrumentTypeInventory.HasDimension(dimension) {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// NormalizeDimension maps common spellings of a dimension onto its canonical
// form for the instrument. Unknown values are returned trimmed and unchanged.
func NormalizeDimension(instrument Instrument, dimension string) string {
	d := strings.TrimSpace(dimension)
	if instrument == InstrumentTypeInventory {
		d = strings.ToUpper(strings.ReplaceAll(d, "-", "/"))
		if len(d) == 2 {
			d = d[:1] + "/" + d[1:]
		}
		return d
	}
	d = strings.ToLower(d)
	return strings.NewReplacer("-", "_", " ", "_").Replace(d)
}
