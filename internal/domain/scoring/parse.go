package scoring

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Field names of the engine's response object.
const (
	FieldJailbreakScore      = "jailbreak_score"
	FieldJailbreakCategory   = "jailbreak_category"
	FieldHarmfulnessScore    = "harmfulness_score"
	FieldHarmfulnessCategory = "harmfulness_category"
	FieldVerdict             = "verdict"
	FieldRecommendation      = "recommendation"
)

// Parse decodes an engine response body. The body must be a JSON object; each field
// is then coerced on its own so one bad value never fails the whole result.
func Parse(body []byte) (Result, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if raw == nil {
		return Result{}, fmt.Errorf("%w: response is not a JSON object", ErrUnavailable)
	}
	return Result{
		JailbreakScore:      number(raw[FieldJailbreakScore]),
		JailbreakCategory:   text(raw[FieldJailbreakCategory]),
		HarmfulnessScore:    number(raw[FieldHarmfulnessScore]),
		HarmfulnessCategory: text(raw[FieldHarmfulnessCategory]),
		Verdict:             text(raw[FieldVerdict]),
		Recommendation:      text(raw[FieldRecommendation]),
	}, nil
}

// number yields 0 for anything that is not a JSON number, including numeric strings.
func number(v json.RawMessage) float64 {
	if len(v) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0
	}
	return f
}

func text(v json.RawMessage) string {
	if len(v) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}
