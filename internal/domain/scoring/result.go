package scoring

// Result is the engine's verdict for a single prompt after coercion.
// Missing or mistyped numbers are 0, missing or mistyped strings are empty.
type Result struct {
	JailbreakScore      float64
	JailbreakCategory   string
	HarmfulnessScore    float64
	HarmfulnessCategory string
	Verdict             string
	Recommendation      string
}
