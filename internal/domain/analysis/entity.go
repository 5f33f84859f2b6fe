package analysis

import "time"

// VerdictEngineOffline marks a record whose prompt never reached the scoring engine.
const VerdictEngineOffline = "ERROR_ENGINE_OFFLINE"

// MaxPromptLength is the largest prompt (in characters) the security_log table holds.
const MaxPromptLength = 5000

// Record is one analyzed prompt as stored in security_log.
type Record struct {
	ID                  int64     `json:"id"`
	PromptText          string    `json:"promptText"`
	JailbreakScore      float64   `json:"jailbreakScore"`
	JailbreakCategory   string    `json:"jailbreakCategory"`
	HarmfulnessScore    float64   `json:"harmfulnessScore"`
	HarmfulnessCategory string    `json:"harmfulnessCategory"`
	Verdict             string    `json:"verdict"`
	Recommendation      string    `json:"recommendation"`
	CreatedAt           time.Time `json:"timestamp"`
}

// Offline reports whether the record carries the engine-offline sentinel.
func (r *Record) Offline() bool {
	return r.Verdict == VerdictEngineOffline
}

// Filter narrows a log listing. At most one field may be set.
type Filter struct {
	JailbreakCategory   string
	HarmfulnessCategory string
}
