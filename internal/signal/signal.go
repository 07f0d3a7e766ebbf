// Package signal holds the types shared by every risk signal producer:
// the per-source Result and the three-valued risk Level.
package signal

import "fmt"

// Status records how a source arrived at its Result
type Status string

const (
	StatusOK           Status = "ok"
	StatusPending      Status = "pending" // submitted for analysis, no answer yet
	StatusUnconfigured Status = "unconfigured"
	StatusFailed       Status = "failed"
)

// Result is a single source's unweighted contribution to a verdict
type Result struct {
	Score   int      `json:"score"`   // 0-100
	Reasons []string `json:"reasons"` // human readable, evaluation order
	Status  Status   `json:"-"`
}

// New builds a Result with the score clamped to [0,100]
func New(score int, reasons ...string) Result {
	if reasons == nil {
		reasons = []string{}
	}
	return Result{Score: Clamp(score), Reasons: reasons, Status: StatusOK}
}

// WithStatus returns a copy of r carrying status
func (r Result) WithStatus(status Status) Result {
	r.Status = status
	return r
}

// Clamp bounds a score to [0,100]
func Clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Unconfigured is the result of a source that has no credentials.
// It contributes nothing and says so; it is not a clean bill of health.
func Unconfigured(source string) Result {
	return New(0, fmt.Sprintf("%s API not configured", source)).WithStatus(StatusUnconfigured)
}

// Failed is the result of a source that could not be reached or answered badly
func Failed(source string) Result {
	return New(0, fmt.Sprintf("%s scan failed", source)).WithStatus(StatusFailed)
}

// Level is the three-valued risk classification
type Level string

const (
	Safe       Level = "safe"
	Suspicious Level = "suspicious"
	Danger     Level = "danger"
)

// Thresholds are the inclusive lower bounds for each non-safe level
type Thresholds struct {
	Danger     int
	Suspicious int
}

// URLThresholds classify aggregated URL scores
var URLThresholds = Thresholds{Danger: 60, Suspicious: 25}

// MessageThresholds classify free-text message scores
var MessageThresholds = Thresholds{Danger: 75, Suspicious: 45}

// Classify maps a score onto a Level
func (t Thresholds) Classify(score int) Level {
	switch {
	case score >= t.Danger:
		return Danger
	case score >= t.Suspicious:
		return Suspicious
	default:
		return Safe
	}
}
