package service

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/olegrjumin/urlrisk/internal/signal"
)

// Detail keys, in the order reasons are merged
const (
	SourceVirusTotal   = "virusTotal"
	SourceURLVoid      = "urlVoid"
	SourceSafeBrowsing = "safeBrowsing"
	SourceHeuristic    = "heuristic"
)

var reasonOrder = []string{SourceVirusTotal, SourceURLVoid, SourceSafeBrowsing, SourceHeuristic}

// ErrInvalidWeights is returned by Weights.Validate
var ErrInvalidWeights = errors.New("invalid weights")

const weightTolerance = 1e-9

// Weights is the contribution of each source to the combined score
type Weights struct {
	VirusTotal   float64
	SafeBrowsing float64
	Heuristic    float64
	URLVoid      float64
}

// DefaultWeights favour the reputation feeds over local heuristics
var DefaultWeights = Weights{
	VirusTotal:   0.50,
	SafeBrowsing: 0.30,
	Heuristic:    0.15,
	URLVoid:      0.05,
}

// Validate checks every weight is non-negative and that they sum to 1
func (w Weights) Validate() error {
	named := []struct {
		name  string
		value float64
	}{
		{"virusTotal", w.VirusTotal},
		{"safeBrowsing", w.SafeBrowsing},
		{"heuristic", w.Heuristic},
		{"urlVoid", w.URLVoid},
	}
	for _, n := range named {
		if n.value < 0 || math.IsNaN(n.value) || math.IsInf(n.value, 0) {
			return fmt.Errorf("%w: %s weight %v", ErrInvalidWeights, n.name, n.value)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %v, want 1", ErrInvalidWeights, sum)
	}
	return nil
}

// Sum adds the four weights
func (w Weights) Sum() float64 {
	return w.VirusTotal + w.SafeBrowsing + w.Heuristic + w.URLVoid
}

// For returns the weight of the source reporting under key
func (w Weights) For(key string) float64 {
	switch key {
	case SourceVirusTotal:
		return w.VirusTotal
	case SourceSafeBrowsing:
		return w.SafeBrowsing
	case SourceHeuristic:
		return w.Heuristic
	case SourceURLVoid:
		return w.URLVoid
	default:
		return 0
	}
}

// Verdict is the combined assessment of a URL
type Verdict struct {
	Score       int                      `json:"score"`
	SafetyScore int                      `json:"safetyScore"`
	Verdict     signal.Level             `json:"verdict"`
	Reasons     []string                 `json:"reasons"`
	Details     map[string]signal.Result `json:"details"`

	// ScanID correlates the verdict with log lines; it is sent as a header
	ScanID string `json:"-"`
}

// Combine weights the per-source results into a single verdict.
// Sources missing from details contribute nothing.
func Combine(w Weights, details map[string]signal.Result) *Verdict {
	var total float64
	for _, key := range reasonOrder {
		if r, ok := details[key]; ok {
			total += w.For(key) * float64(r.Score)
		}
	}

	score := signal.Clamp(int(math.Round(total)))
	return newVerdict(score, details)
}

func newVerdict(score int, details map[string]signal.Result) *Verdict {
	if details == nil {
		details = map[string]signal.Result{}
	}
	return &Verdict{
		Score:       score,
		SafetyScore: 100 - score,
		Verdict:     signal.URLThresholds.Classify(score),
		Reasons:     mergeReasons(details),
		Details:     details,
	}
}

// mergeReasons unions the reasons of every source, first occurrence wins
func mergeReasons(details map[string]signal.Result) []string {
	seen := make(map[string]bool)
	reasons := []string{}
	for _, key := range detailOrder(details) {
		r, ok := details[key]
		if !ok {
			continue
		}
		for _, reason := range r.Reasons {
			if reason == "" || seen[reason] {
				continue
			}
			seen[reason] = true
			reasons = append(reasons, reason)
		}
	}
	return reasons
}

// detailOrder lists the known sources first, then any other keys sorted
func detailOrder(details map[string]signal.Result) []string {
	known := make(map[string]bool, len(reasonOrder))
	for _, key := range reasonOrder {
		known[key] = true
	}

	var extra []string
	for key := range details {
		if !known[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)

	return append(append([]string{}, reasonOrder...), extra...)
}
