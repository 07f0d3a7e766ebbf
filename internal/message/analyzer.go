// Package message scores free-text messages (SMS, chat, email bodies) for
// the usual social-engineering markers.
package message

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/olegrjumin/urlrisk/internal/signal"
)

// ShortMessageLength is the length below which a message is itself a signal
const ShortMessageLength = 8

// Result is the assessment of a single message
type Result struct {
	Score   int          `json:"score"`
	Verdict signal.Level `json:"verdict"`
	Reasons []string     `json:"reasons"`
}

type pattern struct {
	re     *regexp.Regexp
	points int
	reason string
}

// patterns run against the lower-cased text, in this order
var patterns = []pattern{
	{regexp.MustCompile(`otp|one[-\s]?time|verification\s?code`), 20, "Asks for OTP/verification"},
	{regexp.MustCompile(`urgent|immediately|act\s?now|final\s?notice`), 15, "Artificial urgency"},
	{regexp.MustCompile(`(crypto|bitcoin|usdt|wallet|seed\s?phrase)`), 15, "Crypto payment/seed phrase"},
	{regexp.MustCompile(`(gift\s?card|itunes|steam)\s?code`), 15, "Gift card payment"},
	{regexp.MustCompile(`(wire|bank\s?transfer)`), 10, "Wire transfer request"},
	{regexp.MustCompile(`click\s?link|login\s?to\s?confirm|reset\s?password`), 15, "Suspicious link/credential theft"},
	{regexp.MustCompile(`(social\s?security|aadhar|pan|ssn)`), 15, "Sensitive ID request"},
}

// Analyze scores text. Every matching pattern adds its points once.
func Analyze(text string) Result {
	lower := strings.ToLower(text)

	score := 0
	reasons := []string{}
	for _, p := range patterns {
		if p.re.MatchString(lower) {
			score += p.points
			reasons = append(reasons, p.reason)
		}
	}
	if utf8.RuneCountInString(text) < ShortMessageLength {
		score += 10
		reasons = append(reasons, "Very short message")
	}

	score = signal.Clamp(score)
	return Result{
		Score:   score,
		Verdict: signal.MessageThresholds.Classify(score),
		Reasons: reasons,
	}
}
