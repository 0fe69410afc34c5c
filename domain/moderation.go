package domain

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities, high > medium > low. Unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Verdict is the outcome of a moderation pass.
type Verdict struct {
	Allowed  bool     `json:"allowed"`
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
	Flagged  bool     `json:"flagged"`
}

func Allow(reason string) Verdict {
	return Verdict{Allowed: true, Reason: reason, Severity: SeverityLow, Flagged: false}
}

func Deny(reason string, severity Severity) Verdict {
	return Verdict{Allowed: false, Reason: reason, Severity: severity, Flagged: true}
}

// Classification is the top label returned by a content classifier.
type Classification struct {
	Label      string
	Confidence float64
}

// ModerationRequest is a piece of user content to evaluate.
// ImageRef is a file path or an object storage reference, empty when absent.
type ModerationRequest struct {
	Content  string
	ImageRef string
	UserID   string
	UserType string
	RoomID   RoomID
}
