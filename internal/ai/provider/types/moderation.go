package types

// ModerationResult is the first result returned by the moderation endpoint.
type ModerationResult struct {
	ID      string
	Model   string
	Flagged bool
}
