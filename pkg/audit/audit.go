package audit

import "context"

// Entry is a single compliance event.
type Entry struct {
	Action      string
	PerformedBy string
	TargetID    string
	TargetType  string
	TenantID    string
	Metadata    map[string]interface{}
}

// Logger records compliance events. Callers that need compliance
// evidence must treat a Create failure as their own failure.
type Logger interface {
	Create(ctx context.Context, entry Entry) error
}
