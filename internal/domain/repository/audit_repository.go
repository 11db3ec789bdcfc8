package repository

import "context"

// AuditEntry is a single trail record for a security-relevant action.
type AuditEntry struct {
	UserID    string
	Email     string
	Action    string
	IP        string
	UserAgent string
	Metadata  map[string]any
}

// AuditRepository records audit entries. Implementations are best-effort:
// callers ignore failures beyond logging them.
type AuditRepository interface {
	Record(ctx context.Context, e AuditEntry) error
}
