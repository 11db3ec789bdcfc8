package application

import (
	"context"

	repo "github.com/oksasatya/go-user-service/internal/domain/repository"
)

type requestInfoKey struct{}

// RequestInfo carries transport-level metadata (client IP, user agent) into
// audit records without making the service depend on the HTTP layer.
type RequestInfo struct {
	IP        string
	UserAgent string
}

func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

func requestInfoFrom(ctx context.Context) RequestInfo {
	if info, ok := ctx.Value(requestInfoKey{}).(RequestInfo); ok {
		return info
	}
	return RequestInfo{}
}

// audit writes a trail record. Failures are logged and swallowed: the audit
// trail never fails the operation it describes.
func (s *Service) audit(ctx context.Context, userID, email, action string, metadata map[string]any) {
	if s.Audit == nil {
		return
	}
	info := requestInfoFrom(ctx)
	err := s.Audit.Record(ctx, repo.AuditEntry{
		UserID:    userID,
		Email:     email,
		Action:    action,
		IP:        info.IP,
		UserAgent: info.UserAgent,
		Metadata:  metadata,
	})
	if err != nil {
		s.Logger.WithError(err).WithField("action", action).Warn("audit record failed")
	}
}
