package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-service/internal/domain/entity"
	repo "github.com/oksasatya/go-user-service/internal/domain/repository"
	"github.com/oksasatya/go-user-service/pkg/apperr"
	"github.com/oksasatya/go-user-service/pkg/helpers"
)

// Caller is the verified identity an operation runs on behalf of.
// A zero Caller means anonymous.
type Caller struct {
	ID   string
	Role entity.Role
}

// Service implements the account policy: who may do what, and the invariants
// around credential mutation. It is stateless and safe for concurrent use.
type Service struct {
	Repo         repo.UserRepository
	Audit        repo.AuditRepository
	JWT          *helpers.JWTManager
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESUsersIndex string
}

func NewService(r repo.UserRepository, audit repo.AuditRepository, jwt *helpers.JWTManager, logger *logrus.Logger, es *elasticsearch.Client, esUsersIndex string) *Service {
	return &Service{
		Repo:         r,
		Audit:        audit,
		JWT:          jwt,
		Logger:       logger,
		ES:           es,
		ESUsersIndex: esUsersIndex,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     entity.Role // defaults to USER
}

// Register creates an account and issues a token for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, string, error) {
	role := in.Role
	if role == "" {
		role = entity.RoleUser
	}
	if !role.Valid() {
		return nil, "", apperr.New(apperr.TypeInvalidRole, "invalid role")
	}

	if _, err := s.Repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, "", apperr.New(apperr.TypeDuplicateEmail, "email already registered")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, "", err
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}

	u := &entity.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		// The unique constraint is the authority; a racing registration that
		// passed the pre-check still ends up here.
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, "", apperr.New(apperr.TypeDuplicateEmail, "email already registered")
		}
		return nil, "", err
	}

	token, _, err := s.JWT.Generate(u.ID, u.Role.String())
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate token failed")
		return nil, "", err
	}

	s.audit(ctx, u.ID, u.Email, "register", map[string]any{"role": u.Role})
	s.indexUser(ctx, u)
	return u, token, nil
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", apperr.New(apperr.TypeInvalidCredentials, "invalid credentials")
		}
		return nil, "", err
	}
	if !helpers.CheckPassword(u.PasswordHash, password) {
		return nil, "", apperr.New(apperr.TypeInvalidCredentials, "invalid credentials")
	}

	token, _, err := s.JWT.Generate(u.ID, u.Role.String())
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate token failed")
		return nil, "", err
	}

	s.audit(ctx, u.ID, u.Email, "login", nil)
	return u, token, nil
}

func (s *Service) GetProfile(ctx context.Context, callerID string) (*entity.User, error) {
	if callerID == "" {
		return nil, apperr.New(apperr.TypeUnauthorized, "unauthorized")
	}
	u, err := s.Repo.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.New(apperr.TypeNotFound, "user not found")
		}
		return nil, err
	}
	return u, nil
}

type UpdateProfileInput struct {
	Name  string
	Email string
}

// UpdateProfile applies the provided fields only; empty fields are left
// unchanged and role is never touched by this path.
func (s *Service) UpdateProfile(ctx context.Context, callerID string, in UpdateProfileInput) (*entity.User, error) {
	if callerID == "" {
		return nil, apperr.New(apperr.TypeUnauthorized, "unauthorized")
	}
	u, err := s.Repo.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.New(apperr.TypeNotFound, "user not found")
		}
		return nil, err
	}

	if in.Email != "" && in.Email != u.Email {
		other, err := s.Repo.GetByEmail(ctx, in.Email)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		if other != nil && other.ID != u.ID {
			return nil, apperr.New(apperr.TypeDuplicateEmail, "email already in use")
		}
		u.Email = in.Email
	}
	if in.Name != "" {
		u.Name = in.Name
	}

	if err := s.Repo.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, apperr.New(apperr.TypeDuplicateEmail, "email already in use")
		}
		return nil, err
	}

	s.indexUser(ctx, u)
	return u, nil
}

// ChangePassword replaces the caller's secret after proof of the current one.
func (s *Service) ChangePassword(ctx context.Context, callerID, currentPassword, newPassword string) error {
	if callerID == "" {
		return apperr.New(apperr.TypeUnauthorized, "unauthorized")
	}
	u, err := s.Repo.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.New(apperr.TypeNotFound, "user not found")
		}
		return err
	}

	if !helpers.CheckPassword(u.PasswordHash, currentPassword) {
		return apperr.New(apperr.TypeInvalidCredentials, "current password is incorrect")
	}
	if helpers.CheckPassword(u.PasswordHash, newPassword) {
		return apperr.New(apperr.TypeSamePassword, "new password must be different from current password")
	}

	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	s.audit(ctx, u.ID, u.Email, "password_change", nil)
	return nil
}

// ListUsers returns every account; admin only.
func (s *Service) ListUsers(ctx context.Context, caller Caller) ([]*entity.User, error) {
	if caller.Role != entity.RoleAdmin {
		return nil, apperr.New(apperr.TypeForbidden, "admin access required")
	}
	return s.Repo.List(ctx)
}

// DeleteUser removes an account. Admins may delete anyone, users only
// themselves, and the last remaining admin is protected.
func (s *Service) DeleteUser(ctx context.Context, caller Caller, targetID string) error {
	if caller.ID == "" {
		return apperr.New(apperr.TypeUnauthorized, "unauthorized")
	}
	if caller.Role != entity.RoleAdmin && targetID != caller.ID {
		return apperr.New(apperr.TypeForbidden, "you can only delete your own account")
	}

	target, err := s.Repo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.New(apperr.TypeNotFound, "user not found")
		}
		return err
	}

	if target.Role == entity.RoleAdmin {
		admins, err := s.Repo.CountByRole(ctx, entity.RoleAdmin)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return apperr.New(apperr.TypeLastAdmin, "cannot delete the last admin account")
		}
	}

	if err := s.Repo.Delete(ctx, targetID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.New(apperr.TypeNotFound, "user not found")
		}
		return err
	}

	s.audit(ctx, caller.ID, target.Email, "user_delete", map[string]any{"target_id": targetID})
	s.deleteUserDoc(ctx, targetID)
	return nil
}

// ChangeRole updates an account's role; the confirmation step belongs to the
// operator-facing CLI, not here.
func (s *Service) ChangeRole(ctx context.Context, email string, newRole entity.Role) (*entity.User, error) {
	if !newRole.Valid() {
		return nil, apperr.New(apperr.TypeInvalidRole, "invalid role")
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.New(apperr.TypeNotFound, "user not found")
		}
		return nil, err
	}
	if err := s.Repo.UpdateRole(ctx, u.ID, newRole); err != nil {
		return nil, err
	}
	prev := u.Role
	u.Role = newRole

	s.audit(ctx, u.ID, u.Email, "role_change", map[string]any{"from": prev, "to": newRole})
	s.indexUser(ctx, u)
	return u, nil
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	// Secret hash deliberately excluded from the document.
	doc := map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"name":       u.Name,
		"role":       u.Role,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": u.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
}

func (s *Service) deleteUserDoc(ctx context.Context, id string) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESUsersIndex, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", id).Warn("es delete failed")
		return
	}
	_ = res.Body.Close()
}

// SearchUsers performs a multi_match search on email and name; admin only.
// Without a configured Elasticsearch client it returns an empty result.
func (s *Service) SearchUsers(ctx context.Context, caller Caller, q string, size int) ([]map[string]any, error) {
	if caller.Role != entity.RoleAdmin {
		return nil, apperr.New(apperr.TypeForbidden, "admin access required")
	}
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESUsersIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
