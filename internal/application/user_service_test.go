package application_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	userapp "github.com/oksasatya/go-user-service/internal/application"
	"github.com/oksasatya/go-user-service/internal/domain/entity"
	repo "github.com/oksasatya/go-user-service/internal/domain/repository"
	"github.com/oksasatya/go-user-service/internal/infrastructure/memory"
	"github.com/oksasatya/go-user-service/pkg/apperr"
	"github.com/oksasatya/go-user-service/pkg/helpers"
)

type recordingAudit struct {
	entries []repo.AuditEntry
}

func (r *recordingAudit) Record(_ context.Context, e repo.AuditEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func newTestService(t *testing.T) (*userapp.Service, *memory.UserRepository, *recordingAudit) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	users := memory.NewUserRepository()
	audit := &recordingAudit{}
	jwt := helpers.NewJWTManager("test-secret", time.Hour)
	svc := userapp.NewService(users, audit, jwt, logger, nil, "")
	return svc, users, audit
}

func mustRegister(t *testing.T, svc *userapp.Service, name, email, password string, role entity.Role) *entity.User {
	t.Helper()
	u, _, err := svc.Register(context.Background(), userapp.RegisterInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	svc, _, audit := newTestService(t)
	ctx := context.Background()

	u, token, err := svc.Register(ctx, userapp.RegisterInput{
		Name:     "Alice",
		Email:    "alice@x.com",
		Password: "Passw0rd!",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@x.com", u.Email)
	assert.Equal(t, entity.RoleUser, u.Role, "role defaults to USER")
	assert.NotEqual(t, "Passw0rd!", u.PasswordHash, "password must be stored hashed")

	claims, err := svc.JWT.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "USER", claims.Role)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "register", audit.entries[0].Action)
}

func TestRegister_AdminRole(t *testing.T) {
	svc, _, _ := newTestService(t)

	u := mustRegister(t, svc, "Root", "root@x.com", "Passw0rd!", entity.RoleAdmin)
	assert.Equal(t, entity.RoleAdmin, u.Role)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	mustRegister(t, svc, "Alice", "alice@x.com", "Passw0rd!", "")

	_, _, err := svc.Register(ctx, userapp.RegisterInput{
		Name:     "Impostor",
		Email:    "alice@x.com",
		Password: "Other0ne!",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsType(err, apperr.TypeDuplicateEmail))
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	reg := mustRegister(t, svc, "Alice", "alice@x.com", "Passw0rd!", "")

	u, token, err := svc.Login(ctx, "alice@x.com", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, u.ID)

	claims, err := svc.JWT.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, claims.UserID)
	assert.Equal(t, "USER", claims.Role)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	mustRegister(t, svc, "Alice", "alice@x.com", "Passw0rd!", "")

	_, _, errUnknown := svc.Login(ctx, "nobody@x.com", "Passw0rd!")
	_, _, errWrongPwd := svc.Login(ctx, "alice@x.com", "WrongPwd1!")

	require.Error(t, errUnknown)
	require.Error(t, errWrongPwd)
	assert.True(t, apperr.IsType(errUnknown, apperr.TypeInvalidCredentials))
	assert.True(t, apperr.IsType(errWrongPwd, apperr.TypeInvalidCredentials))
	// Identical shape: nothing distinguishes unknown email from bad password.
	assert.Equal(t, errUnknown.Error(), errWrongPwd.Error())
}

func TestGetProfile(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	u := mustRegister(t, svc, "Alice", "alice@x.com", "Passw0rd!", "")

	got, err := svc.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = svc.GetProfile(ctx, "")
	assert.True(t, apperr.IsType(err, apperr.TypeUnauthorized))

	_, err = svc.GetProfile(ctx, "4dd14b24-0000-0000-0000-000000000000")
	assert.True(t, apperr.IsType(err, apperr.TypeNotFound))
}

func TestUpdateProfile_PartialUpdate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	u := mustRegister(t, svc, "Alice", "alice@x.com", "Passw0rd!", "")

	got, err := svc.UpdateProfile(ctx, u.ID, userapp.UpdateProfileInput{Name: "Alice B"})
	require.NoError(t, err)
	assert.Equal(t, "Alice B", got.Name)
	assert.Equal(t, "alice@x.com", got.Email, "absent email stays unchanged")

	got, err = svc.UpdateProfile(ctx, u.ID, userapp.UpdateProfileInput{Email: "alice.b@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "Alice B", got.Name, "absent name stays unchanged")
	assert.Equal(t, "alice.b@x.com", got.Email)
}

func TestUpdateProfile_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	u := mustRegister(t, svc, "Alice", "alice@x.com", "Passw0rd!", "")
	mustRegister(t, svc, "Bob", "bob@x.com", "Passw0rd!", "")

	_, err := svc.UpdateProfile(ctx, u.ID, userapp.UpdateProfileInput{Email: "bob@x.com"})
	require.Error(t, err)
	assert.True(t, apperr.IsType(err, apperr.TypeDuplicateEmail))

	// Re-submitting the caller's own email is not a conflict.
	_, err = svc.UpdateProfile(ctx, u.ID, userapp.UpdateProfileInput{Email: "alice@x.com"})
	assert.NoError(t, err)
}

func TestUpdateProfile_NeverTouchesRole(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()

	u := mustRegister(t, svc, "Root", "root@x.com", "Passw0rd!", entity.RoleAdmin)

	_, err := svc.UpdateProfile(ctx, u.ID, userapp.UpdateProfileInput{Name: "Still Root"})
	require.NoError(t, err)

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, stored.Role)
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	u := mustRegister(t, svc, "Alice", "alice@x.com", "Passw0rd!", "")

	err := svc.ChangePassword(ctx, u.ID, "WrongPwd1!", "NewPassw0rd!")
	assert.True(t, apperr.IsType(err, apperr.TypeInvalidCredentials))

	err = svc.ChangePassword(ctx, u.ID, "Passw0rd!", "Passw0rd!")
	assert.True(t, apperr.IsType(err, apperr.TypeSamePassword))

	err = svc.ChangePassword(ctx, u.ID, "Passw0rd!", "NewPassw0rd!")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice@x.com", "NewPassw0rd!")
	assert.NoError(t, err, "new password must work")
	_, _, err = svc.Login(ctx, "alice@x.com", "Passw0rd!")
	assert.True(t, apperr.IsType(err, apperr.TypeInvalidCredentials), "old password must stop working")
}

func TestChangePassword_Unauthorized(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.ChangePassword(context.Background(), "", "a", "b")
	assert.True(t, apperr.IsType(err, apperr.TypeUnauthorized))
}

func TestListUsers(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	admin := mustRegister(t, svc, "Root", "root@x.com", "Passw0rd!", entity.RoleAdmin)
	user := mustRegister(t, svc, "Alice", "alice@x.com", "Passw0rd!", "")

	_, err := svc.ListUsers(ctx, userapp.Caller{ID: user.ID, Role: user.Role})
	assert.True(t, apperr.IsType(err, apperr.TypeForbidden))

	users, err := svc.ListUsers(ctx, userapp.Caller{ID: admin.ID, Role: admin.Role})
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestDeleteUser_Permissions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	admin := mustRegister(t, svc, "Root", "root@x.com", "Passw0rd!", entity.RoleAdmin)
	alice := mustRegister(t, svc, "Alice", "alice@x.com", "Passw0rd!", "")
	bob := mustRegister(t, svc, "Bob", "bob@x.com", "Passw0rd!", "")

	err := svc.DeleteUser(ctx, userapp.Caller{}, alice.ID)
	assert.True(t, apperr.IsType(err, apperr.TypeUnauthorized))

	err = svc.DeleteUser(ctx, userapp.Caller{ID: alice.ID, Role: alice.Role}, bob.ID)
	assert.True(t, apperr.IsType(err, apperr.TypeForbidden), "users cannot delete other accounts")

	err = svc.DeleteUser(ctx, userapp.Caller{ID: alice.ID, Role: alice.Role}, alice.ID)
	assert.NoError(t, err, "self-delete is allowed")

	err = svc.DeleteUser(ctx, userapp.Caller{ID: admin.ID, Role: admin.Role}, bob.ID)
	assert.NoError(t, err, "admin may delete any account")

	err = svc.DeleteUser(ctx, userapp.Caller{ID: admin.ID, Role: admin.Role}, bob.ID)
	assert.True(t, apperr.IsType(err, apperr.TypeNotFound))
}

func TestDeleteUser_LastAdminProtected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	admin := mustRegister(t, svc, "Root", "root@x.com", "Passw0rd!", entity.RoleAdmin)

	err := svc.DeleteUser(ctx, userapp.Caller{ID: admin.ID, Role: admin.Role}, admin.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsType(err, apperr.TypeLastAdmin))

	// With a second admin in place, deletion goes through.
	second := mustRegister(t, svc, "Backup", "backup@x.com", "Passw0rd!", entity.RoleAdmin)
	err = svc.DeleteUser(ctx, userapp.Caller{ID: admin.ID, Role: admin.Role}, second.ID)
	assert.NoError(t, err)
}

func TestChangeRole(t *testing.T) {
	svc, users, audit := newTestService(t)
	ctx := context.Background()

	u := mustRegister(t, svc, "Alice", "alice@x.com", "Passw0rd!", "")

	_, err := svc.ChangeRole(ctx, "alice@x.com", "SUPERUSER")
	assert.True(t, apperr.IsType(err, apperr.TypeInvalidRole))

	_, err = svc.ChangeRole(ctx, "nobody@x.com", entity.RoleAdmin)
	assert.True(t, apperr.IsType(err, apperr.TypeNotFound))

	updated, err := svc.ChangeRole(ctx, "alice@x.com", entity.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, updated.Role)

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, stored.Role)

	last := audit.entries[len(audit.entries)-1]
	assert.Equal(t, "role_change", last.Action)
}

func TestSearchUsers(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	admin := mustRegister(t, svc, "Root", "root@x.com", "Passw0rd!", entity.RoleAdmin)
	user := mustRegister(t, svc, "Alice", "alice@x.com", "Passw0rd!", "")

	_, err := svc.SearchUsers(ctx, userapp.Caller{ID: user.ID, Role: user.Role}, "alice", 10)
	assert.True(t, apperr.IsType(err, apperr.TypeForbidden))

	// No Elasticsearch configured: empty result, not an error.
	hits, err := svc.SearchUsers(ctx, userapp.Caller{ID: admin.ID, Role: admin.Role}, "alice", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestAuditFailureDoesNotFailOperation(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	users := memory.NewUserRepository()
	jwt := helpers.NewJWTManager("test-secret", time.Hour)
	svc := userapp.NewService(users, failingAudit{}, jwt, logger, nil, "")

	_, _, err := svc.Register(context.Background(), userapp.RegisterInput{
		Name:     "Alice",
		Email:    "alice@x.com",
		Password: "Passw0rd!",
	})
	assert.NoError(t, err)
}

type failingAudit struct{}

func (failingAudit) Record(context.Context, repo.AuditEntry) error {
	return assert.AnError
}
