package usecase

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/id"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/jwtutil"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

type authFixture struct {
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	jwt      *jwtutil.Manager
	uc       *AuthUsecase
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	jwt := jwtutil.NewManager("test-secret", "classbank", 15*time.Minute)
	uc := NewAuthUsecase(users, sessions, jwt, id.NewSessionIDs(), 8*time.Hour, zap.NewNop())
	return &authFixture{users: users, sessions: sessions, jwt: jwt, uc: uc}
}

func TestLogin(t *testing.T) {
	fx := newAuthFixture(t)
	user := fx.users.add("maria", "secret123", domain.RoleStudent)

	token, gotUser, err := fx.uc.Login(context.Background(), "maria", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if gotUser.ID != user.ID {
		t.Errorf("user id = %d, want %d", gotUser.ID, user.ID)
	}

	claims, err := fx.jwt.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.UserID != strconv.FormatInt(user.ID, 10) {
		t.Errorf("claims uid = %q, want %d", claims.UserID, user.ID)
	}
	if claims.Role != string(domain.RoleStudent) {
		t.Errorf("claims role = %q, want student", claims.Role)
	}
	if claims.SessionID == "" {
		t.Fatal("claims carry no session id")
	}

	// the token's session is live in the store
	sess, err := fx.sessions.Get(context.Background(), claims.SessionID)
	if err != nil {
		t.Fatalf("session Get: %v", err)
	}
	if sess.UserID != user.ID {
		t.Errorf("session user = %d, want %d", sess.UserID, user.ID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	fx := newAuthFixture(t)
	fx.users.add("maria", "secret123", domain.RoleStudent)

	_, _, err := fx.uc.Login(context.Background(), "maria", "wrong")
	if !errors.Is(err, xerrors.ErrInvalidCredentials) {
		t.Fatalf("Login error = %v, want ErrInvalidCredentials", err)
	}
}

// An unknown username fails the same way as a wrong password so login
// responses cannot be used to probe for usernames.
func TestLoginUnknownUser(t *testing.T) {
	fx := newAuthFixture(t)

	_, _, err := fx.uc.Login(context.Background(), "nobody", "whatever")
	if !errors.Is(err, xerrors.ErrInvalidCredentials) {
		t.Fatalf("Login error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	fx := newAuthFixture(t)
	fx.users.add("maria", "secret123", domain.RoleStudent)

	token, _, err := fx.uc.Login(context.Background(), "maria", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := fx.jwt.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}

	if err := fx.uc.Logout(context.Background(), claims.SessionID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := fx.sessions.Get(context.Background(), claims.SessionID); !errors.Is(err, xerrors.ErrSessionExpired) {
		t.Fatalf("session Get after logout error = %v, want ErrSessionExpired", err)
	}
}
