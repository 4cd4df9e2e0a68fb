package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	"github.com/ReadWriteReboot/ClassroomBank/internal/repository"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/id"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/jwtutil"
	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

// AuthUsecase mints and revokes sessions. A login stores a server-side
// session in Redis and hands out a JWT carrying its id; logout deletes the
// session, which kills the token before its exp.
type AuthUsecase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository

	jwt        *jwtutil.Manager
	sids       *id.SessionIDs
	sessionTTL time.Duration
	logger     *zap.Logger
}

func NewAuthUsecase(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	jwt *jwtutil.Manager,
	sids *id.SessionIDs,
	sessionTTL time.Duration,
	logger *zap.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:      users,
		sessions:   sessions,
		jwt:        jwt,
		sids:       sids,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Login verifies credentials and returns a signed token plus the user.
// Unknown username and wrong password fail identically.
func (uc *AuthUsecase) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := uc.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return "", nil, xerrors.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, xerrors.ErrInvalidCredentials
	}

	sid := uc.sids.New()
	sess := &repository.Session{
		UserID:    user.ID,
		Role:      string(user.Role),
		CreatedAt: time.Now(),
	}
	if err := uc.sessions.Save(ctx, sid, sess, uc.sessionTTL); err != nil {
		return "", nil, fmt.Errorf("failed to save session: %w", err)
	}

	token, err := uc.jwt.Sign(strconv.FormatInt(user.ID, 10), string(user.Role), sid)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	uc.logger.Info("user logged in",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)

	return token, user, nil
}

// Logout revokes the session behind the presented token.
func (uc *AuthUsecase) Logout(ctx context.Context, sessionID string) error {
	if err := uc.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	uc.logger.Info("user logged out", zap.String("session_id", sessionID))
	return nil
}
