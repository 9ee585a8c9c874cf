package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smarttask/backend/domain"
	"github.com/smarttask/backend/repository"
)

// emailPattern accepts local-part @ domain . tld with no whitespace.
var emailPattern = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

type Config struct {
	JWTSecret  string
	JWTIssuer  string
	SessionTTL time.Duration
}

type UseCase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	cfg      Config
	logger   *zap.Logger
}

func New(users repository.UserRepository, sessions repository.SessionRepository, cfg Config, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	return &UseCase{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

// Register validates the credentials, digests the password and inserts the
// user. A taken email surfaces as domain.ErrDuplicateEmail.
func (uc *UseCase) Register(ctx context.Context, email, password string) (*domain.User, error) {
	if !emailPattern.MatchString(email) {
		return nil, domain.NewError(domain.ErrCodeInvalid, "invalid email address")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:          email,
		PasswordDigest: digest(password),
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}

	uc.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login verifies the credentials by exact digest match, opens a session and
// issues a bearer token referencing it.
func (uc *UseCase) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := uc.users.GetByCredentials(ctx, email, digest(password))
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.cfg.SessionTTL),
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return "", nil, err
	}

	token, err := uc.signToken(user.ID, session)
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrCodeInternal, "sign token", err)
	}

	uc.logger.Info("user logged in", zap.String("user_id", user.ID))
	return token, user, nil
}

// Logout revokes the session. Tokens referencing it stop passing the auth
// middleware immediately.
func (uc *UseCase) Logout(ctx context.Context, sessionID string) error {
	return uc.sessions.Delete(ctx, sessionID)
}

// CheckSession reports whether a session is still live. Expired sessions are
// revoked on sight.
func (uc *UseCase) CheckSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// GetUser loads the account behind an authenticated request.
func (uc *UseCase) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return uc.users.GetByID(ctx, userID)
}

func (uc *UseCase) signToken(userID string, session *domain.Session) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    userID,
		"session_id": session.ID,
		"iss":        uc.cfg.JWTIssuer,
		"exp":        session.ExpiresAt.Unix(),
		"iat":        session.CreatedAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(uc.cfg.JWTSecret))
}

// ValidatePassword enforces the registration policy: at least 8 characters
// with one uppercase letter, one lowercase letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return domain.NewError(domain.ErrCodeInvalid, "password must be at least 8 characters long")
	}
	var upper, lower, num bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			num = true
		}
	}
	switch {
	case !upper:
		return domain.NewError(domain.ErrCodeInvalid, "password must contain at least one uppercase letter")
	case !lower:
		return domain.NewError(domain.ErrCodeInvalid, "password must contain at least one lowercase letter")
	case !num:
		return domain.NewError(domain.ErrCodeInvalid, "password must contain at least one number")
	}
	return nil
}

func digest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
