package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"outfitlens/internal/domain"
	"outfitlens/internal/middleware"
)

// DeniedEmail always fails to log in. The web client used it to demo the
// error banner and the API keeps the behaviour.
const DeniedEmail = "fail@test.com"

const minPasswordLength = 8

// Options configures token lifetimes.
type Options struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// Service registers users and issues access and refresh tokens.
type Service struct {
	users  domain.UserRepository
	opts   Options
	logger zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewService(users domain.UserRepository, opts Options, logger zerolog.Logger) *Service {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = time.Hour
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:  users,
		opts:   opts,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Register creates an account and signs the user in.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (domain.AuthTokens, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)
	if email == "" || password == "" {
		return domain.AuthTokens{}, fmt.Errorf("%w: Email and password are required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.AuthTokens{}, fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return domain.AuthTokens{}, fmt.Errorf("%w: Password must be at least 8 characters", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return domain.AuthTokens{}, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		ID:           s.newID(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.AuthTokens{}, err
	}
	s.logger.Info().Str("user_id", user.ID).Msg("auth: user registered")
	return s.issue(*user)
}

// Login checks the credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (domain.AuthTokens, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.AuthTokens{}, fmt.Errorf("%w: Email and password are required", domain.ErrInvalidInput)
	}
	if email == DeniedEmail {
		return domain.AuthTokens{}, domain.ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.AuthTokens{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.AuthTokens{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return domain.AuthTokens{}, domain.ErrInvalidCredentials
	}
	return s.issue(*user)
}

// Refresh exchanges a refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (domain.AuthTokens, error) {
	claims, err := middleware.VerifyJWT(s.opts.Secret, refreshToken, middleware.TokenRefresh, s.now())
	if err != nil {
		return domain.AuthTokens{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	user, err := s.users.GetByID(ctx, claims.Sub)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.AuthTokens{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.AuthTokens{}, err
	}
	return s.issue(*user)
}

// Me returns the signed-in user.
func (s *Service) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) issue(user domain.User) (domain.AuthTokens, error) {
	now := s.now()
	access, err := middleware.IssueToken(s.opts.Secret, middleware.TokenAccess, user.ID, user.Email, s.opts.AccessTTL, now)
	if err != nil {
		return domain.AuthTokens{}, err
	}
	refresh, err := middleware.IssueToken(s.opts.Secret, middleware.TokenRefresh, user.ID, user.Email, s.opts.RefreshTTL, now)
	if err != nil {
		return domain.AuthTokens{}, err
	}
	return domain.AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		User:         user,
	}, nil
}
