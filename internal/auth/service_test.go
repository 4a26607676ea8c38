package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"outfitlens/internal/adapter/repo"
	"outfitlens/internal/domain"
	"outfitlens/internal/middleware"
)

func newTestService() *Service {
	return NewService(repo.NewMemory().Users(), Options{Secret: "secret", BcryptCost: bcrypt.MinCost}, zerolog.Nop())
}

func TestRegisterThenLogin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tokens, err := svc.Register(ctx, " Jane@Example.com ", "hunter2hunter2", "Jane Doe")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if tokens.TokenType != "bearer" || tokens.User.Email != "jane@example.com" || tokens.User.FirstName() != "Jane" {
		t.Fatalf("Register() = %+v", tokens)
	}
	claims, err := middleware.VerifyJWT("secret", tokens.AccessToken, middleware.TokenAccess, svc.now())
	if err != nil || claims.Sub != tokens.User.ID {
		t.Fatalf("access token claims = %+v, %v", claims, err)
	}

	if _, err := svc.Register(ctx, "jane@example.com", "another-password", "J"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("Register() duplicate error = %v, want ErrEmailTaken", err)
	}

	logged, err := svc.Login(ctx, "JANE@example.com", "hunter2hunter2")
	if err != nil || logged.User.ID != tokens.User.ID {
		t.Fatalf("Login() = %+v, %v", logged, err)
	}

	me, err := svc.Me(ctx, tokens.User.ID)
	if err != nil || me.FullName != "Jane Doe" {
		t.Fatalf("Me() = %+v, %v", me, err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "fail@test.com", "password123", "Demo"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if _, err := svc.Register(ctx, "jane@example.com", "password123", "Jane"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{name: "denied demo account", email: "fail@test.com", password: "password123", want: domain.ErrInvalidCredentials},
		{name: "wrong password", email: "jane@example.com", password: "nope-nope", want: domain.ErrInvalidCredentials},
		{name: "unknown email", email: "ghost@example.com", password: "password123", want: domain.ErrInvalidCredentials},
		{name: "blank", email: "", password: "", want: domain.ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Login(ctx, tc.email, tc.password); !errors.Is(err, tc.want) {
				t.Fatalf("Login() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for _, tc := range []struct{ email, password string }{
		{"", "password123"},
		{"not-an-email", "password123"},
		{"a@b.co", "short"},
	} {
		if _, err := svc.Register(ctx, tc.email, tc.password, ""); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("Register(%q, %q) error = %v, want ErrInvalidInput", tc.email, tc.password, err)
		}
	}
}

func TestRefresh(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	tokens, _ := svc.Register(ctx, "jane@example.com", "password123", "Jane")

	next, err := svc.Refresh(ctx, tokens.RefreshToken)
	if err != nil || next.User.ID != tokens.User.ID {
		t.Fatalf("Refresh() = %+v, %v", next, err)
	}
	if _, err := svc.Refresh(ctx, tokens.AccessToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Refresh(access token) error = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.Refresh(ctx, "garbage"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Refresh(garbage) error = %v, want ErrUnauthorized", err)
	}
}
