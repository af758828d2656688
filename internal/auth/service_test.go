package auth

import (
	"context"
	"testing"

	"gorm.io/gorm"

	pkgauth "github.com/widyatama/jasaku-backend/pkg/auth"
	"github.com/widyatama/jasaku-backend/pkg/config"
	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
)

type stubUserRepo struct {
	byEmail map[string]*models.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: make(map[string]*models.User)}
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	copied := *user
	s.byEmail[user.Email] = &copied
	return nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func newAuthService(t *testing.T, repo *stubUserRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo: repo,
		JWTConfig: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "jasaku-test",
			ExpirationMinutes: 30,
		},
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthService(t, repo)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterRequest{
		Email:    "Dewi@Example.com",
		Password: "correct-horse",
		FullName: "Dewi Lestari",
		Role:     enums.UserRoleFreelancer,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.User.Email != "dewi@example.com" {
		t.Fatalf("email = %s, want lowercased", registered.User.Email)
	}
	if registered.AccessToken == "" {
		t.Fatal("missing access token")
	}

	logged, err := svc.Login(ctx, LoginRequest{Email: "dewi@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "jasaku-test",
		ExpirationMinutes: 30,
	}, logged.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Role != enums.UserRoleFreelancer {
		t.Fatalf("role = %s, want freelancer", claims.Role)
	}
	if claims.UserID != registered.User.ID {
		t.Fatal("token user id does not match account")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthService(t, repo)
	ctx := context.Background()

	req := RegisterRequest{
		Email:    "dup@example.com",
		Password: "correct-horse",
		FullName: "Dup User",
		Role:     enums.UserRoleClient,
	}
	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(ctx, req)
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	svc := newAuthService(t, newStubUserRepo())

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "root@example.com",
		Password: "correct-horse",
		FullName: "Wannabe Admin",
		Role:     enums.UserRoleAdmin,
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthService(t, repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Email:    "ayu@example.com",
		Password: "correct-horse",
		FullName: "Ayu",
		Role:     enums.UserRoleClient,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = svc.Login(ctx, LoginRequest{Email: "ayu@example.com", Password: "wrong"})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}

func TestLoginBlockedAccount(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthService(t, repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Email:    "blocked@example.com",
		Password: "correct-horse",
		FullName: "Blocked User",
		Role:     enums.UserRoleClient,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	repo.byEmail["blocked@example.com"].Blocked = true

	_, err = svc.Login(ctx, LoginRequest{Email: "blocked@example.com", Password: "correct-horse"})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestLoginUnknownEmailIsUnauthorized(t *testing.T) {
	svc := newAuthService(t, newStubUserRepo())

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "whatever"})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}
