package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prasetya/cardvault/internal/domain/entity"
	repo "github.com/prasetya/cardvault/internal/domain/repository"
	"github.com/prasetya/cardvault/pkg/helpers"
)

func authSvc(r repo.UserRepository) *AuthService {
	return &AuthService{Repo: r, JWT: helpers.NewJWTManager("test-secret", time.Hour)}
}

func TestRegister_HashesPassword(t *testing.T) {
	var created *entity.User
	r := &mockRepo{
		createFn: func(ctx context.Context, u *entity.User) error {
			created = u
			return nil
		},
	}

	u, err := authSvc(r).Register(context.Background(), "Alice", "a@b.test", "pw123secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if created == nil || created != u {
		t.Fatal("user not passed to repository")
	}
	if u.Password == "pw123secret" {
		t.Fatal("password stored in plain text")
	}
	if !helpers.CompareHashAndPassword(u.Password, "pw123secret") {
		t.Fatal("stored hash does not verify against the password")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	r := &mockRepo{
		createFn: func(ctx context.Context, u *entity.User) error {
			return repo.ErrDuplicateEmail
		},
	}
	_, err := authSvc(r).Register(context.Background(), "Alice", "a@b.test", "pw123secret")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestLogin_BadEmailAndBadPasswordIndistinguishable(t *testing.T) {
	hash, err := helpers.HashPassword("correct-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	r := &mockRepo{
		getByEmailFn: func(ctx context.Context, email string) (*entity.User, error) {
			if email == "known@b.test" {
				return &entity.User{ID: "u1", Email: email, Password: hash}, nil
			}
			return nil, repo.ErrNotFound
		},
	}
	svc := authSvc(r)

	_, badEmail := svc.Login(context.Background(), "unknown@b.test", "whatever")
	_, badPass := svc.Login(context.Background(), "known@b.test", "wrong-password")

	if !errors.Is(badEmail, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v, want ErrInvalidCredentials", badEmail)
	}
	if !errors.Is(badPass, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want ErrInvalidCredentials", badPass)
	}
	if badEmail.Error() != badPass.Error() {
		t.Fatal("bad email and bad password must be indistinguishable")
	}
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	hash, err := helpers.HashPassword("correct-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	r := &mockRepo{
		getByEmailFn: func(ctx context.Context, email string) (*entity.User, error) {
			return &entity.User{ID: "u1", Email: email, Name: "Alice", Password: hash}, nil
		},
	}
	svc := authSvc(r)

	res, err := svc.Login(context.Background(), "a@b.test", "correct-password")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.UserID != "u1" || res.Token == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if time.Until(res.TokenExpiry) <= 0 {
		t.Fatal("token expiry should be in the future")
	}

	claims, err := svc.JWT.ParseToken(res.Token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("token carries user %q, want u1", claims.UserID)
	}
}

func TestProfile_NotFound(t *testing.T) {
	r := &mockRepo{
		getByIDFn: func(ctx context.Context, id string) (*entity.User, error) {
			return nil, repo.ErrNotFound
		},
	}
	_, err := authSvc(r).Profile(context.Background(), "ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}
