package application

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/prasetya/cardvault/internal/domain/entity"
	repo "github.com/prasetya/cardvault/internal/domain/repository"
	"github.com/prasetya/cardvault/pkg/helpers"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// AuthService registers users and issues bearer tokens on login.
type AuthService struct {
	Repo   repo.UserRepository
	JWT    *helpers.JWTManager
	Redis  *redis.Client
	Logger *logrus.Logger
}

func NewAuthService(r repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger) *AuthService {
	return &AuthService{Repo: r, JWT: jwt, Redis: rdb, Logger: logger}
}

type LoginResult struct {
	UserID      string
	Email       string
	Name        string
	Token       string
	TokenExpiry time.Time
}

func sessionKey(userID string) string {
	return "user:session:" + userID
}

// Register derives a bcrypt hash and persists a new user with empty billing
// and payment fields. A duplicate email fails without touching the stored row.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*entity.User, error) {
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{Name: name, Email: email, Password: hash}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

// Login validates credentials and issues a signed token embedding the user id.
// An unknown email and a wrong password return the same error so callers
// cannot enumerate accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.JWT.GenerateToken(u.ID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate token failed")
		}
		return nil, err
	}

	if s.Redis != nil {
		key := sessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"user_id":    u.ID,
			"email":      u.Email,
			"name":       u.Name,
			"logged_in":  true,
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		})
		pipe.Expire(ctx, key, time.Until(exp))
		if _, rErr := pipe.Exec(ctx); rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}

	return &LoginResult{UserID: u.ID, Email: u.Email, Name: u.Name, Token: token, TokenExpiry: exp}, nil
}

// Profile returns the caller's user record. The password hash stays inside
// the entity; handlers choose which fields to expose.
func (s *AuthService) Profile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
