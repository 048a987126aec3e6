package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bizfinda/backend/internal/config"
	"github.com/bizfinda/backend/internal/db"
	"github.com/bizfinda/backend/internal/password"
)

const tokenIssuer = "bizfinda"

var (
	ErrWrongPassword = errors.New("wrong password")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
)

// UserStore is the credential store boundary the session lifecycle
// depends on. It enforces email uniqueness; the password hash never
// crosses back out of this package.
type UserStore interface {
	Create(ctx context.Context, user *db.User) error
	GetByEmail(ctx context.Context, email string) (*db.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*db.User, error)
}

// Claims is the payload for both token classes. The classes share a
// shape but never a key: an access token cannot verify under the
// refresh secret, and vice versa.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

type Service struct {
	users UserStore

	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewService(users UserStore, cfg *config.Config) *Service {
	return &Service{
		users:         users,
		accessSecret:  []byte(cfg.JWTAccessSecret),
		refreshSecret: []byte(cfg.JWTRefreshSecret),
		accessExpiry:  cfg.AccessExpiry,
		refreshExpiry: cfg.RefreshExpiry,
	}
}

// Signup registers a new identity. The GetByEmail check is a fast path
// for a friendly error; the unique index on users.email is what actually
// guarantees one identity per email, so a racing duplicate insert still
// maps to ErrEmailExists.
func (s *Service) Signup(ctx context.Context, email, plaintext string) error {
	email = NormalizeEmail(email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return db.ErrEmailExists
	} else if !errors.Is(err, db.ErrUserNotFound) {
		return err
	}

	hash, err := password.Hash(plaintext)
	if err != nil {
		return err
	}

	now := time.Now()
	return s.users.Create(ctx, &db.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// Login verifies the credentials and mints both token classes.
func (s *Service) Login(ctx context.Context, email, plaintext string) (*db.User, string, string, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, "", "", err
	}

	ok, err := password.Verify(user.PasswordHash, plaintext)
	if err != nil {
		return nil, "", "", err
	}
	if !ok {
		return nil, "", "", ErrWrongPassword
	}

	accessToken, err := s.IssueAccessToken(user.ID)
	if err != nil {
		return nil, "", "", err
	}
	refreshToken, err := s.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, "", "", err
	}

	return user, accessToken, refreshToken, nil
}

// Refresh verifies a refresh token and mints a new access token for the
// same subject. The refresh token itself is not rotated; it stays valid
// until its own expiry.
func (s *Service) Refresh(refreshToken string) (string, error) {
	claims, err := s.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return "", ErrInvalidToken
	}

	return s.IssueAccessToken(userID)
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*db.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) IssueAccessToken(userID uuid.UUID) (string, error) {
	return s.issue(userID, s.accessSecret, s.accessExpiry)
}

func (s *Service) IssueRefreshToken(userID uuid.UUID) (string, error) {
	return s.issue(userID, s.refreshSecret, s.refreshExpiry)
}

func (s *Service) VerifyAccessToken(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.accessSecret)
}

func (s *Service) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.refreshSecret)
}

// RefreshExpiry is the refresh token lifetime, which doubles as the
// cookie max-age.
func (s *Service) RefreshExpiry() time.Duration {
	return s.refreshExpiry
}

func (s *Service) issue(userID uuid.UUID, secret []byte, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// verify fails closed: any structural, signature, or expiry failure
// rejects the token.
func (s *Service) verify(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// NormalizeEmail lowercases and trims so email uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
