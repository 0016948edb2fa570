package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/grocerly/backend/internal/cache"
	"github.com/grocerly/backend/internal/config"
	"github.com/grocerly/backend/internal/db"
	"github.com/grocerly/backend/internal/model"
)

const (
	// CookieName is the session cookie the browser sends on requests and on
	// the websocket handshake.
	CookieName = "tokenKey"

	tokenTTL = 24 * time.Hour
)

// UserStore is the narrow slice of the durable store the auth flows consume.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, user model.User) error
}

// SessionRegistry deauthorizes live connections whose token was just revoked.
type SessionRegistry interface {
	DeauthorizeToken(token string)
}

type CookieConfig struct {
	Name     string
	Path     string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService struct {
	store       UserStore
	users       *cache.Envelope[model.User]
	ledger      *RevocationLedger
	sessions    SessionRegistry
	validate    *validator.Validate
	secret      []byte
	hashCost    int
	allowSignup bool
}

func NewAuthService(store UserStore, users *cache.Envelope[model.User], ledger *RevocationLedger, sessions SessionRegistry, cfg config.AuthConfig) *AuthService {
	return &AuthService{
		store:       store,
		users:       users,
		ledger:      ledger,
		sessions:    sessions,
		validate:    newValidator(),
		secret:      []byte(cfg.JWTSecret),
		hashCost:    cfg.HashCost,
		allowSignup: cfg.AllowSignup,
	}
}

func (s *AuthService) AllowSignup() bool {
	return s.allowSignup
}

func (s *AuthService) CookieConfig() CookieConfig {
	return CookieConfig{
		Name:     CookieName,
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   int(tokenTTL.Seconds()),
	}
}

// Login checks the credentials through the read-through credential cache and
// returns a signed session token valid for 24 hours. Bad credentials come
// back as ErrUnauthorized with no detail about which part was wrong.
func (s *AuthService) Login(ctx context.Context, req model.AuthRequest) (string, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", asValidationError(err)
	}

	user, err := s.lookupUser(ctx, req.Email)
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", ErrUnauthorized
	}

	now := time.Now()
	claims := sessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Register creates an account. Registration can be switched off entirely, in
// which case every attempt fails with ErrForbidden.
func (s *AuthService) Register(ctx context.Context, req model.AuthRequest) (string, error) {
	if !s.allowSignup {
		return "", ErrForbidden
	}

	if err := s.validate.Struct(req); err != nil {
		return "", asValidationError(err)
	}

	// Duplicate check goes through the cache first to keep store reads down;
	// a store hit backfills the cache so the next attempt answers locally.
	if _, found := s.users.Lookup(req.Email); found {
		return "", ErrConflict
	}
	existing, err := s.store.GetUserByEmail(ctx, strings.ToLower(req.Email))
	if err == nil {
		s.users.Upsert(req.Email, *existing)
		return "", ErrConflict
	}
	if !db.IsNoRows(err) {
		return "", fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return "", ErrConflict
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	log.Printf("[Auth] Account created -> %s | %s", user.Email, user.ID)
	return user.ID, nil
}

// Logoff revokes the token and immediately deauthorizes every live connection
// holding it. Tokens that are missing or already revoked are a no-op, so the
// flow is idempotent.
func (s *AuthService) Logoff(token string) {
	if token == "" || s.ledger.IsRevoked(token) {
		return
	}

	s.sessions.DeauthorizeToken(token)
	expiry := tokenExpiry(token)
	s.ledger.Revoke(token, expiry)
	log.Printf("[Auth] Token revoked, expires %s", expiry.Format(time.RFC3339))
}

func (s *AuthService) lookupUser(ctx context.Context, email string) (model.User, error) {
	// The cache is keyed by the email as the client sent it; the store is
	// queried lowercase.
	if user, found := s.users.Lookup(email); found {
		return user, nil
	}

	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if db.IsNoRows(err) {
			return model.User{}, ErrUnauthorized
		}
		return model.User{}, fmt.Errorf("lookup user: %w", err)
	}

	s.users.Upsert(email, *user)
	return *user, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the token
// is being discarded, not trusted.
func tokenExpiry(token string) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return time.Now()
	}
	return claims.ExpiresAt.Time
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
