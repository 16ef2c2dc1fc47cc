// Package identity verifies credentials and issues bearer session tokens.
//
// Passwords are stored as one-way bcrypt hashes; plaintext never leaves
// this package and is never logged. Tokens are stateless HS256 JWTs:
// minted on login, validated on every request, no server-side revocation.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/reminisce-ai/reminisce/internal/domain"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Config holds the token-minting parameters.
type Config struct {
	SigningKey      []byte        // HS256 secret
	TokenTTL        time.Duration // access token lifetime
	StartingCredits int64         // balance granted at registration
}

// DefaultConfig returns the production defaults (the signing key must
// still be supplied).
func DefaultConfig() Config {
	return Config{
		TokenTTL:        30 * time.Minute,
		StartingCredits: domain.DefaultStartingCredits,
	}
}

// Service implements domain.Identity on top of a LedgerStore.
type Service struct {
	store domain.LedgerStore
	cfg   Config
}

// New creates the identity service.
func New(store domain.LedgerStore, cfg Config) (*Service, error) {
	if store == nil {
		return nil, errors.New("identity: store is required")
	}
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("identity: signing key is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultConfig().TokenTTL
	}
	return &Service{store: store, cfg: cfg}, nil
}

// ─── Registration ───────────────────────────────────────────────────────────

// Register creates a new account with the configured starting balance.
func (s *Service) Register(username, password string) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.store.CreateAccount(username, string(hash), s.cfg.StartingCredits)
}

// ─── Authentication ─────────────────────────────────────────────────────────

// Authenticate checks the credentials and mints a session token.
// The error is uniform whether the username is absent or the password is
// wrong, so callers cannot enumerate accounts.
func (s *Service) Authenticate(username, password string) (string, error) {
	acc, err := s.store.GetAccount(username)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return "", domain.ErrInvalidCredentials
	}

	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"sub": acc.Username,
		"iat": now.Unix(),
		"exp": now.Add(s.cfg.TokenTTL).Unix(),
		"jti": uuid.New().String(),
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ─── Resolution ─────────────────────────────────────────────────────────────

// Resolve validates a bearer token and returns the account it binds to.
// Signature and expiry are verified before any embedded claim is trusted.
func (s *Service) Resolve(rawToken string) (*domain.Account, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, domain.ErrUnauthorized
	}

	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(func() time.Time { return NowTimeFunc() }),
		jwtlib.WithExpirationRequired(),
	)
	token, err := parser.Parse(rawToken, func(t *jwtlib.Token) (interface{}, error) {
		return s.cfg.SigningKey, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, domain.ErrUnauthorized
	}

	acc, err := s.store.GetAccount(sub)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return acc, nil
}

var _ domain.Identity = (*Service)(nil)
