package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers every reason a token is rejected.
	ErrInvalidToken = errors.New("invalid token")

	ErrMissingSecret        = errors.New("token signing secret must not be empty")
	ErrUnsupportedAlgorithm = errors.New("unsupported token signing algorithm")
)

// DefaultTokenTTL is used when TokenConfig.TTL is zero.
const DefaultTokenTTL = 30 * time.Minute

// TokenConfig is the process-wide signing configuration.
type TokenConfig struct {
	Secret    []byte
	Algorithm string // HS256, HS384 or HS512
	TTL       time.Duration
	Issuer    string
}

// TokenService issues and validates HMAC-signed access tokens whose subject
// is a user id.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenService validates cfg and returns a TokenService.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: cfg.Secret,
		method: method,
		ttl:    ttl,
		issuer: cfg.Issuer,
		now:    time.Now,
	}, nil
}

// Issue creates a signed token for subjectID expiring after the configured TTL.
func (s *TokenService) Issue(subjectID int64) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(subjectID, 10),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
}

// Validate checks signature, algorithm, expiry and subject and returns the subject id.
func (s *TokenService) Validate(tokenStr string) (int64, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}

	if claims.Subject == "" {
		return 0, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return id, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration { return s.ttl }
