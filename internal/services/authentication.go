package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/config"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/repositories"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrJWTDisabled        = errors.New("jwt authentication is not configured")
)

// APITokenPrefix starts every caller API token
const APITokenPrefix = "atk_"

const (
	tokenPrefixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	tokenPrefixLength   = 12
	tokenSecretLength   = 32
)

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// authenticationService implements AuthenticationService
type authenticationService struct {
	logger    *logger.Logger
	tokenRepo repositories.APITokenRepository
	jwtSecret []byte
	issuer    string
	tokenTTL  time.Duration
}

// NewAuthenticationService creates a new caller authentication service
func NewAuthenticationService(
	cfg *config.Config,
	logger *logger.Logger,
	tokenRepo repositories.APITokenRepository,
) AuthenticationService {
	ttl := time.Duration(cfg.Auth.TokenTTL) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &authenticationService{
		logger:    logger,
		tokenRepo: tokenRepo,
		jwtSecret: []byte(cfg.Auth.JWTSecret),
		issuer:    cfg.Auth.JWTIssuer,
		tokenTTL:  ttl,
	}
}

// Authenticate verifies a caller credential, either an API token or a JWT
func (s *authenticationService) Authenticate(ctx context.Context, credential string) (*models.Caller, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrInvalidCredentials
	}
	if strings.HasPrefix(credential, APITokenPrefix) {
		return s.ValidateAPIToken(ctx, credential)
	}
	return s.ValidateJWT(ctx, credential)
}

// ValidateAPIToken checks an "atk_<prefix>.<secret>" token against its stored bcrypt hash
func (s *authenticationService) ValidateAPIToken(ctx context.Context, token string) (*models.Caller, error) {
	prefix, secret, ok := ParseAPIToken(token)
	if !ok {
		return nil, ErrInvalidCredentials
	}

	record, err := s.tokenRepo.GetByPrefix(ctx, prefix)
	if err != nil {
		s.logger.WithError(err).Error("Failed to look up API token")
		return nil, err
	}
	if record == nil || !record.IsActive {
		s.logger.WithField("token_prefix", prefix).Warn("Unknown or inactive API token")
		return nil, ErrInvalidCredentials
	}
	if record.IsExpired(time.Now()) {
		return nil, ErrTokenExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.SecretHash), []byte(secret)); err != nil {
		s.logger.WithField("token_prefix", prefix).Warn("Invalid API token secret")
		return nil, ErrInvalidCredentials
	}

	if err := s.tokenRepo.TouchLastUsed(ctx, record.ID); err != nil {
		s.logger.WithError(err).Warn("Failed to record API token use")
	}

	return &models.Caller{ID: record.Subject, Name: record.Name, Method: models.AuthMethodAPIToken}, nil
}

// IssueAPIToken creates a token for subject and returns its plaintext form once
func (s *authenticationService) IssueAPIToken(ctx context.Context, name, subject string, expiresIn time.Duration) (string, *models.APIToken, error) {
	prefix, err := gonanoid.Generate(tokenPrefixAlphabet, tokenPrefixLength)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token prefix: %w", err)
	}
	secret, err := gonanoid.New(tokenSecretLength)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token secret: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash token secret: %w", err)
	}

	record := &models.APIToken{
		Name:       name,
		Prefix:     prefix,
		SecretHash: string(hash),
		Subject:    subject,
		IsActive:   true,
	}
	if expiresIn > 0 {
		expiresAt := time.Now().Add(expiresIn)
		record.ExpiresAt = &expiresAt
	}

	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return "", nil, err
	}

	s.logger.WithField("token_prefix", prefix).WithField("subject", subject).Info("API token issued")
	return APITokenPrefix + prefix + "." + secret, record, nil
}

// GenerateJWT signs an HS256 token for subject
func (s *authenticationService) GenerateJWT(ctx context.Context, subject, name string) (string, error) {
	if len(s.jwtSecret) == 0 {
		return "", ErrJWTDisabled
	}

	now := time.Now()
	claims := JWTClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		s.logger.WithField("subject", subject).WithError(err).Error("Failed to sign JWT token")
		return "", err
	}
	return tokenString, nil
}

// ValidateJWT validates a JWT and returns the caller named by its subject
func (s *authenticationService) ValidateJWT(ctx context.Context, tokenString string) (*models.Caller, error) {
	if len(s.jwtSecret) == 0 {
		return nil, ErrJWTDisabled
	}
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		options = append(options, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		s.logger.WithError(err).Warn("Failed to parse JWT token")
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &models.Caller{ID: claims.Subject, Name: claims.Name, Method: models.AuthMethodJWT}, nil
}

// ParseAPIToken splits "atk_<prefix>.<secret>" into its parts
func ParseAPIToken(token string) (prefix, secret string, ok bool) {
	if !strings.HasPrefix(token, APITokenPrefix) {
		return "", "", false
	}
	prefix, secret, ok = strings.Cut(strings.TrimPrefix(token, APITokenPrefix), ".")
	if !ok || prefix == "" || secret == "" {
		return "", "", false
	}
	return prefix, secret, true
}

// ExtractCredential picks the caller credential from the three accepted header forms:
// X-API-Key, Authorization: Bearer and api-key.
func ExtractCredential(apiKeyHeader, authorization, genericKey string) string {
	if v := strings.TrimSpace(apiKeyHeader); v != "" {
		return v
	}
	const bearer = "Bearer "
	if len(authorization) > len(bearer) && strings.EqualFold(authorization[:len(bearer)], bearer) {
		return strings.TrimSpace(authorization[len(bearer):])
	}
	return strings.TrimSpace(genericKey)
}
