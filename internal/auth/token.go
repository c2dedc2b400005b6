package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// PersonalTokenPrefix identifies personal tokens
	PersonalTokenPrefix = "pt_"
	// personalTokenLength is the number of random bytes (256 bits)
	personalTokenLength = 32
)

// Claims are the JWT claims of session and OAuth access tokens
type Claims struct {
	Scope               string   `json:"scope"`
	Scopes              []string `json:"scopes,omitempty"`
	TwoFactorVerifiedAt int64    `json:"two_factor_verified_at,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid subject %q", c.Subject)
	}
	return id, nil
}

// IssueOptions tunes IssueToken
type IssueOptions struct {
	Kind                TokenKind
	Scopes              []string
	TwoFactorVerifiedAt *time.Time
	Expiration          time.Duration
}

// IssueToken signs an HS256 access token for userID
func IssueToken(secret []byte, userID int64, opts IssueOptions) (string, error) {
	if opts.Kind == "" {
		opts.Kind = TokenKindSession
	}
	if opts.Expiration == 0 {
		opts.Expiration = 24 * time.Hour
	}

	now := time.Now()
	claims := Claims{
		Scope:  string(opts.Kind),
		Scopes: opts.Scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(opts.Expiration)),
		},
	}
	if opts.TwoFactorVerifiedAt != nil {
		claims.TwoFactorVerifiedAt = opts.TwoFactorVerifiedAt.Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken validates signature and expiry and returns the claims. Tokens without an
// expiry are rejected.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Scope != string(TokenKindSession) && claims.Scope != string(TokenKindOAuth) {
		return nil, fmt.Errorf("unsupported token scope %q", claims.Scope)
	}
	return claims, nil
}

// GeneratePersonalToken creates a new personal token.
// Format: pt_<base64url(32 random bytes)>. Only the hash is meant to be stored.
func GeneratePersonalToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, personalTokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	token = PersonalTokenPrefix + base64.RawURLEncoding.EncodeToString(randomBytes)
	return token, HashPersonalToken(token), nil
}

// HashPersonalToken computes the SHA256 hash used for lookup
func HashPersonalToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidatePersonalTokenFormat checks prefix and encoding
func ValidatePersonalTokenFormat(token string) error {
	if !strings.HasPrefix(token, PersonalTokenPrefix) {
		return fmt.Errorf("token must start with %q", PersonalTokenPrefix)
	}

	encoded := strings.TrimPrefix(token, PersonalTokenPrefix)
	if encoded == "" {
		return fmt.Errorf("token is too short")
	}
	if _, err := base64.RawURLEncoding.DecodeString(encoded); err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}
	return nil
}
