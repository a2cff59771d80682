package identity

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Common errors returned by session verification.
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrMissingClaims    = errors.New("missing required claims")
	ErrInvalidSignature = errors.New("invalid token signature")
)

// Session is a verified signed-in session.
type Session struct {
	Subject   string
	SessionID string
	Email     string
	ExpiresAt time.Time
	// Token is the raw credential, forwarded to the backend as the bearer token.
	Token string
}

// VerifierConfig selects how session tokens are checked. Exactly one of
// Secret and PublicKeyPEM should be set.
type VerifierConfig struct {
	Secret       []byte
	PublicKeyPEM []byte
	Issuer       string
}

// Verifier validates session tokens issued by the identity provider.
type Verifier struct {
	hmacKey []byte
	rsaKey  *rsa.PublicKey
	issuer  string
	logger  *slog.Logger
}

// NewVerifier creates a Verifier. A PEM public key selects RS256, otherwise HS256.
func NewVerifier(cfg VerifierConfig, logger *slog.Logger) (*Verifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Verifier{issuer: cfg.Issuer, logger: logger}

	switch {
	case len(cfg.PublicKeyPEM) > 0:
		key, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("parsing identity public key: %w", err)
		}
		v.rsaKey = key
	case len(cfg.Secret) > 0:
		v.hmacKey = cfg.Secret
	default:
		return nil, errors.New("identity verifier needs a secret or a public key")
	}
	return v, nil
}

func (v *Verifier) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA:
		if v.rsaKey != nil {
			return v.rsaKey, nil
		}
	case *jwt.SigningMethodHMAC:
		if v.hmacKey != nil {
			return v.hmacKey, nil
		}
	}
	return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
}

// Verify validates tokenString and returns the session it describes.
func (v *Verifier) Verify(tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.Parse(tokenString, v.keyFunc, opts...)
	if err != nil {
		v.logger.Debug("session token rejected", "error", err)
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		return nil, ErrMissingClaims
	}
	exp, _ := claims.GetExpirationTime()

	session := &Session{
		Subject: sub,
		Token:   tokenString,
	}
	if exp != nil {
		session.ExpiresAt = exp.Time
	}
	if sid, ok := claims["sid"].(string); ok {
		session.SessionID = sid
	}
	if email, ok := claims["email"].(string); ok {
		session.Email = email
	}
	return session, nil
}

// Issuer signs HS256 session tokens for local development and tests.
type Issuer struct {
	secret []byte
	issuer string
	expiry time.Duration
}

// NewIssuer creates an Issuer. The secret must be the one the Verifier uses.
func NewIssuer(secret []byte, issuer string, expiry time.Duration) *Issuer {
	return &Issuer{secret: secret, issuer: issuer, expiry: expiry}
}

// Issue creates a signed session token for subject.
func (i *Issuer) Issue(subject, email, sessionID string) (string, error) {
	if subject == "" {
		return "", ErrMissingClaims
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(i.expiry).Unix(),
	}
	if email != "" {
		claims["email"] = email
	}
	if sessionID != "" {
		claims["sid"] = sessionID
	}
	if i.issuer != "" {
		claims["iss"] = i.issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
