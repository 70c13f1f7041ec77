// AngelaMos | 2026
// jwt.go

package auth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/fortune-api/internal/config"
	"github.com/carterperez-dev/fortune-api/internal/core"
	"github.com/carterperez-dev/fortune-api/internal/middleware"
)

const (
	sessionTokenType = "admin_session"

	claimType         = "session_type"
	claimUsername     = "username"
	claimTokenVersion = "token_version"
)

// JWTManager signs admin session cookies with an ES256 key loaded from disk.
// The key id is the key's SHA-256 thumbprint, so it is stable across restarts.
type JWTManager struct {
	signing jwk.Key
	verify  jwk.Key
	jwks    jwk.Set
	cfg     config.JWTConfig
}

func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	raw, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}

	signing, err := jwk.ParseKey(raw, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}

	if err := labelKey(signing); err != nil {
		return nil, err
	}

	verify, err := signing.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive verification key: %w", err)
	}
	if err := verify.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("label verification key: %w", err)
	}

	jwks := jwk.NewSet()
	if err := jwks.AddKey(verify); err != nil {
		return nil, fmt.Errorf("build jwks: %w", err)
	}

	return &JWTManager{
		signing: signing,
		verify:  verify,
		jwks:    jwks,
		cfg:     cfg,
	}, nil
}

func labelKey(key jwk.Key) error {
	thumb, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return fmt.Errorf("thumbprint key: %w", err)
	}

	if err := key.Set(jwk.KeyIDKey, base64.RawURLEncoding.EncodeToString(thumb)[:16]); err != nil {
		return fmt.Errorf("set key id: %w", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return fmt.Errorf("set key algorithm: %w", err)
	}
	return nil
}

// GenerateKeyPair writes a fresh P-256 key pair as PEM. The private key is
// readable by the owner only.
func GenerateKeyPair(privateKeyPath, publicKeyPath string) error {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	private, err := jwk.Import(ecKey)
	if err != nil {
		return fmt.Errorf("import key: %w", err)
	}
	public, err := private.PublicKey()
	if err != nil {
		return fmt.Errorf("derive public key: %w", err)
	}

	files := []struct {
		path string
		key  jwk.Key
		mode os.FileMode
	}{
		{privateKeyPath, private, 0o600},
		{publicKeyPath, public, 0o644},
	}

	for _, f := range files {
		pem, err := jwk.Pem(f.key)
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.path, err)
		}
		//nolint:gosec // G306: the public half is meant to be readable
		if err := os.WriteFile(f.path, pem, f.mode); err != nil {
			return fmt.Errorf("write %s: %w", f.path, err)
		}
	}

	return nil
}

type SessionClaims struct {
	AdminID      string
	Username     string
	TokenVersion int
}

// CreateSessionToken returns the signed token with its jti and expiry so the
// caller can set the cookie and revoke it later.
func (m *JWTManager) CreateSessionToken(
	claims SessionClaims,
) (string, string, time.Time, error) {
	now := time.Now()
	jti := uuid.NewString()
	expiresAt := now.Add(m.cfg.AccessTokenExpire)

	token, err := jwt.NewBuilder().
		JwtID(jti).
		Issuer(m.cfg.Issuer).
		Audience([]string{m.cfg.Audience}).
		Subject(claims.AdminID).
		IssuedAt(now).
		NotBefore(now).
		Expiration(expiresAt).
		Claim(claimType, sessionTokenType).
		Claim(claimUsername, claims.Username).
		Claim(claimTokenVersion, claims.TokenVersion).
		Build()
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("build session token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), m.signing))
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}

	return string(signed), jti, expiresAt, nil
}

var errMissingClaim = errors.New("missing claim")

func (m *JWTManager) VerifySessionToken(raw string) (*middleware.AdminClaims, error) {
	token, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(jwa.ES256(), m.verify),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithAudience(m.cfg.Audience),
	)
	if err != nil {
		if isExpired(err) {
			return nil, fmt.Errorf("verify session: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify session: %w", core.ErrTokenInvalid)
	}

	claims, err := sessionClaims(token)
	if err != nil {
		return nil, fmt.Errorf("verify session: %w: %w", core.ErrTokenInvalid, err)
	}
	return claims, nil
}

func sessionClaims(token jwt.Token) (*middleware.AdminClaims, error) {
	var typ, username string
	var version float64

	if err := token.Get(claimType, &typ); err != nil || typ != sessionTokenType {
		return nil, fmt.Errorf("%w: %s", errMissingClaim, claimType)
	}
	if err := token.Get(claimUsername, &username); err != nil {
		return nil, fmt.Errorf("%w: %s", errMissingClaim, claimUsername)
	}
	if err := token.Get(claimTokenVersion, &version); err != nil {
		return nil, fmt.Errorf("%w: %s", errMissingClaim, claimTokenVersion)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf("%w: sub", errMissingClaim)
	}
	jti, ok := token.JwtID()
	if !ok || jti == "" {
		return nil, fmt.Errorf("%w: jti", errMissingClaim)
	}
	expiresAt, _ := token.Expiration()

	return &middleware.AdminClaims{
		AdminID:      subject,
		Username:     username,
		TokenVersion: int(version),
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func isExpired(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "token is expired") ||
		(strings.Contains(msg, `"exp"`) && strings.Contains(msg, "not satisfied"))
}

func (m *JWTManager) JWKSHandler() http.HandlerFunc {
	body, err := json.Marshal(m.jwks)

	return func(w http.ResponseWriter, _ *http.Request) {
		if err != nil {
			core.InternalServerError(w, fmt.Errorf("encode jwks: %w", err))
			return
		}
		w.Header().Set("Content-Type", "application/jwk-set+json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(body) //nolint:errcheck // client went away
	}
}
