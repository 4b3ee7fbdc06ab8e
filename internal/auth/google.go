package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"aniserve/internal/cache"
)

const (
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
	jwksCacheKey  = "google:jwks"
	jwksCacheTTL  = time.Hour
)

// FederatedClaims is the verified identity extracted from a provider token.
type FederatedClaims struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// TokenVerifier validates a federated identity token against the provider's
// published keys. Injected into the HTTP boundary so tests can substitute a
// fake.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*FederatedClaims, error)
}

type googleIDClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// GoogleVerifier validates Google ID tokens (RS256) against Google's JWKS,
// caching the key set between requests.
type GoogleVerifier struct {
	clientID   string
	httpClient *http.Client
	keys       *cache.Cache
	jwksURL    string
}

func NewGoogleVerifier(clientID string, timeout time.Duration, keys *cache.Cache) *GoogleVerifier {
	return &GoogleVerifier{
		clientID:   clientID,
		httpClient: &http.Client{Timeout: timeout},
		keys:       keys,
		jwksURL:    googleJWKSURL,
	}
}

// Verify parses and validates the ID token: RS256 signature against the
// published key for the token's kid, audience, expiry, issuer, and the
// verified-email claim.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*FederatedClaims, error) {
	claims := &googleIDClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return v.publicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, &AuthError{Message: "invalid google credential", Err: err}
	}
	if !parsed.Valid {
		return nil, &AuthError{Message: "invalid google credential"}
	}

	issuer, err := claims.GetIssuer()
	if err != nil || (issuer != "accounts.google.com" && issuer != "https://accounts.google.com") {
		return nil, &AuthError{Message: "invalid google credential", Err: fmt.Errorf("unexpected issuer %q", issuer)}
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, &AuthError{Message: "invalid google credential", Err: fmt.Errorf("missing subject or email claim")}
	}
	if !claims.EmailVerified {
		return nil, &AuthError{Message: "google account email is not verified"}
	}

	return &FederatedClaims{
		Sub:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}

func (v *GoogleVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	set, err := v.keySet(ctx)
	if err != nil {
		return nil, err
	}
	for _, key := range set.Keys {
		if key.Kid == kid && key.Kty == "RSA" {
			return rsaKeyFromJWK(key)
		}
	}
	return nil, fmt.Errorf("no key for kid %q", kid)
}

func (v *GoogleVerifier) keySet(ctx context.Context) (*jwks, error) {
	if cached := v.keys.Get(jwksCacheKey); cached != nil {
		if set, ok := cached.(*jwks); ok {
			return set, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building jwks request: %w", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching google jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching google jwks: status %d", resp.StatusCode)
	}

	var set jwks
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decoding google jwks: %w", err)
	}

	v.keys.Set(jwksCacheKey, &set, jwksCacheTTL)
	return &set, nil
}

func rsaKeyFromJWK(key jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
	if err != nil {
		return nil, fmt.Errorf("decoding jwk modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
	if err != nil {
		return nil, fmt.Errorf("decoding jwk exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
