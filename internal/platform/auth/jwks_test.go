package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func jwksServer(t *testing.T, kid string, pub *rsa.PublicKey, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		json.NewEncoder(w).Encode(JWKSResponse{Keys: []JWKSKey{
			{Kty: "EC", Kid: "ignored"},
			{
				Kty: "RSA",
				Kid: kid,
				Alg: "RS256",
				Use: "sig",
				N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		}})
	}))
}

func TestJWKSCache_ValidatesRS256Token(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var hits int32
	srv := jwksServer(t, "k1", &priv.PublicKey, &hits)
	defer srv.Close()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims("doc-rsa", RoleDoctor))
	token.Header["kid"] = "k1"
	signed, err := token.SignedString(priv)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	mw := JWTMiddleware(JWTConfig{JWKSURL: srv.URL})
	for i := 0; i < 3; i++ {
		err := runMiddleware(t, mw, "Bearer "+signed, func(c echo.Context) error {
			if uid := UserIDFromContext(c.Request().Context()); uid != "doc-rsa" {
				t.Errorf("expected doc-rsa, got %s", uid)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i+1, err)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected the key set to be fetched once, got %d", got)
	}
}

func TestJWKSCache_UnknownKid(t *testing.T) {
	priv, _ := rsa.GenerateKey(rand.Reader, 2048)
	var hits int32
	srv := jwksServer(t, "k1", &priv.PublicKey, &hits)
	defer srv.Close()

	cache := NewJWKSCache(srv.URL, time.Minute)
	if _, err := cache.GetKey("k2"); err == nil {
		t.Error("expected error for unknown kid")
	}
}

func TestJWKSCache_RejectsHMACToken(t *testing.T) {
	cache := NewJWKSCache("http://127.0.0.1:0", time.Minute)
	tok := jwt.New(jwt.SigningMethodHS256)
	if _, err := cache.Keyfunc(tok); err == nil {
		t.Error("expected HS256 token to be rejected by the JWKS keyfunc")
	}
}

func TestParseRSAPublicKey_BadEncoding(t *testing.T) {
	if _, err := parseRSAPublicKey(JWKSKey{N: "!!", E: "AQAB"}); err == nil {
		t.Error("expected modulus decode error")
	}
	if _, err := parseRSAPublicKey(JWKSKey{N: "AQAB", E: "!!"}); err == nil {
		t.Error("expected exponent decode error")
	}
}

func TestJWKSCache_UnknownKidDoesNotRefetchImmediately(t *testing.T) {
	priv, _ := rsa.GenerateKey(rand.Reader, 2048)
	var hits int32
	srv := jwksServer(t, "k1", &priv.PublicKey, &hits)
	defer srv.Close()

	cache := NewJWKSCache(srv.URL, time.Minute)
	for i := 0; i < 3; i++ {
		if _, err := cache.GetKey("rotated"); err == nil {
			t.Fatal("expected error for unknown kid")
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected one fetch, got %d", got)
	}
	if _, err := cache.GetKey("k1"); err != nil {
		t.Errorf("known kid: %v", err)
	}
}
