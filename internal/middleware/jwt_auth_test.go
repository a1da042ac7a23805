package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"venuepermits/internal/models"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func serve(t *testing.T, header string) (*httptest.ResponseRecorder, *models.Role) {
	t.Helper()
	var seen *models.Role
	h := JWTAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			t.Fatalf("principal missing from context")
		}
		seen = &p.Role
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w, seen
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	token := sign(t, "secret", jwt.MapClaims{
		"sub":  "u1",
		"role": "VENUE_MANAGER",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	w, role := serve(t, "Bearer "+token)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d (%s)", w.Code, w.Body.String())
	}
	if role == nil || *role != models.RoleVenueManager {
		t.Fatalf("unexpected role %v", role)
	}
}

func TestJWTAuthRejects(t *testing.T) {
	future := time.Now().Add(time.Hour).Unix()
	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"bad signature":  "Bearer " + sign(t, "other", jwt.MapClaims{"sub": "u1", "role": "ORGANIZER", "exp": future}),
		"expired":        "Bearer " + sign(t, "secret", jwt.MapClaims{"sub": "u1", "role": "ORGANIZER", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no subject":     "Bearer " + sign(t, "secret", jwt.MapClaims{"role": "ORGANIZER", "exp": future}),
		"unknown role":   "Bearer " + sign(t, "secret", jwt.MapClaims{"sub": "u1", "role": "ADMIN", "exp": future}),
	}
	for name, header := range cases {
		w, _ := serve(t, header)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", name, w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("%s: expected json body, got %q", name, ct)
		}
	}
}
