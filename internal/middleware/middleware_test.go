package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vet-clinic-records/internal/platform/metrics"
	"vet-clinic-records/internal/ports/auth"
)

type fakeVerifier struct {
	claims auth.Claims
	err    error
	got    string
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (auth.Claims, error) {
	f.got = token
	return f.claims, f.err
}

func claimsEcho(t *testing.T, seen *auth.Claims, ok *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, *ok = GetClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID_GeneratesAndKeeps(t *testing.T) {
	var inCtx string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inCtx = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, inCtx)
	assert.Equal(t, inCtx, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", inCtx)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Len(t, inCtx, 36)
}

func TestAuthContext_DevHeaders(t *testing.T) {
	var (
		seen auth.Claims
		ok   bool
	)
	h := AuthContext(nil, nil)(claimsEcho(t, &seen, &ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Debug-User-ID", "vet-1")
	req.Header.Set("X-Debug-Role", "vet")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, ok)
	assert.Equal(t, auth.Claims{UserID: "vet-1", Role: "vet"}, seen)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}

func TestAuthContext_Bearer(t *testing.T) {
	var (
		seen auth.Claims
		ok   bool
	)
	v := &fakeVerifier{claims: auth.Claims{UserID: "u-7"}}
	h := AuthContext(v, nil)(claimsEcho(t, &seen, &ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer tok-1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, ok)
	assert.Equal(t, "tok-1", v.got)
	assert.Equal(t, "u-7", seen.UserID)

	// debug header ignorado con verifier
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Debug-User-ID", "vet-1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, ok)

	v.err = errors.New("bad token")
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-2")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, ok)
}

func TestRequireStaff(t *testing.T) {
	h := RequireStaff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), auth.Claims{UserID: "vet-1"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	h := CORS([]string{"https://clinic.example"})(ok)
	req := httptest.NewRequest(http.MethodGet, "/owners", nil)
	req.Header.Set("Origin", "https://clinic.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://clinic.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/owners", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	// sin orígenes no hay headers
	rec = httptest.NewRecorder()
	CORS(nil)(ok).ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMaxBodySize(t *testing.T) {
	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	h := MaxBodySize(100)(readAll)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/owners", strings.NewReader(strings.Repeat("x", 50))))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Content-Length declarado: se corta antes del handler
	req := httptest.NewRequest(http.MethodPost, "/owners", strings.NewReader(strings.Repeat("x", 200)))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "too large")

	// sin Content-Length: falla la lectura
	req = httptest.NewRequest(http.MethodPost, "/owners", strings.NewReader(strings.Repeat("x", 200)))
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRequestLogger_UnmatchedRouteLabel(t *testing.T) {
	r := chi.NewRouter()
	r.Use(RequestLogger(nil))
	r.Get("/pets/{petID}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	for _, path := range []string{"/nope-0", "/nope-1", "/pets/7"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	// DeleteLabelValues informa si la serie existía
	assert.True(t, metrics.HTTPRequestsTotal.DeleteLabelValues("GET", unmatchedRoute, "404"))
	assert.True(t, metrics.HTTPRequestsTotal.DeleteLabelValues("GET", "/pets/{petID}", "200"))
	assert.False(t, metrics.HTTPRequestsTotal.DeleteLabelValues("GET", "/nope-0", "404"))
	assert.False(t, metrics.HTTPRequestsTotal.DeleteLabelValues("GET", "/nope-1", "404"))
}
