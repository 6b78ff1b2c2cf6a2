package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": ok, "user_id": id.UserID, "is_staff": id.IsStaff})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIssueAndParse(t *testing.T) {
	auth := NewAuthenticator("secret")

	token, err := auth.Issue(7, true, time.Hour)
	require.NoError(t, err)

	claims, err := auth.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.True(t, claims.IsStaff)

	_, err = NewAuthenticator("other").Parse(token)
	assert.Error(t, err)

	zero, err := auth.Issue(0, false, time.Hour)
	require.NoError(t, err)
	_, err = auth.Parse(zero)
	assert.Error(t, err)
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	auth := NewAuthenticator("secret")

	claims := Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = auth.Parse(hs512)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.Parse(none)
	assert.Error(t, err)
}

func TestRequired(t *testing.T) {
	auth := NewAuthenticator("secret")
	h := auth.Required(http.HandlerFunc(echoIdentity))
	token, err := auth.Issue(3, false, time.Hour)
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := serve(h, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true,"user_id":3,"is_staff":false}`, rec.Body.String())
	})

	t.Run("query fallback", func(t *testing.T) {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/?token="+token, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("header wins over query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
		req.Header.Set("Authorization", "Basic abc")
		rec := serve(h, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := serve(h, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOptional(t *testing.T) {
	auth := NewAuthenticator("secret")
	h := auth.Optional(http.HandlerFunc(echoIdentity))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"ok":false,"user_id":0,"is_staff":false}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer broken")
	rec = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":false,"user_id":0,"is_staff":false}`, rec.Body.String())
}

func TestRequireStaff(t *testing.T) {
	auth := NewAuthenticator("secret")
	h := auth.Required(RequireStaff(http.HandlerFunc(echoIdentity)))

	for _, tt := range []struct {
		name  string
		staff bool
		want  int
	}{
		{"customer", false, http.StatusForbidden},
		{"staff", true, http.StatusOK},
	} {
		t.Run(tt.name, func(t *testing.T) {
			token, err := auth.Issue(1, tt.staff, time.Hour)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			assert.Equal(t, tt.want, serve(h, req).Code)
		})
	}

	rec := serve(RequireStaff(http.HandlerFunc(echoIdentity)), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := chimw.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		LoggerFrom(r.Context()).Info("inside")
		w.WriteHeader(http.StatusTeapot)
	})))
	serve(h, httptest.NewRequest(http.MethodGet, "/brew", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var inside, done map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &inside))
	require.NoError(t, json.Unmarshal(lines[1], &done))

	assert.NotEmpty(t, inside["request_id"])
	assert.Equal(t, inside["request_id"], done["request_id"])
	assert.Equal(t, "request completed", done["msg"])
	assert.Equal(t, "WARN", done["level"])
	assert.Equal(t, float64(http.StatusTeapot), done["status"])
	assert.Equal(t, "/brew", done["path"])
}

func TestLoggerFromDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Same(t, slog.Default(), LoggerFrom(req.Context()))
}
