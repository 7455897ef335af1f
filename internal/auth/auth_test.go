package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func mint(t *testing.T, method jwt.SigningMethod, secret string, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func adminClaims(ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "ops",
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestJWT_Verify(t *testing.T) {
	j := JWT{Secret: []byte("s3cret")}
	tok := mint(t, jwt.SigningMethodHS256, "s3cret", adminClaims(time.Minute))

	claims, err := j.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, claims.Role)
	require.Equal(t, "ops", claims.Issuer)

	_, err = JWT{Secret: []byte("other")}.Verify(tok)
	require.Error(t, err)
}

func TestJWT_RejectsExpired(t *testing.T) {
	j := JWT{Secret: []byte("s3cret")}
	tok := mint(t, jwt.SigningMethodHS256, "s3cret", adminClaims(-time.Second))
	_, err := j.Verify(tok)
	require.Error(t, err)
}

func TestJWT_RejectsOtherSigningMethod(t *testing.T) {
	j := JWT{Secret: []byte("s3cret")}
	tok := mint(t, jwt.SigningMethodHS512, "s3cret", adminClaims(time.Minute))
	_, err := j.Verify(tok)
	require.Error(t, err)
}

func TestJWT_EmptySecret(t *testing.T) {
	_, err := JWT{}.Verify("anything")
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	j := JWT{Secret: []byte("s3cret")}
	admin := mint(t, jwt.SigningMethodHS256, "s3cret", adminClaims(time.Minute))
	viewerClaims := adminClaims(time.Minute)
	viewerClaims.Role = "viewer"
	viewer := mint(t, jwt.SigningMethodHS256, "s3cret", viewerClaims)

	r := gin.New()
	r.GET("/admin", Middleware(j, RoleAdmin), func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Role)
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token " + admin, http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer " + viewer, http.StatusForbidden},
		{"admin", "bearer " + admin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, tc.status, w.Code)
		})
	}
}
