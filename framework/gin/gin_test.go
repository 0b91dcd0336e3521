package ginauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	saascore "github.com/Symbiot01/saas-core"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier struct {
	identity *saascore.Identity
	err      error
}

func (s *stubVerifier) Verify(ctx context.Context, rawToken string) (*saascore.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

func TestMiddleware(t *testing.T) {
	identity := &saascore.Identity{UID: "u1", Email: "a@b.com", EmailVerified: true}

	testCases := []struct {
		name       string
		verifier   saascore.Verifier
		authHeader string
		wantStatus int
	}{
		{
			name:       "valid token reaches the handler",
			verifier:   &stubVerifier{identity: identity},
			authHeader: "Bearer good-token",
			wantStatus: http.StatusOK,
		},
		{
			name: "authentication failure is 401",
			verifier: &stubVerifier{err: saascore.NewError(
				saascore.KindAuthentication, saascore.ErrorCodeInvalidSignature, "token signature is invalid", nil)},
			authHeader: "Bearer bad-token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "unverified email is 403",
			verifier: &stubVerifier{err: saascore.NewError(
				saascore.KindEmailNotVerified, saascore.ErrorCodeEmailNotVerified, "email is not verified", nil)},
			authHeader: "Bearer unverified-token",
			wantStatus: http.StatusForbidden,
		},
		{
			name: "configuration fault is 500",
			verifier: &stubVerifier{err: saascore.NewError(
				saascore.KindConfiguration, saascore.ErrorCodeConfigInvalid, "bad config", nil)},
			authHeader: "Bearer any-token",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "malformed header is 401",
			verifier:   &stubVerifier{identity: identity},
			authHeader: "not-a-bearer-header",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			router := gin.New()
			router.Use(Middleware(testCase.verifier))
			router.GET("/", func(c *gin.Context) {
				got, err := GetIdentity(c, "")
				require.NoError(t, err)
				assert.Equal(t, identity, got)

				fromCtx, ok := saascore.IdentityFromContext(c.Request.Context())
				require.True(t, ok)
				assert.Equal(t, identity, fromCtx)

				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if testCase.authHeader != "" {
				req.Header.Set("Authorization", testCase.authHeader)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)
			assert.Equal(t, testCase.wantStatus, rec.Code)
		})
	}
}

func TestGetIdentity(t *testing.T) {
	t.Run("missing identity", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())

		_, err := GetIdentity(c, "")
		assert.ErrorIs(t, err, ErrMissingIdentity)
	})

	t.Run("invalid identity type", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(DefaultIdentityKey, "not an identity")

		_, err := GetIdentity(c, "")
		assert.ErrorIs(t, err, ErrInvalidIdentity)
	})
}

func TestMiddlewareOptions(t *testing.T) {
	t.Run("custom error handler", func(t *testing.T) {
		var handled error
		router := gin.New()
		router.Use(Middleware(
			&stubVerifier{err: saascore.NewError(
				saascore.KindAuthentication, saascore.ErrorCodeTokenExpired, "token has expired", nil)},
			WithErrorHandler(func(c *gin.Context, err error) {
				handled = err
				c.AbortWithStatus(http.StatusTeapot)
			}),
		))
		router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer expired-token")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.ErrorIs(t, handled, saascore.ErrAuthentication)
	})

	t.Run("custom token extractor", func(t *testing.T) {
		router := gin.New()
		router.Use(Middleware(
			&stubVerifier{identity: &saascore.Identity{UID: "u1"}},
			WithTokenExtractor(saascore.ParameterTokenExtractor("token")),
		))
		router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/?token=query-token", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
