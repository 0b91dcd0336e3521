package echoauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	saascore "github.com/Symbiot01/saas-core"
)

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
				saascore.KindAuthentication, saascore.ErrorCodeTokenExpired, "token has expired", nil)},
			authHeader: "Bearer expired-token",
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
			e := echo.New()
			e.Use(Middleware(testCase.verifier))
			e.GET("/", func(c echo.Context) error {
				got, ok := GetIdentity(c, "")
				require.True(t, ok)
				assert.Equal(t, identity, got)

				fromCtx, ok := saascore.IdentityFromContext(c.Request().Context())
				require.True(t, ok)
				assert.Equal(t, identity, fromCtx)

				return c.NoContent(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if testCase.authHeader != "" {
				req.Header.Set("Authorization", testCase.authHeader)
			}
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)
			assert.Equal(t, testCase.wantStatus, rec.Code)
		})
	}
}

func TestMiddlewareOptions(t *testing.T) {
	t.Run("custom error handler", func(t *testing.T) {
		var handled error
		e := echo.New()
		e.Use(Middleware(
			&stubVerifier{err: saascore.NewError(
				saascore.KindAuthentication, saascore.ErrorCodeInvalidSignature, "token signature is invalid", nil)},
			WithErrorHandler(func(c echo.Context, err error) {
				handled = err
				_ = c.NoContent(http.StatusTeapot)
			}),
		))
		e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()

		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.ErrorIs(t, handled, saascore.ErrAuthentication)
	})

	t.Run("custom context key", func(t *testing.T) {
		identity := &saascore.Identity{UID: "u1"}
		e := echo.New()
		e.Use(Middleware(&stubVerifier{identity: identity}, WithContextKey("user")))
		e.GET("/", func(c echo.Context) error {
			got, ok := GetIdentity(c, "user")
			require.True(t, ok)
			assert.Equal(t, identity, got)
			return c.NoContent(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()

		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("custom token extractor", func(t *testing.T) {
		e := echo.New()
		e.Use(Middleware(
			&stubVerifier{identity: &saascore.Identity{UID: "u1"}},
			WithTokenExtractor(saascore.ParameterTokenExtractor("token")),
		))
		e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/?token=query-token", nil)
		rec := httptest.NewRecorder()

		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusForError(saascore.NewError(
		saascore.KindConfiguration, saascore.ErrorCodeConfigInvalid, "bad config", nil)))
	assert.Equal(t, http.StatusForbidden, StatusForError(saascore.NewError(
		saascore.KindEmailNotVerified, saascore.ErrorCodeEmailNotVerified, "email is not verified", nil)))
	assert.Equal(t, http.StatusUnauthorized, StatusForError(saascore.NewError(
		saascore.KindAuthentication, saascore.ErrorCodeTokenExpired, "token has expired", nil)))
}
