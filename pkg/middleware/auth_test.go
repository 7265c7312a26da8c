package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/QuaichGo/pkg/httputil"
	"github.com/utafrali/QuaichGo/pkg/logger"
)

func staticValidator(tokens map[string]*Claims) TokenValidator {
	return func(token string) (*Claims, error) {
		if c, ok := tokens[token]; ok {
			return c, nil
		}
		return nil, errors.New("token rejected")
	}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestAuth(t *testing.T) {
	validate := staticValidator(map[string]*Claims{
		"good":     {MemberID: "member-1", Role: "USER"},
		"no-owner": {Role: "USER"},
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"rejected token", "Bearer forged", http.StatusUnauthorized},
		{"token without member", "Bearer no-owner", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
		{"scheme is case insensitive", "bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotMember, gotRole, gotLogMember string
			handler := Auth(validate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMember = MemberIDFromContext(r.Context())
				gotRole = RoleFromContext(r.Context())
				gotLogMember = logger.MemberIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/meetings", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "member-1", gotMember)
				assert.Equal(t, "USER", gotRole)
				assert.Equal(t, "member-1", gotLogMember)
			} else {
				assert.Equal(t, "UNAUTHORIZED", decodeError(t, rr).Code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole("ADMIN")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("admin passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/meetings", nil)
		req = req.WithContext(WithClaims(req.Context(), &Claims{MemberID: "a", Role: "ADMIN"}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("user is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/meetings", nil)
		req = req.WithContext(WithClaims(req.Context(), &Claims{MemberID: "u", Role: "USER"}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, "FORBIDDEN", decodeError(t, rr).Code)
	})

	t.Run("anonymous is forbidden", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/meetings", nil))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}
