package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/mmeshcher/nightbite/internal/model"
	"github.com/mmeshcher/nightbite/internal/profile"
)

type stubResolver struct {
	prof *model.Profile
	err  error
}

func (s *stubResolver) Resolve(ctx context.Context, p model.Principal) (*model.Profile, error) {
	return s.prof, s.err
}

func TestRequireProfileAndAdmin(t *testing.T) {
	customer := &model.Profile{ID: "u1", FullName: "Night Owl"}
	admin := &model.Profile{ID: "a1", FullName: "Kitchen", IsAdmin: true}

	tests := []struct {
		name      string
		principal *model.Principal
		resolver  *stubResolver
		admin     bool
		want      int
	}{
		{
			name:     "no principal",
			resolver: &stubResolver{prof: customer},
			want:     http.StatusUnauthorized,
		},
		{
			name:      "onboarding required",
			principal: &model.Principal{ID: "u1", SignedIn: true},
			resolver:  &stubResolver{err: profile.ErrOnboardingRequired},
			want:      http.StatusPreconditionRequired,
		},
		{
			name:      "backend error",
			principal: &model.Principal{ID: "u1", SignedIn: true},
			resolver:  &stubResolver{err: errors.New("db down")},
			want:      http.StatusInternalServerError,
		},
		{
			name:      "customer passes profile gate",
			principal: &model.Principal{ID: "u1", SignedIn: true},
			resolver:  &stubResolver{prof: customer},
			want:      http.StatusOK,
		},
		{
			name:      "customer blocked by admin gate",
			principal: &model.Principal{ID: "u1", SignedIn: true},
			resolver:  &stubResolver{prof: customer},
			admin:     true,
			want:      http.StatusForbidden,
		},
		{
			name:      "admin passes admin gate",
			principal: &model.Principal{ID: "a1", SignedIn: true},
			resolver:  &stubResolver{prof: admin},
			admin:     true,
			want:      http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var next http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, ok := GetProfileFromContext(r.Context())
				assert.True(t, ok)
				w.WriteHeader(http.StatusOK)
			})
			if tt.admin {
				next = RequireAdmin(next)
			}
			h := RequireProfile(tt.resolver, zap.NewNop())(next)

			r := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
			if tt.principal != nil {
				r = r.WithContext(WithPrincipal(r.Context(), *tt.principal))
			}
			w := httptest.NewRecorder()

			h.ServeHTTP(w, r)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusPreconditionRequired {
				assert.Contains(t, w.Body.String(), "/api/profile")
			}
		})
	}
}
