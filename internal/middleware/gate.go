package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/nightbite/internal/model"
	"github.com/mmeshcher/nightbite/internal/profile"
)

// ProfileResolver находит анкету аутентифицированного пользователя.
type ProfileResolver interface {
	Resolve(ctx context.Context, p model.Principal) (*model.Profile, error)
}

type onboardingResponse struct {
	Error      string `json:"error"`
	Onboarding string `json:"onboarding"`
}

// RequireProfile пропускает только пользователей с заполненной анкетой.
// Без анкеты отвечает 428 и указывает, куда отправить форму.
func RequireProfile(resolver ProfileResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			prof, err := resolver.Resolve(r.Context(), p)
			switch {
			case err == nil:
			case errors.Is(err, profile.ErrOnboardingRequired):
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusPreconditionRequired)
				_ = json.NewEncoder(w).Encode(onboardingResponse{
					Error:      err.Error(),
					Onboarding: "/api/profile",
				})
				return
			case errors.Is(err, profile.ErrNotAuthenticated):
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			default:
				logger.Error("resolve profile error", zap.Error(err), zap.String("userID", p.ID))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), profileKey, prof)))
		})
	}
}

// RequireAdmin пропускает только администраторов. Ставится после RequireProfile.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prof, ok := GetProfileFromContext(r.Context())
		if !ok || !prof.IsAdmin {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetProfileFromContext извлекает анкету, найденную RequireProfile.
func GetProfileFromContext(ctx context.Context) (*model.Profile, bool) {
	p, ok := ctx.Value(profileKey).(*model.Profile)
	return p, ok && p != nil
}
