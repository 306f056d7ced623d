// actor.go — определение инициатора запроса для журнала аудита.
package middleware

import (
	"context"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/woo-publications/internal/api/errors"
	"github.com/bigkaa/woo-publications/internal/domain/model"
)

// Заголовки аудита.
const (
	HeaderAuditUserID         = "Audit-User-ID"
	HeaderAuditRepresentation = "Audit-User-Representation"
	HeaderAuditRemarks        = "Audit-Remarks"
)

type contextKey string

const (
	contextKeyActor  contextKey = "actor"
	contextKeyHolder contextKey = "actor_holder"
)

// actorHolder передаёт инициатора обратно в RequestLogger.
type actorHolder struct {
	actorID string
}

func withActorHolder(ctx context.Context, h *actorHolder) context.Context {
	return context.WithValue(ctx, contextKeyHolder, h)
}

// ActorFromContext возвращает инициатора, определённого ActorMiddleware.
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	a, ok := ctx.Value(contextKeyActor).(model.Actor)
	return a, ok
}

// WithActor помещает инициатора в контекст.
func WithActor(ctx context.Context, a model.Actor) context.Context {
	return context.WithValue(ctx, contextKeyActor, a)
}

// ActorMiddleware определяет инициатора запроса. С auth != nil — из
// Bearer-токена, иначе из заголовков Audit-User-ID и
// Audit-User-Representation. Audit-Remarks принимается в обоих режимах.
// Пути с префиксами из exclude пропускаются без проверки.
func ActorMiddleware(auth *JWTAuth, exclude ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range exclude {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			var actor model.Actor
			if auth != nil {
				a, err := auth.Authenticate(r)
				if err != nil {
					apierrors.Unauthorized(w, err.Error())
					return
				}
				actor = a
			} else {
				actor.ID = strings.TrimSpace(r.Header.Get(HeaderAuditUserID))
				if actor.ID == "" {
					apierrors.Unauthorized(w, "Отсутствует заголовок "+HeaderAuditUserID)
					return
				}
				actor.DisplayName = strings.TrimSpace(r.Header.Get(HeaderAuditRepresentation))
				if actor.DisplayName == "" {
					actor.DisplayName = actor.ID
				}
			}
			actor.Remarks = strings.TrimSpace(r.Header.Get(HeaderAuditRemarks))

			if h, ok := r.Context().Value(contextKeyHolder).(*actorHolder); ok {
				h.actorID = actor.ID
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
