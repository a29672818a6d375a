package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/samia-tarot/samia-tarot-backend/api/responses"
	pkgerrors "github.com/samia-tarot/samia-tarot-backend/pkg/errors"
	"github.com/samia-tarot/samia-tarot-backend/pkg/logger"
)

// RateLimitStore exposes the fixed-window counter used for throttling.
type RateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// TransitionRateLimitPolicy defines the per-actor throttling parameters for
// order transition endpoints.
type TransitionRateLimitPolicy struct {
	window time.Duration
	limit  int64
}

// NewTransitionRateLimitPolicy builds a policy with the supplied window and limit.
func NewTransitionRateLimitPolicy(window time.Duration, limit int64) TransitionRateLimitPolicy {
	return TransitionRateLimitPolicy{window: window, limit: limit}
}

func (p TransitionRateLimitPolicy) enabled() bool {
	return p.window > 0 && p.limit > 0
}

var transitionSuffixes = []string{
	"/assign",
	"/submit-output",
	"/approve",
	"/reject",
	"/deliver",
	"/cancel",
}

func isTransitionPath(method, path string) bool {
	if method != http.MethodPost || !strings.HasPrefix(path, "/api/v1/orders/") {
		return false
	}
	for _, suffix := range transitionSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

// TransitionRateLimit enforces a per-actor fixed-window counter on order
// transition POSTs. Runs after Auth (the counter is scoped by user) and before
// Idempotency so replayed responses are never recorded as rate-limited.
func TransitionRateLimit(policy TransitionRateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !isTransitionPath(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			scope := "transitions:" + UserIDFromContext(ctx)
			allowed, count, err := store.FixedWindowAllow(ctx, scope, policy.limit, policy.window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"attempts":       count,
						"limit":          policy.limit,
						"window_seconds": int(policy.window.Seconds()),
					})
					logg.Warn(logCtx, "transition.rate_limit.blocked")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
