// Package middleware binds the admission filter to HTTP: identity extraction
// on the way in, status code mapping on the way out.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"edgegate/internal/admission"
	"edgegate/metrics"
)

// AdmissionMiddleware gates a handler behind an admission filter.
type AdmissionMiddleware struct {
	filter  admission.Filter
	metrics *metrics.AdmissionMetrics
	name    string
}

// NewAdmissionMiddleware creates an AdmissionMiddleware. The name labels log
// lines and metrics for this filter instance.
func NewAdmissionMiddleware(filter admission.Filter, m *metrics.AdmissionMetrics, name string) *AdmissionMiddleware {
	return &AdmissionMiddleware{
		filter:  filter,
		metrics: m,
		name:    name,
	}
}

// Handle wraps next with admission control. identityFn extracts the client
// identity; an empty identity is answered with 400 before any store access.
func (m *AdmissionMiddleware) Handle(next http.HandlerFunc, identityFn IdentityFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := identityFn(r)

		decision, err := m.filter.Decide(r.Context(), identity)
		if err != nil {
			log.Error().Err(err).Str("filter", m.name).Str("identity", identity).Msg("Counter store failure during admission")
			m.metrics.RecordStoreError(m.name)
		}
		m.metrics.RecordDecision(m.name, decision)

		if decision.Outcome == admission.Forward {
			next.ServeHTTP(w, r)
			return
		}

		switch decision.Reason {
		case admission.ReasonMissingIdentity:
			http.Error(w, "missing client address", http.StatusBadRequest)
		case admission.ReasonRateLimited:
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			log.Info().Str("filter", m.name).Str("identity", identity).Int64("count", decision.Count).Msg("Request rate limited")
		default:
			// Store failure under the fail-closed policy.
			http.Error(w, "admission check unavailable", http.StatusServiceUnavailable)
		}
	}
}

func retryAfterSeconds(d admission.Decision) int {
	seconds := int(d.RetryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
