package middleware

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/isaackogan/YorkUChats/config"

	"github.com/rs/zerolog/log"
)

// KeyFunc derives the actor key a tier counts requests under.
type KeyFunc func(r *http.Request) string

// CallerKey keys a tier by the client's network identity.
func CallerKey(r *http.Request) string {
	return ClientIP(r)
}

// GlobalKey keys a tier by a constant, making it one shared counter across
// all callers.
func GlobalKey(*http.Request) string {
	return "global"
}

// ClientIP extracts the caller address, preferring the first X-Forwarded-For
// hop when the service runs behind a proxy.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// tierWindow is one key's budget inside its current window.
type tierWindow struct {
	start time.Time
	count int
}

// Tier is one admission-control rule: at most max requests per window for
// each key. Windows are fixed, opening at the key's first request and
// resetting once the window elapses, so no span of one window length ever
// admits more than max requests from the same key.
type Tier struct {
	name    string
	window  time.Duration
	max     int
	keyFunc KeyFunc
	windows map[string]*tierWindow
	mu      sync.Mutex
}

// NewTier creates an admission tier from configuration
func NewTier(name string, cfg config.TierConfig, keyFunc KeyFunc) *Tier {
	return &Tier{
		name:    name,
		window:  time.Duration(cfg.WindowSeconds) * time.Second,
		max:     cfg.Max,
		keyFunc: keyFunc,
		windows: make(map[string]*tierWindow),
	}
}

// Admit consumes one unit of key's budget. On rejection it returns the wait
// until the current window resets, with no budget consumed.
func (t *Tier) Admit(key string) (bool, time.Duration) {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[key]
	if !ok || now.Sub(w.start) >= t.window {
		w = &tierWindow{start: now}
		t.windows[key] = w
	}

	if w.count < t.max {
		w.count++
		return true, 0
	}
	return false, w.start.Add(t.window).Sub(now)
}

// Limit is a middleware enforcing the tier before the wrapped handler runs.
// Rejections are uniform 429 responses with a reset hint header; the wrapped
// handler never executes and no side effect occurs.
func (t *Tier) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := t.keyFunc(r)

		allowed, retryAfter := t.Admit(key)
		if !allowed {
			resetSeconds := int(math.Ceil(retryAfter.Seconds()))
			if resetSeconds < 1 {
				resetSeconds = 1
			}

			log.Warn().
				Str("tier", t.name).
				Str("key", key).
				Str("path", r.URL.Path).
				Int("reset_seconds", resetSeconds).
				Msg("Request rejected by admission control")

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetSeconds))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":        "Rate limit exceeded. Please try again later.",
				"resetSeconds": resetSeconds,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Stack applies multiple tiers to one handler; every tier must admit the
// request, outermost first.
func Stack(h http.Handler, tiers ...*Tier) http.Handler {
	for i := len(tiers) - 1; i >= 0; i-- {
		h = tiers[i].Limit(h)
	}
	return h
}
