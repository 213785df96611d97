package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"farmlink/config"
	"farmlink/pkg/response"
)

// RateLimit applies a per-IP sliding window limiter. Limit and window come
// from RATE_LIMIT (requests) and RATE_WINDOW_SECONDS config keys.
func RateLimit(next http.Handler) http.Handler {
	limit, _ := strconv.Atoi(config.Get("RATE_LIMIT", "120"))
	windowSec, _ := strconv.Atoi(config.Get("RATE_WINDOW_SECONDS", "60"))
	window := time.Duration(windowSec) * time.Second

	var mu sync.Mutex
	hits := make(map[string][]time.Time)

	// Sweep stale entries so the map does not grow unbounded.
	go func() {
		t := time.NewTicker(window)
		defer t.Stop()
		for range t.C {
			mu.Lock()
			cutoff := time.Now().Add(-window)
			for ip, ts := range hits {
				kept := ts[:0]
				for _, h := range ts {
					if h.After(cutoff) {
						kept = append(kept, h)
					}
				}
				if len(kept) == 0 {
					delete(hits, ip)
				} else {
					hits[ip] = kept
				}
			}
			mu.Unlock()
		}
	}()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		mu.Lock()
		cutoff := time.Now().Add(-window)
		ts := hits[ip]
		kept := ts[:0]
		for _, h := range ts {
			if h.After(cutoff) {
				kept = append(kept, h)
			}
		}
		if len(kept) >= limit {
			hits[ip] = kept
			mu.Unlock()
			response.Error(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		hits[ip] = append(kept, time.Now())
		mu.Unlock()

		next.ServeHTTP(w, r)
	})
}
