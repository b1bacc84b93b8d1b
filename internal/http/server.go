package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"zaakiyah/internal/cache"
	"zaakiyah/internal/core"
	"zaakiyah/internal/gateway"
)

// DonationStore is the local ledger surface the server needs: recording
// verified donations and serving history when the gateway is unreachable.
type DonationStore interface {
	RecordCompleted(ctx context.Context, d core.Donation) error
	GetDonation(ctx context.Context, id string) (core.Donation, error)
	ListRecent(ctx context.Context, limit int) ([]core.Donation, error)
}

type Server struct {
	http.Server
	gateway   gateway.Client
	donations DonationStore
	sessions  *sessionStore

	rateLimiter *rateLimiter

	// Recipient pages change rarely relative to how often donors browse
	// them, so a short TTL cache absorbs most gateway reads.
	recipientCache *cache.LRUCache[gateway.RecipientPage]

	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// NewServer configures routes and session handling, returning a
// ready-to-run http.Server.
func NewServer(addr string, gw gateway.Client, donations DonationStore, sessionTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		gateway:        gw,
		donations:      donations,
		sessions:       newSessionStore(gw, donations, 10000, sessionTTL),
		rateLimiter:    newRateLimiter(),
		recipientCache: cache.NewLRUCache[gateway.RecipientPage](50, 2*time.Minute),
		cacheManager:   cache.NewManager(),
	}

	s.cacheManager.Register(s.recipientCache)
	s.cacheManager.Register(s.sessions)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/recipients", s.with(s.handleListRecipients))

	mux.HandleFunc("GET /api/basket", s.with(s.handleGetBasket))
	mux.HandleFunc("POST /api/basket/items", s.with(s.handleAddToBasket))
	mux.HandleFunc("PUT /api/basket/items/{recipientId}", s.with(s.handleUpdateAmount))
	mux.HandleFunc("DELETE /api/basket/items/{recipientId}", s.with(s.handleRemoveFromBasket))
	mux.HandleFunc("POST /api/basket/distribute-equally", s.with(s.handleDistributeEqually))
	mux.HandleFunc("PUT /api/basket/distribution-method", s.with(s.handleSetDistributionMethod))
	mux.HandleFunc("PUT /api/basket/support", s.with(s.handleSetSupport))
	mux.HandleFunc("PUT /api/basket/anonymous", s.with(s.handleSetAnonymous))
	mux.HandleFunc("DELETE /api/basket", s.with(s.handleClearBasket))

	mux.HandleFunc("GET /api/watchlist", s.with(s.handleGetWatchlist))
	mux.HandleFunc("POST /api/watchlist", s.with(s.handleAddToWatchlist))
	mux.HandleFunc("DELETE /api/watchlist/{recipientId}", s.with(s.handleRemoveFromWatchlist))

	mux.HandleFunc("GET /api/checkout", s.with(s.handleCheckoutState))
	mux.HandleFunc("POST /api/checkout/initiate", s.with(s.handleInitiateCheckout))
	mux.HandleFunc("POST /api/checkout/cancel", s.with(s.handleCancelCheckout))
	mux.HandleFunc("GET /donations/callback", s.with(s.handleCallback))

	mux.HandleFunc("GET /api/donations/history", s.with(s.handleDonationHistory))
	mux.HandleFunc("GET /api/donations/{id}", s.with(s.handleGetDonation))

	return s
}

// with adds request tracing, security headers and rate limiting around a
// handler.
func (s *Server) with(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// Shutdown stops background cleanup and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
