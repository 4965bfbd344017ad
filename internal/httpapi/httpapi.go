package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"retailops/backend/internal/domain"
	"retailops/backend/internal/logger"
	"retailops/backend/internal/service"
	"retailops/backend/internal/store"
	"retailops/backend/internal/xid"
)

const (
	apiPrefix       = "/api/v1"
	maxBodyBytes    = 1 << 20
	listCacheHeader = "public, max-age=30"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

var (
	staff     = []string{domain.RoleWorker, domain.RoleAdmin}
	adminOnly = []string{domain.RoleAdmin}
)

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.HandleFunc("POST "+apiPrefix+"/auth/login", a.handleLogin)
	mux.HandleFunc("POST "+apiPrefix+"/auth/signup", a.requireAuth(a.handleSignup, adminOnly...))

	mux.HandleFunc("GET "+apiPrefix+"/accounts", a.requireAuth(a.handleListAccounts, adminOnly...))
	mux.HandleFunc("PUT "+apiPrefix+"/accounts/{uid}", a.requireAuth(a.handleUpdateAccount, adminOnly...))
	mux.HandleFunc("DELETE "+apiPrefix+"/accounts/{uid}", a.requireAuth(a.handleDeleteAccount, adminOnly...))

	mux.HandleFunc("POST "+apiPrefix+"/sales/registerSale", a.requireAuth(a.handleRegisterSale, staff...))
	mux.HandleFunc("GET "+apiPrefix+"/sales", a.requireAuth(a.handleListSales, staff...))

	mux.HandleFunc("GET "+apiPrefix+"/products", a.requireAuth(a.handleListProducts, staff...))
	mux.HandleFunc("POST "+apiPrefix+"/products", a.requireAuth(a.handleCreateProduct, adminOnly...))
	mux.HandleFunc("GET "+apiPrefix+"/products/{id}", a.requireAuth(a.handleGetProduct, staff...))
	mux.HandleFunc("PUT "+apiPrefix+"/products/{id}", a.requireAuth(a.handleUpdateProduct, adminOnly...))
	mux.HandleFunc("DELETE "+apiPrefix+"/products/{id}", a.requireAuth(a.handleDeleteProduct, adminOnly...))

	mux.HandleFunc("GET "+apiPrefix+"/expenses", a.requireAuth(a.handleListExpenses, adminOnly...))
	mux.HandleFunc("POST "+apiPrefix+"/expenses", a.requireAuth(a.handleCreateExpense, adminOnly...))
	mux.HandleFunc("PUT "+apiPrefix+"/expenses/{id}", a.requireAuth(a.handleUpdateExpense, adminOnly...))
	mux.HandleFunc("DELETE "+apiPrefix+"/expenses/{id}", a.requireAuth(a.handleDeleteExpense, adminOnly...))

	mux.HandleFunc("GET "+apiPrefix+"/daily/reports", a.requireAuth(a.handleListReports, adminOnly...))
	mux.HandleFunc("GET "+apiPrefix+"/daily/reports/{date}", a.requireAuth(a.handleGetReport, adminOnly...))
	mux.HandleFunc("PUT "+apiPrefix+"/daily/reports/{date}", a.requireAuth(a.handleUpdateReport, adminOnly...))
	mux.HandleFunc("POST "+apiPrefix+"/daily/reports/{date}/recompute-utilities", a.requireAuth(a.handleRecomputeUtilities, adminOnly...))
	mux.HandleFunc("POST "+apiPrefix+"/daily/ensure", a.requireAuth(a.handleEnsureToday, adminOnly...))
	mux.HandleFunc("GET "+apiPrefix+"/report/export", a.requireAuth(a.handleExport, adminOnly...))

	mux.HandleFunc("GET "+apiPrefix+"/employees", a.requireAuth(a.handleListEmployees, adminOnly...))
	mux.HandleFunc("POST "+apiPrefix+"/employees", a.requireAuth(a.handleCreateEmployee, adminOnly...))
	mux.HandleFunc("GET "+apiPrefix+"/employees/{id}", a.requireAuth(a.handleGetEmployee, adminOnly...))
	mux.HandleFunc("PUT "+apiPrefix+"/employees/{id}", a.requireAuth(a.handleUpdateEmployee, adminOnly...))
	mux.HandleFunc("DELETE "+apiPrefix+"/employees/{id}", a.requireAuth(a.handleDeleteEmployee, adminOnly...))
	mux.HandleFunc("GET "+apiPrefix+"/employees/{id}/events", a.requireAuth(a.handleListEvents, adminOnly...))
	mux.HandleFunc("POST "+apiPrefix+"/employees/{id}/events", a.requireAuth(a.handleRecordEvent, adminOnly...))
	mux.HandleFunc("DELETE "+apiPrefix+"/employees/{id}/events/{eventId}", a.requireAuth(a.handleDeleteEvent, adminOnly...))

	mux.HandleFunc("GET "+apiPrefix+"/stores", a.requireAuth(a.handleListStores, staff...))
	mux.HandleFunc("POST "+apiPrefix+"/stores", a.requireAuth(a.handleCreateStore, adminOnly...))
	mux.HandleFunc("GET "+apiPrefix+"/stores/{id}", a.requireAuth(a.handleGetStore, staff...))
	mux.HandleFunc("PUT "+apiPrefix+"/stores/{id}", a.requireAuth(a.handleUpdateStore, adminOnly...))
	mux.HandleFunc("DELETE "+apiPrefix+"/stores/{id}", a.requireAuth(a.handleDeleteStore, adminOnly...))

	mux.HandleFunc("GET "+apiPrefix+"/images", a.requireAuth(a.handleSignImageGet, staff...))
	mux.HandleFunc("POST "+apiPrefix+"/images", a.requireAuth(a.handleSignImageUpload(true), adminOnly...))
	mux.HandleFunc("PUT "+apiPrefix+"/images", a.requireAuth(a.handleSignImageUpload(false), adminOnly...))
	mux.HandleFunc("DELETE "+apiPrefix+"/images", a.requireAuth(a.handleDeleteImage, adminOnly...))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, r, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, r, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		ctx := service.WithActor(r.Context(), actor)
		ctx = logger.WithLogger(ctx, logger.Default().With("uid", actor.UID))
		next(w, r.WithContext(ctx))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, r, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" || len(requestID) > 64 {
			requestID = xid.Token()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logger.WithRequestID(r.Context(), requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		startedAt := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		logger.Info(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(startedAt),
		)
	})
}

func decodeJSON(r *http.Request, dest any) error {
	return decodeBody(r, dest, true)
}

// decodeLenient ignores unknown keys; used for report patches that may echo
// back a full report document.
func decodeLenient(r *http.Request, dest any) error {
	return decodeBody(r, dest, false)
}

func decodeBody(r *http.Request, dest any, strict bool) error {
	decoder := json.NewDecoder(r.Body)
	if strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: malformed JSON body: %v", store.ErrInvalidInput, err)
	}
	return nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", store.ErrInvalidInput, name)
	}
	return n, nil
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, r, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
	case errors.Is(err, store.ErrInvalidInput), errors.Is(err, store.ErrInsufficientStock):
		writeError(w, r, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, err)
	case errors.Is(err, store.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err)
	case errors.Is(err, store.ErrConflict):
		writeError(w, r, http.StatusConflict, err)
	case errors.Is(err, store.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, err)
	default:
		writeError(w, r, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	// 5xx details stay in the log.
	msg := err.Error()
	if status >= 500 {
		logger.Error(r.Context(), "request failed", "status", status, "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
