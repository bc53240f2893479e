package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/metrics"
	"retailhub/backend/internal/service"
	"retailhub/backend/internal/store"
)

type Options struct {
	AllowedOrigin  string
	RequestTimeout time.Duration
	// RateLimit and LoginRateLimit are requests per minute per client IP.
	RateLimit      int
	LoginRateLimit int
	Production     bool
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
}

type API struct {
	service  *service.Service
	auth     *AuthManager
	opts     Options
	logger   *zap.Logger
	validate *validator.Validate
	secure   *secure.Secure
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 300
	}
	if opts.LoginRateLimit <= 0 {
		opts.LoginRateLimit = 10
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service:  svc,
		auth:     auth,
		opts:     opts,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		secure: secure.New(secure.Options{
			FrameDeny:             true,
			ContentTypeNosniff:    true,
			BrowserXssFilter:      true,
			ReferrerPolicy:        "strict-origin-when-cross-origin",
			ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
			SSLRedirect:           opts.Production,
			SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
			IsDevelopment:         !opts.Production,
		}),
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(a.opts.RequestTimeout),
		a.secure.Handler,
		a.withCORS,
		a.withAccessLog,
	)

	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", a.opts.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(a.limit(a.opts.LoginRateLimit, "too many login attempts")).Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.limit(a.opts.RateLimit, "rate limit exceeded"))
			r.Use(a.requireAuth)

			r.Get("/shops", a.handleListShops)
			r.Get("/shops/{id}", a.handleGetShop)
			r.With(a.allow(domain.RoleAdmin)).Post("/shops", a.handleCreateShop)
			r.Get("/products", a.handleListProducts)
			r.Get("/products/{id}", a.handleGetProduct)
			r.With(a.allow(domain.RoleAdmin)).Post("/products", a.handleCreateProduct)

			r.Route("/stock", func(r chi.Router) {
				r.Get("/", a.handleListStock)
				r.Get("/shops/{shopID}/products/{productID}", a.handleGetStock)
				r.Get("/transactions", a.handleListLedger)
				r.With(a.allow(domain.RoleAdmin, domain.RoleManager, domain.RoleStaff)).Post("/add", a.handleAddStock)
				r.With(a.allow(domain.RoleAdmin, domain.RoleManager, domain.RoleStaff)).Post("/reduce", a.handleReduceStock)
				r.With(a.allow(domain.RoleAdmin, domain.RoleManager)).Post("/adjust", a.handleAdjustStock)
			})

			r.Route("/sales", func(r chi.Router) {
				r.Get("/", a.handleListSales)
				r.Get("/{id}", a.handleGetSale)
				r.Post("/", a.handleCreateSale)
				r.With(a.allow(domain.RoleAdmin, domain.RoleManager)).Post("/{id}/cancel", a.handleCancelSale)
			})

			r.Route("/transfers", func(r chi.Router) {
				r.Get("/", a.handleListTransfers)
				r.Get("/{id}", a.handleGetTransfer)
				r.With(a.allow(domain.RoleAdmin, domain.RoleManager)).Post("/", a.handleCreateTransfer)
				r.With(a.allow(domain.RoleAdmin, domain.RoleManager, domain.RoleStaff)).Post("/{id}/complete", a.handleCompleteTransfer)
				r.With(a.allow(domain.RoleAdmin, domain.RoleManager)).Post("/{id}/cancel", a.handleCancelTransfer)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", a.handleListPayments)
				r.Get("/{id}", a.handleGetPayment)
				r.Post("/", a.handleCreatePayment)
				r.With(a.allow(domain.RoleAdmin, domain.RoleManager)).Post("/{id}/refund", a.handleRefundPayment)
			})

			r.Route("/quotations", func(r chi.Router) {
				r.Use(a.allow(domain.RoleAdmin, domain.RoleManager))
				r.Get("/", a.handleListQuotations)
				r.Post("/", a.handleCreateQuotation)
				r.Get("/{id}", a.handleGetQuotation)
				r.Patch("/{id}", a.handleUpdateQuotation)
				r.Delete("/{id}", a.handleDeleteQuotation)
				r.Post("/{id}/send", a.handleSendQuotation)
			})

			r.Get("/alerts/low-stock", a.handleLowStockAlerts)
			r.With(a.allow(domain.RoleAdmin)).Get("/ledger/reconcile", a.handleReconcile)
		})
	})

	return r
}

func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

// allow admits only the listed roles. It must run after requireAuth.
func (a *API) allow(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := service.ActorFromContext(r.Context())
			if !ok || !isRoleAllowed(actor.Role, roles) {
				writeError(w, http.StatusForbidden, errors.New("forbidden role"))
				return
			}
			next.ServeHTTP(w, r)
		})
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

func (a *API) limit(perMinute int, message string) func(http.Handler) http.Handler {
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, errors.New(message))
		}),
	)
}

func (a *API) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", a.opts.AllowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		startedAt := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(startedAt)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !a.bind(w, r, &req) {
		return
	}
	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// bind decodes and validates a JSON body, writing a 400 on failure.
func (a *API) bind(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := decodeJSON(r, dest); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	if err := a.validate.Struct(dest); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}

// writeResult answers a core operation. Failed results carry their code and
// are mapped to the matching client error status.
func (a *API) writeResult(w http.ResponseWriter, res domain.Result, payload any, err error, okStatus int) {
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	if !res.Success {
		writeJSON(w, codeStatus(res.Code), payload)
		return
	}
	writeJSON(w, okStatus, payload)
}

func codeStatus(code string) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeInsufficientStock, domain.CodeInvalidTransition, domain.CodeNotCancellable, domain.CodeAlreadyProcessed:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure maps a returned error onto a status. Unknown errors are 500s.
func (a *API) writeFailure(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrPersistence):
		// stays 500 whatever it wraps
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, store.ErrInsufficientStock), errors.Is(err, store.ErrInvalidStateTransition):
		status = http.StatusConflict
	}
	if status >= 500 {
		a.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func queryInt64(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

// queryPage reads page and limit. Out-of-range values are normalised by the
// service, so only malformed numbers are rejected here.
func queryPage(r *http.Request) (domain.Page, error) {
	page, err := queryInt64(r, "page")
	if err != nil {
		return domain.Page{}, err
	}
	limit, err := queryInt64(r, "limit")
	if err != nil {
		return domain.Page{}, err
	}
	return domain.Page{Page: int(page), Limit: int(limit)}, nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies never carry the underlying error.
	msg := err.Error()
	if status >= 500 {
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
