package http

import (
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/media"
	"github.com/billedfitness/bfl/internal/fitlog/service"
	"github.com/billedfitness/bfl/internal/fitlog/store"
	"github.com/billedfitness/bfl/pkg/httpx"
	"github.com/billedfitness/bfl/pkg/jwtx"
	"github.com/billedfitness/bfl/pkg/slogx"
	"github.com/gorilla/csrf"
)

// maxFormBytes leaves room for the other profile fields next to an avatar.
const maxFormBytes = media.MaxUploadBytes + 1<<20

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler

	keys         *jwtx.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
	metrics      *httpx.Metrics

	AccountService *service.AccountService
	ProfileService *service.ProfileService
	WorkoutService *service.WorkoutService
	SessionService *service.SessionService

	Views   *Renderer
	Cookies SessionCookies

	// MediaRoot is served read-only under /media/.
	MediaRoot string

	// CSRFKey enables CSRF protection when set. It must be 32 bytes.
	CSRFKey []byte

	LoginLimit  httpx.RateLimitConfig
	UploadLimit httpx.RateLimitConfig

	// TrustedProxies may set the client address through X-Forwarded-For.
	TrustedProxies []netip.Prefix

	// MaxBodyBytes caps every request body. It is enforced ahead of the CSRF
	// check, which parses the form.
	MaxBodyBytes int64
}

func NewRouter(keys *jwtx.KeySet, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		metrics:      httpx.NewMetrics("bfl"),
		LoginLimit:   httpx.StrictLimit,
		UploadLimit:  httpx.ModerateLimit,
		MaxBodyBytes: maxFormBytes,
	}
}

// ApplyRoutes registers every route and builds the middleware chain. Set the
// exported fields first.
func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerProfile()
	r.registerWorkouts()
	r.registerAdmin()
	r.registerSystem()

	r.middlewares = []httpx.Middleware{
		httpx.RealIP(r.TrustedProxies),
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover,
		httpx.SecurityHeaders,
		httpx.LimitBody(r.MaxBodyBytes),
	}
	if len(r.CSRFKey) > 0 {
		r.middlewares = append(r.middlewares, csrfMiddleware(r.CSRFKey, r.Cookies.Secure))
	}
	r.middlewares = append(r.middlewares, SessionMiddleware(r.SessionService, r.Cookies))

	// Metrics sit directly on the mux so the matched pattern is visible.
	r.handler = httpx.Chain(r.metrics.Middleware(r.Mux), r.middlewares...)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func csrfMiddleware(key []byte, secure bool) httpx.Middleware {
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("bfl_csrf"),
		csrf.FieldName("csrf_token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slogx.FromContext(r.Context()).Warn("csrf check failed", slogx.Err(csrf.FailureReason(r)))
			http.Error(w, "Forbidden: the form has expired, please go back and try again.", http.StatusForbidden)
		})),
	)
	return func(next http.Handler) http.Handler {
		h := protect(next)
		if secure {
			return h
		}
		// Without TLS the Referer check cannot apply.
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Accounts: r.AccountService,
		Sessions: r.SessionService,
		Cookies:  r.Cookies,
		Views:    r.Views,
	}
	anon := func(fn http.HandlerFunc, mws ...httpx.Middleware) http.Handler {
		return httpx.Chain(fn, append([]httpx.Middleware{RequireAnonymous}, mws...)...)
	}
	user := func(fn http.HandlerFunc) http.Handler { return httpx.Chain(fn, RequireUser) }

	// Rate limited by IP + username to slow credential stuffing.
	throttle := httpx.RateLimitByIPAndFormField(r.LoginLimit, "username", http.MethodPost)

	r.Mux.Handle("GET /{$}", anon(h.HandleLanding))
	r.Mux.Handle("GET /login", anon(h.HandleLoginForm))
	r.Mux.Handle("POST /login", anon(h.HandleLogin, throttle))
	r.Mux.Handle("GET /register", anon(h.HandleRegisterForm))
	r.Mux.Handle("POST /register", anon(h.HandleRegister, throttle))
	r.Mux.HandleFunc("GET /logout", h.HandleLogout)

	r.Mux.Handle("GET /change-password", user(h.HandlePasswordForm))
	r.Mux.Handle("POST /change-password", user(h.HandleChangePassword))
	r.Mux.Handle("GET /deactivate", user(h.HandleDeactivateForm))
	r.Mux.Handle("POST /deactivate", user(h.HandleDeactivate))
}

func (r *Router) registerProfile() {
	h := &ProfileHandler{
		Accounts: r.AccountService,
		Profiles: r.ProfileService,
		Workouts: r.WorkoutService,
		Views:    r.Views,
	}
	user := func(fn http.HandlerFunc) http.Handler { return httpx.Chain(fn, RequireUser) }

	r.Mux.Handle("GET /home", user(h.HandleHome))
	r.Mux.Handle("GET /usr/{username}", user(h.HandleProfile))
	r.Mux.Handle("GET /usr/{username}/edit", user(h.HandleEditForm))
	r.Mux.Handle("POST /usr/{username}/edit", httpx.Chain(http.HandlerFunc(h.HandleEdit),
		RequireUser,
		httpx.RateLimitByUser(r.UploadLimit),
	))
	r.Mux.Handle("GET /settings", user(h.HandleSettingsForm))
	r.Mux.Handle("POST /settings", user(h.HandleSettings))
}

func (r *Router) registerWorkouts() {
	h := &WorkoutHandler{
		Workouts: r.WorkoutService,
		Profiles: r.ProfileService,
		Views:    r.Views,
	}
	user := func(fn http.HandlerFunc) http.Handler { return httpx.Chain(fn, RequireUser) }

	r.Mux.Handle("GET /workouts/{category}", user(h.HandleList))
	r.Mux.Handle("GET /workouts/{category}/new", user(h.HandleNewForm))
	r.Mux.Handle("POST /workouts/{category}/new", user(h.HandleCreate))
	r.Mux.Handle("GET /workouts/{category}/{id}", user(h.HandleDetail))
	r.Mux.Handle("GET /workouts/{category}/{id}/edit", user(h.HandleEditForm))
	r.Mux.Handle("POST /workouts/{category}/{id}/edit", user(h.HandleUpdate))
	r.Mux.Handle("GET /workouts/{category}/{id}/delete", user(h.HandleDeleteForm))
	r.Mux.Handle("POST /workouts/{category}/{id}/delete", user(h.HandleDelete))
	r.Mux.Handle("POST /workouts/{category}/{id}/duplicate", user(h.HandleDuplicate))
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{
		Accounts: r.AccountService,
		Workouts: r.WorkoutService,
		Views:    r.Views,
	}
	r.Mux.Handle("GET /admin/workouts", httpx.Chain(http.HandlerFunc(h.HandleWorkouts),
		RequireAdmin(http.HandlerFunc(r.Views.NotFound)),
	))
}

func (r *Router) registerSystem() {
	files := http.StripPrefix("/media/", http.FileServer(http.Dir(r.MediaRoot)))
	r.Mux.Handle("GET /media/", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasSuffix(req.URL.Path, "/") {
			http.NotFound(w, req)
			return
		}
		files.ServeHTTP(w, req)
	}))

	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys))
	r.Mux.Handle("GET /metrics", r.metrics.Handler())

	r.Mux.Handle("/", http.HandlerFunc(r.Views.NotFound))
}
