package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"teslabooking/internal/cache"
	"teslabooking/internal/handler"
	"teslabooking/internal/httputil"
	"teslabooking/internal/i18n"
	"teslabooking/internal/metrics"
	authmw "teslabooking/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler        *handler.AuthHandler
	AppointmentHandler *handler.AppointmentHandler
	PushHandler        *handler.PushHandler
	PartnerHandler     *handler.PartnerHandler
	MediaHandler       *handler.MediaHandler
	FunctionsHandler   *handler.FunctionsHandler

	Admins        authmw.AdminChecker
	SignInLimiter cache.RateLimiter
	ChatLimiter   cache.RateLimiter
	Metrics       *metrics.Metrics
	JWTSecret     string

	// TrustProxyHeaders mounts RealIP so rate limits key on the forwarded
	// client address.
	TrustProxyHeaders bool
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	requireAuth := authmw.AuthMiddleware(cfg.JWTSecret)

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/signup", cfg.AuthHandler.SignUp)
		r.With(authmw.RateLimit(cfg.SignInLimiter, localized(i18n.KeyRateLimited))).Post("/token", cfg.AuthHandler.SignIn)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
		r.Post("/logout", cfg.AuthHandler.Logout)
		r.Post("/recover", cfg.AuthHandler.Recover)
		r.Post("/reset", cfg.AuthHandler.Reset)
		r.With(requireAuth).Get("/user", cfg.AuthHandler.User)
	})

	r.Route("/rest/v1", func(r chi.Router) {
		// Bookings are open to anonymous customers.
		r.Post("/appointments", cfg.AppointmentHandler.Create)
		r.Get("/push/vapid-key", cfg.PushHandler.VAPIDKey)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/roles", cfg.AuthHandler.Roles)
			r.Get("/appointments", cfg.AppointmentHandler.History)
			r.Post("/appointments/{id}/photos", cfg.MediaHandler.UploadPhoto)
			r.Get("/appointments/{id}/photos", cfg.MediaHandler.ListPhotos)

			r.Post("/push-subscriptions", cfg.PushHandler.Register)
			r.Delete("/push-subscriptions", cfg.PushHandler.Remove)

			r.Put("/partner-connection", cfg.PartnerHandler.SaveConnection)

			r.Route("/admin", func(r chi.Router) {
				r.Use(authmw.RequireAdmin(cfg.Admins))
				r.Get("/appointments", cfg.AppointmentHandler.AdminList)
				r.Patch("/appointments/{id}", cfg.AppointmentHandler.UpdateStatus)
			})
		})
	})

	r.Route("/functions/v1", func(r chi.Router) {
		r.Use(authmw.CORS)

		r.With(authmw.RateLimit(cfg.ChatLimiter, localized(i18n.KeyChatRateLimited))).Post("/chat", cfg.FunctionsHandler.Chat)
		r.With(requireAuth).Post("/notify-arrival", cfg.FunctionsHandler.NotifyArrival)
		r.With(requireAuth).Post("/partner-register", cfg.FunctionsHandler.PartnerRegister)
	})

	return r
}

// localized returns a message picker for key in the request's language.
func localized(key string) func(*http.Request) string {
	return func(r *http.Request) string {
		lang := i18n.FromAcceptLanguage(r.Header.Get("Accept-Language"))
		return i18n.Lookup(lang).T(key)
	}
}
