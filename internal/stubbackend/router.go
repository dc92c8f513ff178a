package stubbackend

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// SetupRouter настраивает HTTP-маршруты и middleware бэкенда.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(h.logger))

	auth := h.backend.Tokens()

	r.Route("/api", func(r chi.Router) {
		r.Post("/users/register", h.Register)
		r.Post("/users/login", h.Login)

		r.Get("/services", h.ListServices)
		r.Get("/services/{id}", h.GetService)
		r.Get("/transport-services", h.ListServicesArray)
		r.Get("/transport-services/{id}", h.GetService)

		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth)

			r.Get("/cart", h.GetCart)
			r.Get("/cart/icon", h.CartIcon)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)

			r.Post("/users/logout", h.Logout)
			r.Get("/users/profile", h.Profile)
			r.Put("/users/profile", h.UpdateProfile)

			r.Post("/cart/add/{id}", h.AddToCart)
			r.Delete("/cart", h.ClearCart)

			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)
			r.Put("/orders/{id}", h.UpdateOrder)
			r.Put("/orders/{id}/form", h.FormOrder)
			r.Delete("/orders/{id}/services/{serviceID}", h.RemoveLineItem)
			r.Put("/orders/{id}/services/{serviceID}", h.UpdateLineItem)

			r.Post("/submitcargoorder", h.SubmitOrder)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", r.Header.Get("X-Request-ID")),
				zap.Int("status", ww.Status()),
				zap.Int("size", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
