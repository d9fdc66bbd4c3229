package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers the privacy-request routes and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/confirm", handler.confirm)
		r.Get("/confirm/failed", handler.confirmFailed)

		r.Route("/privacy-requests", func(r chi.Router) {
			r.Post("/", handler.createRequest)
			r.Get("/", handler.listRequests)
			r.Delete("/", handler.bulkDelete)
			r.Post("/resend", handler.bulkResend)

			r.Route("/{request_id}", func(r chi.Router) {
				r.Get("/", handler.getRequest)
				r.Delete("/", handler.deleteRequest)
				r.Post("/resend", handler.resendRequest)
				r.Post("/complete", handler.markCompleted)
				r.Post("/steps", handler.runStep)
				r.Get("/export", handler.exportBundle)
			})
		})
	})

	return r
}
