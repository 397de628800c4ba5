package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"meetuphere/internal/delivery/http/controllers"
	"meetuphere/internal/delivery/http/middleware"
	"meetuphere/internal/domain"
)

// NewAPIRouter initializes the ingestion and registration routes.
func NewAPIRouter(
	logger *slog.Logger,
	checkinController *controllers.CheckinController,
	phoneController *controllers.PhoneController,
	verifier domain.TokenVerifier,
	cors *middleware.CORSPolicy,
) *http.ServeMux {
	mux := http.NewServeMux()
	requireAuth := middleware.RequireAuth(verifier, logger)

	mux.HandleFunc("GET /healthz", controllers.Healthz)

	// Check-in push
	mux.HandleFunc("POST /handle_push", checkinController.HandlePush)

	// Phone registration, the only browser-facing routes
	mux.HandleFunc("OPTIONS /me/phone", cors.Preflight(http.MethodGet, http.MethodPut))
	mux.HandleFunc("GET /me/phone", cors.Allow(requireAuth(phoneController.GetPhone)))
	mux.HandleFunc("PUT /me/phone", cors.Allow(requireAuth(phoneController.UpdatePhone)))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// NewWorkerRouter initializes the routes served next to the queue consumer.
func NewWorkerRouter(workerController *controllers.WorkerController) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", controllers.Healthz)
	mux.HandleFunc("POST /checkin", workerController.ProcessCheckin)
	return mux
}
