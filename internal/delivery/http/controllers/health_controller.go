package controllers

import (
	"net/http"

	"meetuphere/internal/delivery/http/helpers"
)

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// Healthz godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} controllers.HealthResponse
// @Router /healthz [get]
func Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSONSuccess(w, http.StatusOK, HealthResponse{Status: "ok"})
}
