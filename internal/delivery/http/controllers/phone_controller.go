package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"meetuphere/internal/delivery/http/helpers"
	"meetuphere/internal/delivery/http/middleware"
	"meetuphere/internal/domain"
)

// UpdatePhoneRequest is the request body for PUT /me/phone.
type UpdatePhoneRequest struct {
	Phone string `json:"phone" validate:"required,e164" example:"+15551234567"`
}

// PhoneSuccessResponse is the success response envelope for GET and PUT /me/phone (200).
type PhoneSuccessResponse struct {
	Data  *domain.ContactRecord `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// PhoneController lets an authenticated check-in owner register the phone number to notify.
type PhoneController struct {
	Logger *slog.Logger
	Repo   domain.ContactRepository
	now    func() time.Time
}

// NewPhoneController creates a PhoneController with the given logger and repository.
func NewPhoneController(logger *slog.Logger, repo domain.ContactRepository) *PhoneController {
	return &PhoneController{
		Logger: logger,
		Repo:   repo,
		now:    time.Now,
	}
}

// GetPhone godoc
// @Summary Get my registered phone number
// @Tags phone
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.PhoneSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/phone [get]
func (c *PhoneController) GetPhone(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok || ownerID == "" {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "missing owner")
		return
	}
	record, err := c.Repo.GetByOwnerID(r.Context(), ownerID)
	if err != nil {
		if !errors.Is(err, domain.ErrContactNotFound) {
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		}
		helpers.WriteDomainError(w, err, "failed to load phone number")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, record)
}

// UpdatePhone godoc
// @Summary Register my phone number
// @Description Stores the E.164 phone number that check-in notifications are sent to.
// @Tags phone
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdatePhoneRequest true "Phone number"
// @Success 200 {object} controllers.PhoneSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /me/phone [put]
func (c *PhoneController) UpdatePhone(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok || ownerID == "" {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "missing owner")
		return
	}
	var req UpdatePhoneRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	record := domain.NewContactRecord(ownerID, strings.TrimSpace(req.Phone), c.now().UTC())
	if err := c.Repo.Save(r.Context(), record); err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteDomainError(w, err, "failed to save phone number")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, record)
}
