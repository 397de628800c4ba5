package controllers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"meetuphere/internal/delivery/http/helpers"
	"meetuphere/internal/domain"
)

const maxPushBytes = 1 << 20

// PushResponse is the body returned to the check-in push sender.
type PushResponse struct {
	Message string `json:"message" example:"received"`
}

// PushSuccessResponse is the success response envelope for POST /handle_push (200).
type PushSuccessResponse struct {
	Data  PushResponse      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ownerID accepts the user id as either a JSON string or number.
type ownerID string

func (o *ownerID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*o = ownerID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*o = ownerID(n.String())
	return nil
}

// foursquareCheckin is the subset of the Foursquare push check-in object we read.
type foursquareCheckin struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
	User      struct {
		ID ownerID `json:"id"`
	} `json:"user"`
	Venue struct {
		Location struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		} `json:"location"`
	} `json:"venue"`
}

func (c foursquareCheckin) payload() *domain.CheckinPayload {
	return &domain.CheckinPayload{
		OwnerID:   string(c.User.ID),
		Latitude:  c.Venue.Location.Lat,
		Longitude: c.Venue.Location.Lng,
		CheckinID: c.ID,
		CreatedAt: c.CreatedAt,
	}
}

// CheckinController receives check-in pushes and hands them to the ingest service.
type CheckinController struct {
	Logger     *slog.Logger
	Service    domain.IngestService
	PushSecret string
}

// NewCheckinController creates a CheckinController. An empty pushSecret disables the secret check.
func NewCheckinController(logger *slog.Logger, svc domain.IngestService, pushSecret string) *CheckinController {
	return &CheckinController{
		Logger:     logger,
		Service:    svc,
		PushSecret: pushSecret,
	}
}

// HandlePush godoc
// @Summary Receive a check-in push
// @Description Accepts a Foursquare check-in push, either as form field "checkin" or as a raw JSON body. Check-ins with both venue coordinates are queued for matching; others are dropped. Always answers 200 so the sender does not retry.
// @Tags checkins
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param checkin formData string false "Check-in JSON"
// @Param secret formData string false "Push secret"
// @Success 200 {object} controllers.PushSuccessResponse "data.message is always received"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /handle_push [post]
func (c *CheckinController) HandlePush(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPushBytes)
	if c.PushSecret != "" {
		got := r.FormValue("secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(c.PushSecret)) != 1 {
			c.Logger.WarnContext(r.Context(), "push rejected", "reason", "secret mismatch")
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "invalid push secret")
			return
		}
	}

	raw, err := readCheckin(r)
	if err != nil {
		c.Logger.WarnContext(r.Context(), "unreadable push", "err", err)
		c.received(w)
		return
	}
	var checkin foursquareCheckin
	if err := json.Unmarshal(raw, &checkin); err != nil {
		c.Logger.WarnContext(r.Context(), "undecodable check-in", "err", err)
		c.received(w)
		return
	}

	err = c.Service.Accept(r.Context(), checkin.payload())
	switch {
	case err == nil:
		c.Logger.DebugContext(r.Context(), "check-in queued", "fid", checkin.User.ID)
	case errors.Is(err, domain.ErrValidation):
		c.Logger.InfoContext(r.Context(), "check-in dropped", "fid", checkin.User.ID,
			"lat", formatCoord(checkin.Venue.Location.Lat), "lng", formatCoord(checkin.Venue.Location.Lng), "err", err)
	default:
		c.Logger.ErrorContext(r.Context(), "check-in not queued", "fid", checkin.User.ID, "err", err)
	}
	c.received(w)
}

func (c *CheckinController) received(w http.ResponseWriter) {
	helpers.WriteJSONSuccess(w, http.StatusOK, PushResponse{Message: "received"})
}

// readCheckin returns the check-in JSON from a form post or a raw JSON body.
func readCheckin(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return io.ReadAll(r.Body)
	}
	v := r.FormValue("checkin")
	if v == "" {
		return nil, errors.New("missing checkin form field")
	}
	return []byte(v), nil
}

func formatCoord(f *float64) string {
	if f == nil {
		return "null"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
