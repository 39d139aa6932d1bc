package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "petrodash/internal/errors"
	"petrodash/internal/infrastructure"
	"petrodash/internal/preferences"
)

// PreferenceHandler serves the calling user's preferences
type PreferenceHandler struct {
	service      PreferenceService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPreferenceHandler creates a preference handler
func NewPreferenceHandler(service PreferenceService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PreferenceHandler {
	return &PreferenceHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "preferences")),
		errorHandler: errorHandler,
	}
}

// Routes mounts under /api/preferences
func (h *PreferenceHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Put("/", h.Replace)
	r.Post("/holidays", h.AddHoliday)
	r.Delete("/holidays/{date}", h.RemoveHoliday)
	r.Put("/tariff", h.SetTariff)
	return r
}

// PreferencesRequest is the body of PUT /api/preferences
type PreferencesRequest struct {
	preferences.Preferences
}

// Bind implements render.Binder
func (p *PreferencesRequest) Bind(r *http.Request) error {
	if p.Holidays == nil {
		p.Holidays = []preferences.Holiday{}
	}
	return nil
}

// HolidayRequest is the body of POST /api/preferences/holidays
type HolidayRequest struct {
	preferences.Holiday
}

// Bind implements render.Binder
func (h *HolidayRequest) Bind(r *http.Request) error {
	if h.Date == "" {
		return apierrors.ErrValidation("date", "date is required")
	}
	return nil
}

// TariffRequest is the body of PUT /api/preferences/tariff
type TariffRequest struct {
	Value *float64 `json:"value"`
}

// Bind implements render.Binder
func (t *TariffRequest) Bind(r *http.Request) error {
	if t.Value == nil {
		return apierrors.ErrValidation("value", "value is required")
	}
	return nil
}

// Get handles GET /api/preferences
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.service.Get(r.Context(), infrastructure.GetUserID(r.Context()))
	h.respond(w, r, prefs, err)
}

// Replace handles PUT /api/preferences
func (h *PreferenceHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var req PreferencesRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, bindError(err))
		return
	}
	prefs, err := h.service.Replace(r.Context(), infrastructure.GetUserID(r.Context()), req.Preferences)
	h.respond(w, r, prefs, err)
}

// AddHoliday handles POST /api/preferences/holidays
func (h *PreferenceHandler) AddHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, bindError(err))
		return
	}
	prefs, err := h.service.AddHoliday(r.Context(), infrastructure.GetUserID(r.Context()), req.Holiday)
	h.respond(w, r, prefs, err)
}

// RemoveHoliday handles DELETE /api/preferences/holidays/{date}
func (h *PreferenceHandler) RemoveHoliday(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.service.RemoveHoliday(r.Context(), infrastructure.GetUserID(r.Context()), chi.URLParam(r, "date"))
	h.respond(w, r, prefs, err)
}

// SetTariff handles PUT /api/preferences/tariff
func (h *PreferenceHandler) SetTariff(w http.ResponseWriter, r *http.Request) {
	var req TariffRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, bindError(err))
		return
	}
	prefs, err := h.service.SetTariff(r.Context(), infrastructure.GetUserID(r.Context()), *req.Value)
	h.respond(w, r, prefs, err)
}

func (h *PreferenceHandler) respond(w http.ResponseWriter, r *http.Request, prefs preferences.Preferences, err error) {
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, prefs)
}

// bindError keeps API errors from Bind and reports decode failures as 400
func bindError(err error) error {
	if _, ok := err.(*apierrors.APIError); ok {
		return err
	}
	return apierrors.InvalidRequestWithError(err)
}
