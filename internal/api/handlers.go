package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/casemap/internal/apperr"
	"github.com/starford/casemap/internal/dashboard"
	"github.com/starford/casemap/internal/dataset"
	"github.com/starford/casemap/internal/figure"
)

// Resolver is the read side of the dashboard service used by the handlers.
type Resolver interface {
	Current() (*dashboard.Snapshot, error)
	Resolve(ctx context.Context, position int) (*figure.Selection, *dashboard.Snapshot, error)
	ResolveDate(ctx context.Context, date string) (*figure.Selection, *dashboard.Snapshot, error)
}

// Handler holds API route handlers.
type Handler struct {
	svc Resolver
}

// NewHandler creates a new Handler.
func NewHandler(svc Resolver) *Handler {
	return &Handler{svc: svc}
}

// Dates handles GET /api/dates.
//
//	@Summary		List the slider dates
//	@Tags			dates
//	@Produce		json
//	@Success		200	{object}	DatesResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dates [get]
func (h *Handler) Dates(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Current()
	if err != nil {
		h.fail(w, err)
		return
	}
	dates := snap.Dates()
	writeJSONTagged(w, r, DatesResponse{
		Dates: dates,
		Count: len(dates),
		Min:   0,
		Max:   len(dates) - 1,
	})
}

// Figure handles GET /api/figure?position=N.
//
//	@Summary		Resolve a slider position to its label and map
//	@Tags			figure
//	@Produce		json
//	@Param			position	query		int		true	"Zero-based slider position"
//	@Param			clamp		query		bool	false	"Clamp out-of-range positions instead of failing"
//	@Success		200			{object}	FigureResponse
//	@Success		304
//	@Failure		400			{object}	errResponse
//	@Failure		422			{object}	RangeErrorResponse
//	@Failure		503			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/figure [get]
func (h *Handler) Figure(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	position, err := strconv.Atoi(q.Get("position"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("position must be an integer"))
		return
	}

	sel, _, err := h.svc.Resolve(r.Context(), position)
	var re *dataset.RangeError
	clamp, _ := strconv.ParseBool(q.Get("clamp"))
	if errors.As(err, &re) && re.Len > 0 && clamp {
		sel, _, err = h.svc.Resolve(r.Context(), re.Clamp())
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSONTagged(w, r, newFigureResponse(sel))
}

// FigureByDate handles GET /api/figure/date/{date}.
//
//	@Summary		Resolve a calendar date to its label and map
//	@Tags			figure
//	@Produce		json
//	@Param			date	path		string	true	"Date, YYYY-MM-DD"
//	@Success		200		{object}	FigureResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/figure/date/{date} [get]
func (h *Handler) FigureByDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := dataset.ParseDate(date); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	sel, _, err := h.svc.ResolveDate(r.Context(), date)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSONTagged(w, r, newFigureResponse(sel))
}

// Summary handles GET /api/summary.
//
//	@Summary		Describe the loaded dataset
//	@Tags			dates
//	@Produce		json
//	@Success		200	{object}	SummaryResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/summary [get]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Current()
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Summary())
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var re *dataset.RangeError
	switch {
	case errors.As(err, &re):
		writeJSON(w, http.StatusUnprocessableEntity, RangeErrorResponse{
			Error:    re.Error(),
			Position: re.Position,
			Min:      0,
			Max:      re.Max(),
		})
	case errors.Is(err, apperr.ErrNotReady):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away, or middleware.Timeout answers 504.
	default:
		slog.Error("api request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
