package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fieldplot/internal/plot/models"
	dErrors "fieldplot/pkg/domain-errors"
	"fieldplot/pkg/platform/httputil"
	"fieldplot/pkg/requestcontext"
)

// Service defines the lifecycle operations the handler exposes.
type Service interface {
	CreatePlot(ctx context.Context, req *models.CreatePlotRequest) (*models.Plot, error)
	UpdatePlot(ctx context.Context, id uuid.UUID, req *models.UpdatePlotRequest) (*models.Plot, error)
	GetPlot(ctx context.Context, id uuid.UUID) (*models.Plot, error)
	GetPlotByIdentifier(ctx context.Context, identifier string) (*models.Plot, error)
	ListPlots(ctx context.Context, filter models.Filter) ([]*models.Plot, error)
	Enroll(ctx context.Context, id uuid.UUID, enrolledAt time.Time) (*models.Plot, error)
	AddLogEntry(ctx context.Context, plotID uuid.UUID, req *models.LogEntryRequest) (*models.PlotLogEntry, error)
	UpdateLogEntry(ctx context.Context, entryID uuid.UUID, req *models.LogEntryRequest) (*models.PlotLogEntry, error)
	DeleteLogEntry(ctx context.Context, entryID uuid.UUID) error
	ListLogEntries(ctx context.Context, plotID uuid.UUID) ([]*models.PlotLogEntry, error)
}

// Handler wires the plot endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a plot handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts plot endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/plots", h.HandleCreatePlot)
	r.Get("/plots", h.HandleListPlots)
	r.Get("/plots/{plotID}", h.HandleGetPlot)
	r.Patch("/plots/{plotID}", h.HandleUpdatePlot)
	r.Post("/plots/{plotID}/enroll", h.HandleEnroll)
	r.Get("/plots/{plotID}/log-entries", h.HandleListLogEntries)
	r.Post("/plots/{plotID}/log-entries", h.HandleAddLogEntry)
	r.Put("/log-entries/{entryID}", h.HandleUpdateLogEntry)
	r.Delete("/log-entries/{entryID}", h.HandleDeleteLogEntry)
}

// HandleCreatePlot handles POST /plots.
func (h *Handler) HandleCreatePlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[models.CreatePlotRequest](w, r, h.logger)
	if !ok {
		return
	}
	p, err := h.service.CreatePlot(ctx, req)
	if err != nil {
		h.logError(ctx, "create plot failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "plot created",
		"request_id", requestcontext.RequestID(ctx),
		"plot_identifier", p.PlotIdentifier,
		"map_area", p.MapArea,
	)
	httputil.WriteJSON(w, http.StatusCreated, p)
}

// HandleUpdatePlot handles PATCH /plots/{plotID}.
func (h *Handler) HandleUpdatePlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r, "plotID")
	if !ok {
		return
	}
	req, ok := httputil.Decode[models.UpdatePlotRequest](w, r, h.logger)
	if !ok {
		return
	}
	p, err := h.service.UpdatePlot(ctx, id, req)
	if err != nil {
		h.logError(ctx, "update plot failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleGetPlot handles GET /plots/{plotID}. The path segment may be either
// the plot UUID or the survey identifier field devices carry around.
func (h *Handler) HandleGetPlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := chi.URLParam(r, "plotID")
	var (
		p   *models.Plot
		err error
	)
	if id, parseErr := uuid.Parse(raw); parseErr == nil {
		p, err = h.service.GetPlot(ctx, id)
	} else {
		p, err = h.service.GetPlotByIdentifier(ctx, raw)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleListPlots handles GET /plots with listboard facets as query params.
func (h *Handler) HandleListPlots(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	plots, err := h.service.ListPlots(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if plots == nil {
		plots = []*models.Plot{}
	}
	httputil.WriteJSON(w, http.StatusOK, plots)
}

type enrollRequest struct {
	EnrolledAt time.Time `json:"enrolled_at"`
}

// HandleEnroll handles POST /plots/{plotID}/enroll.
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r, "plotID")
	if !ok {
		return
	}
	req, ok := httputil.Decode[enrollRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.EnrolledAt.IsZero() {
		req.EnrolledAt = requestcontext.Now(ctx)
	}
	p, err := h.service.Enroll(ctx, id, req.EnrolledAt)
	if err != nil {
		h.logError(ctx, "enroll plot failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandleAddLogEntry handles POST /plots/{plotID}/log-entries.
func (h *Handler) HandleAddLogEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r, "plotID")
	if !ok {
		return
	}
	req, ok := httputil.Decode[models.LogEntryRequest](w, r, h.logger)
	if !ok {
		return
	}
	entry, err := h.service.AddLogEntry(ctx, id, req)
	if err != nil {
		h.logError(ctx, "add log entry failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

// HandleUpdateLogEntry handles PUT /log-entries/{entryID}.
func (h *Handler) HandleUpdateLogEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r, "entryID")
	if !ok {
		return
	}
	req, ok := httputil.Decode[models.LogEntryRequest](w, r, h.logger)
	if !ok {
		return
	}
	entry, err := h.service.UpdateLogEntry(ctx, id, req)
	if err != nil {
		h.logError(ctx, "update log entry failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

// HandleDeleteLogEntry handles DELETE /log-entries/{entryID}.
func (h *Handler) HandleDeleteLogEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r, "entryID")
	if !ok {
		return
	}
	if err := h.service.DeleteLogEntry(ctx, id); err != nil {
		h.logError(ctx, "delete log entry failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListLogEntries handles GET /plots/{plotID}/log-entries.
func (h *Handler) HandleListLogEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "plotID")
	if !ok {
		return
	}
	entries, err := h.service.ListLogEntries(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.PlotLogEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "invalid %s", param))
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx), "error", err)
		return
	}
	h.logger.DebugContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx), "error", err)
}

func parseFilter(r *http.Request) (models.Filter, error) {
	q := r.URL.Query()
	filter := models.Filter{
		MapArea:        q.Get("map_area"),
		PlotIdentifier: q.Get("plot_identifier"),
	}
	var err error
	if filter.Accessible, err = parseBoolParam(q.Get("accessible")); err != nil {
		return filter, dErrors.New(dErrors.CodeValidation, "accessible must be true or false")
	}
	if filter.Confirmed, err = parseBoolParam(q.Get("confirmed")); err != nil {
		return filter, dErrors.New(dErrors.CodeValidation, "confirmed must be true or false")
	}
	if filter.Enrolled, err = parseBoolParam(q.Get("enrolled")); err != nil {
		return filter, dErrors.New(dErrors.CodeValidation, "enrolled must be true or false")
	}
	if filter.ESS, err = parseBoolParam(q.Get("ess")); err != nil {
		return filter, dErrors.New(dErrors.CodeValidation, "ess must be true or false")
	}
	if filter.RSS, err = parseBoolParam(q.Get("rss")); err != nil {
		return filter, dErrors.New(dErrors.CodeValidation, "rss must be true or false")
	}
	if filter.HTC, err = parseBoolParam(q.Get("htc")); err != nil {
		return filter, dErrors.New(dErrors.CodeValidation, "htc must be true or false")
	}
	if raw := q.Get("min_access_attempts"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 0 {
			return filter, dErrors.New(dErrors.CodeValidation,
				"min_access_attempts must be a non-negative integer")
		}
		filter.MinAccessAttempts = &n
	}
	return filter, nil
}

func parseBoolParam(raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
