package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "impactcli/internal/errors"
	"impactcli/internal/impact"
	"impactcli/internal/middleware"
	"impactcli/internal/services"
)

// Paging limits for difference rows
const (
	defaultDifferenceLimit = 100
	maxDifferenceLimit     = 10000
)

// filteredRequest is the body of the distribution and summary queries
type filteredRequest struct {
	Filters []impact.Filter `json:"filters" validate:"dive"`
}

// breakdownRequest is the body of POST /breakdown. Dimensions beyond the
// supported depth are clipped with a warning rather than rejected.
type breakdownRequest struct {
	Item       string          `json:"item" validate:"required,column"`
	Dimensions []string        `json:"dimensions" validate:"required,min=1,unique,dive,column"`
	Series     impact.Series   `json:"series" validate:"omitempty,oneof=primary renewal"`
	Filters    []impact.Filter `json:"filters" validate:"dive"`
}

// exportRequest is the body of POST /export. Directory names a folder under
// the configured output directory.
type exportRequest struct {
	Directory string `json:"directory" validate:"omitempty,filename"`
	Workbook  bool   `json:"workbook"`
}

// AnalysisHandler handles analysis HTTP requests with RFC 7807 errors
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	validator    *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &AnalysisHandler{
		service:      service,
		validator:    middleware.NewValidationMiddleware(logger, errorHandler),
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(h.validator.ValidateRequest)

	r.Get("/", h.GetCurrent)
	r.Post("/run", h.Run)
	r.Get("/filters", h.GetFilters)
	r.Get("/differences", h.GetDifferences)
	r.Post("/distribution", h.Distribution)
	r.Post("/summary", h.Summary)
	r.Post("/breakdown", h.Breakdown)
	r.Post("/export", h.Export)

	return r
}

// Run handles POST /api/analysis/run
func (h *AnalysisHandler) Run(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "analysis run requested",
		slog.String("request_id", middleware.GetRequestID(r.Context())))

	run, err := h.service.Run(r.Context(), services.TriggerHTTP)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   run.Summary(),
	})
}

// GetCurrent handles GET /api/analysis
func (h *AnalysisHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Current()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   run.Summary(),
	})
}

// GetFilters handles GET /api/analysis/filters?columns=a,b
func (h *AnalysisHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	var columns []string
	for _, c := range strings.Split(r.URL.Query().Get("columns"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}

	opts, err := h.service.FilterOptions(r.Context(), columns)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   opts,
		"count":  len(opts),
	})
}

// GetDifferences handles GET /api/analysis/differences?item=&offset=&limit=
func (h *AnalysisHandler) GetDifferences(w http.ResponseWriter, r *http.Request) {
	item := strings.TrimSpace(r.URL.Query().Get("item"))
	if item == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("item", "item is required"))
		return
	}
	offset, ok := h.query.ValidateInt(w, r, "offset", 0, maxDifferenceLimit*1000, 0)
	if !ok {
		return
	}
	limit, ok := h.query.ValidateInt(w, r, "limit", 1, maxDifferenceLimit, defaultDifferenceLimit)
	if !ok {
		return
	}

	page, err := h.service.Differences(r.Context(), item, offset, limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   page,
		"count":  len(page.Rows),
	})
}

// Distribution handles POST /api/analysis/distribution
func (h *AnalysisHandler) Distribution(w http.ResponseWriter, r *http.Request) {
	var req filteredRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	dist, err := h.service.Distribution(r.Context(), req.Filters)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   dist,
	})
}

// Summary handles POST /api/analysis/summary
func (h *AnalysisHandler) Summary(w http.ResponseWriter, r *http.Request) {
	var req filteredRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summaries, err := h.service.Summary(r.Context(), req.Filters)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summaries,
		"count":  len(summaries),
	})
}

// Breakdown handles POST /api/analysis/breakdown
func (h *AnalysisHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	var req breakdownRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	b, err := h.service.Breakdown(r.Context(), impact.BreakdownRequest{
		Item:       req.Item,
		Dimensions: req.Dimensions,
		Series:     req.Series,
		Filters:    req.Filters,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   b,
		"count":  len(b.Rows),
	})
}

// Export handles POST /api/analysis/export
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	paths, err := h.service.Export(r.Context(), req.Directory, req.Workbook)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "reports exported",
		slog.Int("files", len(paths)),
		slog.String("request_id", middleware.GetRequestID(r.Context())))
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   paths,
		"count":  len(paths),
	})
}
