package router

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/jiaming2012/chart-trainer/src/backtester-api/models"
	"github.com/jiaming2012/chart-trainer/src/backtester-api/services"
	"github.com/jiaming2012/chart-trainer/src/eventmodels"
)

//go:embed templates/index.html
var templatesFS embed.FS

type errorResponse struct {
	Msg  string `json:"error"`
	Type string `json:"type"`
}

func NewErrorResponse(errType string, message string) *errorResponse {
	return &errorResponse{
		Msg:  message,
		Type: errType,
	}
}

func setResponse(response interface{}, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		return fmt.Errorf("SetResponse: encode: %w", err)
	}

	return nil
}

func setErrorResponse(errType string, statusCode int, err error, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := NewErrorResponse(errType, err.Error())
	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		return encodeErr
	}

	return nil
}

// handleError writes err with the status its classification calls for. Anything that is
// neither a WebError nor a validation failure is logged and reported as a 500.
func handleError(name string, err error, w http.ResponseWriter) {
	var webErr *eventmodels.WebError
	if errors.As(err, &webErr) {
		setErrorResponse(webErr.Type, webErr.StatusCode, webErr, w)
		return
	}

	if kind, ok := models.ClassifyValidationError(err); ok {
		setErrorResponse(string(kind), http.StatusBadRequest, err, w)
		return
	}

	log.WithError(err).Errorf("%s: internal error", name)
	setErrorResponse("InternalError", http.StatusInternalServerError, err, w)
}

type Handler struct {
	service *services.SimulatorService
	limiter *rate.Limiter
	index   *template.Template
	decoder *schema.Decoder
}

type ChartDataQuery struct {
	Start int  `schema:"start"`
	Limit *int `schema:"limit"`
}

type indexPage struct {
	Balance      float64
	Mode         models.EvaluationMode
	TotalEntries int
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	balance := h.service.ResetBalance()

	total := 0
	if summary, err := h.service.Summary(); err == nil {
		total = summary.TotalEntries
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.index.Execute(w, indexPage{Balance: balance, Mode: h.service.GetMode(), TotalEntries: total}); err != nil {
		log.WithError(err).Error("handleIndex: failed to render template")
	}
}

func (h *Handler) handleGetChartData(w http.ResponseWriter, r *http.Request) {
	var query ChartDataQuery
	if err := h.decoder.Decode(&query, r.URL.Query()); err != nil {
		handleError("handleGetChartData", fmt.Errorf("%w: %v", models.MalformedInputErr, err), w)
		return
	}

	bars, err := h.service.ChartData(query.Start, query.Limit)
	if err != nil {
		handleError("handleGetChartData", err, w)
		return
	}

	if err := setResponse(eventmodels.PriceBarsToDTO(bars), w); err != nil {
		setErrorResponse("handleGetChartData: failed to set response", 500, err, w)
		return
	}
}

func (h *Handler) handleEvaluatePosition(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow() {
		handleError("handleEvaluatePosition", eventmodels.NewWebError(http.StatusTooManyRequests, "RateLimited", "too many evaluation requests", nil), w)
		return
	}

	req, err := models.DecodeEvaluatePositionRequest(r.Body)
	if err != nil {
		handleError("handleEvaluatePosition", err, w)
		return
	}

	response, err := evaluatePosition(r.Context(), h.service, req)
	if err != nil {
		handleError("handleEvaluatePosition", err, w)
		return
	}

	if err := setResponse(response, w); err != nil {
		setErrorResponse("handleEvaluatePosition: failed to set response", 500, err, w)
		return
	}
}

func (h *Handler) handleSummaryStatistics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary()
	if err != nil {
		handleError("handleSummaryStatistics", err, w)
		return
	}

	if err := setResponse(summary, w); err != nil {
		setErrorResponse("handleSummaryStatistics: failed to set response", 500, err, w)
		return
	}
}

func (h *Handler) handleLastEntries(w http.ResponseWriter, r *http.Request) {
	n, err := pathInt(r, "n")
	if err != nil {
		handleError("handleLastEntries", err, w)
		return
	}

	bars, err := h.service.LastEntries(n)
	if err != nil {
		handleError("handleLastEntries", err, w)
		return
	}

	if err := setResponse(eventmodels.PriceBarsToDTO(bars), w); err != nil {
		setErrorResponse("handleLastEntries: failed to set response", 500, err, w)
		return
	}
}

func (h *Handler) handleAveragePrice(w http.ResponseWriter, r *http.Request) {
	start, err := pathInt(r, "start")
	if err != nil {
		handleError("handleAveragePrice", err, w)
		return
	}

	end, err := pathInt(r, "end")
	if err != nil {
		handleError("handleAveragePrice", err, w)
		return
	}

	average, err := h.service.AveragePrice(start, end)
	if err != nil {
		handleError("handleAveragePrice", err, w)
		return
	}

	response := map[string]interface{}{
		"average_price": average,
	}

	if err := setResponse(response, w); err != nil {
		setErrorResponse("handleAveragePrice: failed to set response", 500, err, w)
		return
	}
}

func (h *Handler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"balance": h.service.Balance(),
	}

	if err := setResponse(response, w); err != nil {
		setErrorResponse("handleGetBalance: failed to set response", 500, err, w)
		return
	}
}

func (h *Handler) handleResetBalance(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"balance": h.service.ResetBalance(),
	}

	if err := setResponse(response, w); err != nil {
		setErrorResponse("handleResetBalance: failed to set response", 500, err, w)
		return
	}
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"history": h.service.History(),
	}

	if err := setResponse(response, w); err != nil {
		setErrorResponse("handleHistory: failed to set response", 500, err, w)
		return
	}
}

func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", models.MalformedInputErr, name)
	}

	return v, nil
}

// SetupHandler registers the simulator routes on router. A rateLimit of 0 disables the
// limiter on the evaluate route.
func SetupHandler(router *mux.Router, service *services.SimulatorService, rateLimit float64, burst int) (*Handler, error) {
	index, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("SetupHandler: failed to parse index template: %w", err)
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	h := &Handler{
		service: service,
		index:   index,
		decoder: decoder,
	}

	if rateLimit > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(rateLimit), burst)
	}

	// handleFunc tags each route with its pattern for the HTTP instrumentation.
	handleFunc := func(pattern string, handlerFunc func(http.ResponseWriter, *http.Request), method string) {
		handler := otelhttp.WithRouteTag(pattern, http.HandlerFunc(handlerFunc))
		router.Handle(pattern, handler).Methods(method)
	}

	handleFunc("/", h.handleIndex, http.MethodGet)
	handleFunc("/get_chart_data", h.handleGetChartData, http.MethodGet)
	handleFunc("/evaluate_position", h.handleEvaluatePosition, http.MethodPost)
	handleFunc("/summary_statistics", h.handleSummaryStatistics, http.MethodGet)
	handleFunc("/last_entries/{n}", h.handleLastEntries, http.MethodGet)
	handleFunc("/average_price/{start}/{end}", h.handleAveragePrice, http.MethodGet)
	handleFunc("/get_balance", h.handleGetBalance, http.MethodGet)
	handleFunc("/reset_balance", h.handleResetBalance, http.MethodPost)
	handleFunc("/history", h.handleHistory, http.MethodGet)

	return h, nil
}
