package engine

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sgf_review/internal/bootstrap"
	"sgf_review/internal/domain"
	errs "sgf_review/internal/errors"
	"sgf_review/internal/httpresponse"
	"sgf_review/internal/utils"
)

// PositionAnalyzer searches the position reached by plays from an empty board.
type PositionAnalyzer interface {
	AnalyzePlays(ctx context.Context, plays domain.History, seconds int) (domain.Color, domain.PositionStats, []domain.CandidateMove, error)
}

type AnalyzeRequest struct {
	Moves   domain.History `json:"moves"`
	Seconds int            `json:"seconds,omitempty"`
}

type AnalyzeResponse struct {
	RequestID  string                 `json:"request_id"`
	ToMove     domain.Color           `json:"to_move"`
	Stats      domain.PositionStats   `json:"stats"`
	Candidates []domain.CandidateMove `json:"candidates"`
}

type EngineHandler struct {
	cfg      bootstrap.Config
	log      *zap.SugaredLogger
	analyzer PositionAnalyzer

	// one engine process serves every request
	mu sync.Mutex
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewEngineHandler(cfg bootstrap.Config, log *zap.SugaredLogger, analyzer PositionAnalyzer) *EngineHandler {
	return &EngineHandler{cfg: cfg, log: log, analyzer: analyzer}
}

func (h *EngineHandler) Router(r chi.Router) {
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/healthz", h.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/analyze", h.HandleAnalyze)
	r.Get("/ws/analyze", h.HandleAnalyzeStream)
}

func (h *EngineHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, "ok")
}

func (h *EngineHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	log := h.log.With("request_id", requestID)

	var req AnalyzeRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		log.Debugw("bad request", "error", err)
		httpresponse.WriteError(w, http.StatusBadRequest, requestID, err.Error())
		return
	}

	resp, err := h.analyze(r.Context(), requestID, req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Errorw("analysis failed", "error", err)
		}
		httpresponse.WriteError(w, status, requestID, err.Error())
		return
	}

	log.Infow("analyzed", "moves", len(req.Moves), "visits", resp.Stats.VisitCount())
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, resp)
}

// HandleAnalyzeStream answers every AnalyzeRequest read from the socket
// with an AnalyzeResponse, or an ErrorResponse, until the client hangs up.
func (h *EngineHandler) HandleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorw("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		var req AnalyzeRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debugw("websocket read", "error", err)
			}
			return
		}

		requestID := uuid.NewString()
		resp, err := h.analyze(ctx, requestID, req)
		if err != nil {
			h.log.Warnw("streamed analysis failed", "request_id", requestID, "error", err)
			if err := conn.WriteJSON(httpresponse.ErrorResponse{RequestID: requestID, ErrorDescription: err.Error()}); err != nil {
				return
			}
			continue
		}
		if err := conn.WriteJSON(resp); err != nil {
			h.log.Debugw("websocket write", "error", err)
			return
		}
	}
}

func (h *EngineHandler) analyze(ctx context.Context, requestID string, req AnalyzeRequest) (AnalyzeResponse, error) {
	if _, err := req.Moves.Commands(h.cfg.BoardSize); err != nil {
		return AnalyzeResponse{}, err
	}
	seconds := req.Seconds
	if seconds <= 0 {
		seconds = h.cfg.AnalyzeTime
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	toMove, stats, cands, err := h.analyzer.AnalyzePlays(ctx, req.Moves, seconds)
	if err != nil {
		return AnalyzeResponse{}, err
	}
	return AnalyzeResponse{RequestID: requestID, ToMove: toMove, Stats: stats, Candidates: cands}, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrBadCoordinate), errors.Is(err, errs.ErrBadColor):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrLaunchFailed), errors.Is(err, errs.ErrEngineNotRunning):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrCommandTimeout), errors.Is(err, errs.ErrAnalysisIncomplete):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}
