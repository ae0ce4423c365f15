package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ElemPulse/internal/elemental"

	models "ElemPulse/internal/domain/models"
	domrepo "ElemPulse/internal/domain/repository"
	icache "ElemPulse/internal/service/cache"
	"ElemPulse/internal/service/metrics"
	"ElemPulse/internal/service/ratelimit"
	"ElemPulse/internal/usecase"
	xhttp "ElemPulse/pkg/http"
	xlogger "ElemPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// InsightsEchoHandler exposes the insight engine over HTTP following Clean
// Architecture. Read endpoints are rate limited per client and served from a
// short-lived byte cache.
type InsightsEchoHandler struct {
	logger   *xlogger.Logger
	insights *usecase.InsightService
	proc     *usecase.TelemetryProcessor
	history  *usecase.HistoryUseCase
	overview *usecase.OverviewUseCase
	cache    icache.BytesCache
	rl       *ratelimit.Limiter
}

func NewInsightsEchoHandler(
	logger *xlogger.Logger,
	proc *usecase.TelemetryProcessor,
	history *usecase.HistoryUseCase,
	overview *usecase.OverviewUseCase,
) *InsightsEchoHandler {
	metrics.Register()
	return &InsightsEchoHandler{
		logger:   logger,
		insights: proc.Insights(),
		proc:     proc,
		history:  history,
		overview: overview,
		rl:       ratelimit.New(),
	}
}

// SetCache injects a byte cache for read endpoints.
func (h *InsightsEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *InsightsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/elemental")
	g.GET("/entity", h.Entity)
	g.GET("/entities", h.Entities)
	g.GET("/consensus", h.Consensus)
	g.GET("/ledger", h.Ledger)
	g.GET("/overview", h.Overview)
	g.GET("/history", h.History)
	g.POST("/score", h.Score)
	g.POST("/telemetry", h.Telemetry)
	g.POST("/contributions", h.Contribution)
}

// Entity returns the merged profile snapshot for one tracked entity.
func (h *InsightsEchoHandler) Entity(c echo.Context) error {
	endpoint := "entity"
	defer h.observe(endpoint, time.Now())

	req := &models.EntityInsightRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if limited := h.throttle(c, endpoint); limited != nil {
		return limited
	}
	key := "entity:" + req.Entity
	if hit := h.cached(c, endpoint, key); hit != nil {
		return hit
	}

	snap, err := h.insights.EntityInsight(req.Entity)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return h.respond(c, key, 15*time.Second, snap)
}

// Entities lists tracked entity keys.
func (h *InsightsEchoHandler) Entities(c echo.Context) error {
	endpoint := "entities"
	defer h.observe(endpoint, time.Now())
	return xhttp.SuccessResponse(c, h.insights.Entities())
}

// Consensus returns the cross-entity consensus ranking.
func (h *InsightsEchoHandler) Consensus(c echo.Context) error {
	endpoint := "consensus"
	defer h.observe(endpoint, time.Now())

	req := &models.ConsensusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if limited := h.throttle(c, endpoint); limited != nil {
		return limited
	}
	key := "consensus:" + req.Subject
	if hit := h.cached(c, endpoint, key); hit != nil {
		return hit
	}

	rows, err := h.insights.Consensus(req.Subject)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return h.respond(c, key, 15*time.Second, rows)
}

// Ledger returns either one archetype summary or the holistic snapshot.
func (h *InsightsEchoHandler) Ledger(c echo.Context) error {
	endpoint := "ledger"
	defer h.observe(endpoint, time.Now())

	req := &models.LedgerSummaryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if limited := h.throttle(c, endpoint); limited != nil {
		return limited
	}
	if req.Archetype == "" {
		key := "ledger:snapshot"
		if hit := h.cached(c, endpoint, key); hit != nil {
			return hit
		}
		return h.respond(c, key, 10*time.Second, h.insights.LedgerSnapshot())
	}

	a, err := elemental.ParseArchetype(req.Archetype)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	sum, err := h.insights.LedgerSummary(a)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, sum)
}

// Overview returns entity snapshot, consensus, and ledger in one view.
func (h *InsightsEchoHandler) Overview(c echo.Context) error {
	endpoint := "overview"
	defer h.observe(endpoint, time.Now())

	req := &models.EntityInsightRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if limited := h.throttle(c, endpoint); limited != nil {
		return limited
	}

	res, err := h.overview.GetOverview(c.Request().Context(), usecase.GetOverviewParams{
		Entity:  req.Entity,
		Subject: c.QueryParam("subject"),
	})
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// History returns persisted snapshot rows for an entity.
func (h *InsightsEchoHandler) History(c echo.Context) error {
	endpoint := "history"
	defer h.observe(endpoint, time.Now())

	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if limited := h.throttle(c, endpoint); limited != nil {
		return limited
	}

	now := time.Now().UTC()
	res, err := h.history.GetHistory(c.Request().Context(), usecase.GetHistoryParams{
		Entity:      req.Entity,
		From:        xhttp.ParseTimeDefault(req.From, now.Add(-24*time.Hour)),
		To:          xhttp.ParseTimeDefault(req.To, now),
		Granularity: domrepo.NormalizeGranularity(req.Granularity),
		Limit:       req.Limit,
	})
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Score runs a stateless scoring pass over the posted readings.
func (h *InsightsEchoHandler) Score(c echo.Context) error {
	endpoint := "score"
	defer h.observe(endpoint, time.Now())

	req := &models.ScoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.insights.Score(req.Readings()))
}

// Telemetry ingests one observation through the processing pipeline.
func (h *InsightsEchoHandler) Telemetry(c echo.Context) error {
	endpoint := "telemetry"
	defer h.observe(endpoint, time.Now())

	req := &models.RecordTelemetryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rec := req.Record(time.Now().Unix())
	if err := h.proc.Process(c.Request().Context(), rec); err != nil {
		return h.fail(c, endpoint, err)
	}
	h.invalidate("entity:" + rec.Entity)
	return xhttp.CreatedResponse(c, map[string]string{"entity": rec.Entity})
}

// Contribution appends one raw ledger contribution.
func (h *InsightsEchoHandler) Contribution(c echo.Context) error {
	endpoint := "contributions"
	defer h.observe(endpoint, time.Now())

	req := &models.ContributionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	contrib, err := h.insights.RecordContribution(req.Record(time.Now().Unix()))
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	h.invalidate("ledger:snapshot")
	return xhttp.CreatedResponse(c, contrib)
}

func (h *InsightsEchoHandler) observe(endpoint string, start time.Time) {
	metrics.InsightLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// throttle returns a non-nil 429 response when the client is over budget.
func (h *InsightsEchoHandler) throttle(c echo.Context, endpoint string) error {
	if h.rl.Allow(c.RealIP()+":"+endpoint, 5, 2) {
		return nil
	}
	h.logger.Warn("insights rate_limited",
		xlogger.String("endpoint", endpoint),
		xlogger.String("remote", c.RealIP()))
	return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
}

// cached returns a non-nil response when the key is present in the byte cache.
func (h *InsightsEchoHandler) cached(c echo.Context, endpoint, key string) error {
	if h.cache == nil {
		return nil
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		h.logger.Warn("insights cache_get_error", xlogger.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	h.logger.Debug("insights cache_hit",
		xlogger.String("endpoint", endpoint),
		xlogger.String("key", key))
	return c.JSONBlob(http.StatusOK, b)
}

// respond writes the standard envelope and stores its bytes under key.
func (h *InsightsEchoHandler) respond(c echo.Context, key string, ttl time.Duration, data interface{}) error {
	if h.cache != nil {
		if b, err := json.Marshal(xhttp.APIResponse{
			Status:  http.StatusOK,
			Message: http.StatusText(http.StatusOK),
			Data:    data,
		}); err == nil {
			if cerr := h.cache.SetBytes(key, b, ttl); cerr != nil {
				h.logger.Warn("insights cache_set_error", xlogger.Error(cerr))
			}
		}
	}
	return xhttp.SuccessResponse(c, data)
}

func (h *InsightsEchoHandler) invalidate(key string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Delete(key); err != nil {
		h.logger.Warn("insights cache_delete_error", xlogger.Error(err))
	}
}

func (h *InsightsEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	metrics.InsightErrors.WithLabelValues(endpoint).Inc()
	h.logger.Error("insights usecase error",
		xlogger.String("endpoint", endpoint),
		xlogger.Error(err))
	switch {
	case errors.Is(err, elemental.ErrEmptyState):
		return xhttp.NotFoundResponse(c, err.Error())
	case errors.Is(err, elemental.ErrInvalidInput):
		return xhttp.BadRequestResponse(c, err.Error())
	}
	return xhttp.AppErrorResponse(c, err)
}
