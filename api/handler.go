package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
	statex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/state"
)

const Banner = "Support ticket workflow is running"

type TicketProcessor interface {
	ProcessTicket(ctx context.Context, ticket contractx.Ticket) (contractx.RunResult, error)
	Snapshot(ctx context.Context, runID string) (*statex.RunState, error)
	DeleteRun(ctx context.Context, runID string) error
}

type TicketRequest struct {
	Query   string `json:"query"`
	OrderID string `json:"order_id,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

type ChatRequest struct {
	Query   string `json:"query"`
	OrderID string `json:"order_id,omitempty"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

type Handler struct {
	Processor TicketProcessor
}

// NewServer returns an echo instance with every route registered.
func NewServer(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/", h.HandleBanner)
	e.GET("/health", h.HandleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.POST("/tickets", h.HandleTicket)
	e.POST("/chat", h.HandleChat)
	e.GET("/runs/:id", h.HandleGetRun)
	e.DELETE("/runs/:id", h.HandleDeleteRun)
	return e
}

func (h *Handler) HandleBanner(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": Banner})
}

func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// HandleTicket runs one ticket and returns the whole run result.
func (h *Handler) HandleTicket(c echo.Context) error {
	var req TicketRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request format"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "query is required"})
	}

	res, err := h.Processor.ProcessTicket(c.Request().Context(), contractx.Ticket{
		Query:   req.Query,
		OrderID: req.OrderID,
		RunID:   req.RunID,
	})
	if err != nil {
		return writeRunError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// HandleChat answers with the final response only.
func (h *Handler) HandleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request format"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "query is required"})
	}

	res, err := h.Processor.ProcessTicket(c.Request().Context(), contractx.Ticket{
		Query:   req.Query,
		OrderID: req.OrderID,
	})
	if err != nil {
		return writeRunError(c, err)
	}
	return c.JSON(http.StatusOK, ChatResponse{Response: res.FinalResponse})
}

func (h *Handler) HandleGetRun(c echo.Context) error {
	st, err := h.Processor.Snapshot(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, statex.ErrRunNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "run not found"})
		}
		log.Error().Err(err).Str("run_id", c.Param("id")).Msg("load run snapshot")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load run"})
	}
	return c.JSON(http.StatusOK, st)
}

// HandleDeleteRun drops a run checkpoint once the caller has consumed it.
func (h *Handler) HandleDeleteRun(c echo.Context) error {
	if err := h.Processor.DeleteRun(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, statex.ErrInvalidRun) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "run id is required"})
		}
		log.Error().Err(err).Str("run_id", c.Param("id")).Msg("delete run snapshot")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete run"})
	}
	return c.NoContent(http.StatusNoContent)
}

func writeRunError(c echo.Context, err error) error {
	if stage := contractx.FailedStage(err); stage != "" {
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Stage: stage})
	}
	if errors.Is(err, contractx.ErrValidation) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: err.Error()})
	}
	log.Error().Err(err).Msg("ticket run failed")
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
