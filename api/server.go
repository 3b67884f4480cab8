// Package api exposes on-demand scrapes over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/eptexts/collector"
	"github.com/pevans/eptexts/config"
	"github.com/pevans/eptexts/document"
	"github.com/pevans/eptexts/logger"
)

const shutdownTimeout = 5 * time.Second

// RunFunc performs one scrape for the given configuration.
type RunFunc func(ctx context.Context, cfg *config.Config, log logger.Logger) (*collector.Result, error)

// Server runs a scrape for every documents request, using its base
// configuration overridden by the request's query parameters.
type Server struct {
	cfg *config.Config
	log logger.Logger
	run RunFunc
}

// NewServer creates a server for cfg.
func NewServer(cfg *config.Config, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		cfg: cfg,
		log: log.With(logger.String("component", "api")),
		run: collector.Run,
	}
}

// DocumentsResponse is the body of GET /api/v1/documents. Error is set
// when the run failed; Records then holds whatever was gathered first.
type DocumentsResponse struct {
	RunID    string            `json:"run_id"`
	Mode     string            `json:"mode"`
	Pages    int               `json:"pages"`
	Skipped  int               `json:"skipped"`
	Defaults map[string]int    `json:"defaults"`
	Records  []document.Record `json:"records"`
	Error    *ErrorDetail      `json:"error,omitempty"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SetupRouter configures the Gin router with the documents API routes.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Add CORS middleware
	router.Use(func(ctx *gin.Context) {
		ctx.Header("Access-Control-Allow-Origin", "*")
		ctx.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusOK)
			return
		}

		ctx.Next()
	})

	router.GET("/healthz", s.HandleHealth)

	api := router.Group("/api/v1")
	api.GET("/documents", s.HandleDocuments)

	return router
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// HandleHealth handles GET /healthz.
func (s *Server) HandleHealth(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleDocuments handles GET /api/v1/documents. It responds 400 when the
// query is invalid, 502 when the source could not be retrieved (with the
// partial records) and 200 otherwise.
func (s *Server) HandleDocuments(ctx *gin.Context) {
	cfg := *s.cfg

	if mode := ctx.Query("mode"); mode != "" {
		cfg.Mode = mode
	}
	if start, ok := ctx.GetQuery("start_date"); ok {
		cfg.StartDate = start
	}
	if end, ok := ctx.GetQuery("end_date"); ok {
		cfg.EndDate = end
	}
	if maxPages := ctx.Query("max_pages"); maxPages != "" {
		n, err := strconv.Atoi(maxPages)
		if err != nil || n < 0 {
			ctx.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", "Invalid max_pages parameter"))
			return
		}
		cfg.MaxPages = n
	}

	result, err := s.run(ctx.Request.Context(), &cfg, s.log)
	if result == nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Scrape produced no result"))
		return
	}

	response := DocumentsResponse{
		RunID:    result.RunID.String(),
		Mode:     cfg.Mode,
		Pages:    result.Pages,
		Skipped:  len(result.Skipped),
		Defaults: result.Defaults,
		Records:  result.Records,
	}
	if response.Records == nil {
		response.Records = []document.Record{}
	}

	status := http.StatusOK
	switch {
	case err == nil:
	case collector.IsConfigurationError(err):
		status = http.StatusBadRequest
		response.Error = &ErrorDetail{Code: "invalid_parameter", Message: err.Error()}
	case collector.IsRetrievalError(err):
		status = http.StatusBadGateway
		response.Error = &ErrorDetail{Code: "retrieval_failed", Message: err.Error()}
	default:
		status = http.StatusInternalServerError
		response.Error = &ErrorDetail{Code: "internal_error", Message: err.Error()}
	}

	if err != nil {
		s.log.Warn("Scrape request failed",
			logger.String("mode", cfg.Mode),
			logger.Int("status", status),
			logger.Error(err))
	}

	ctx.JSON(status, response)
}

// ListenAndServe serves the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.SetupRouter(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting documents API server", logger.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
		s.log.Info("Shutting down documents API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
