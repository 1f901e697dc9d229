package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RegisterRoutes adds the versioned API routes to rg.
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	users := rg.Group("/users/:user", h.withSession)
	users.GET("/bundle", h.HandleBundle)
	users.POST("/ask", h.HandleAsk)
	rg.GET("/tables/:table", h.HandleList)
	rg.POST("/tables/:table", h.HandleInsert)
	rg.PATCH("/tables/:table/:id", h.HandleUpdate)
}

// NewRouter returns an engine serving the API under /v1 plus /healthz and
// /metrics.
func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.logger))

	router.GET("/healthz", h.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterRoutes(router.Group("/v1"), h)
	return router
}

// requestLogger logs one debug line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// Serve runs router on addr until ctx is cancelled, then shuts down with a
// grace period.
func Serve(ctx context.Context, addr string, router http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
