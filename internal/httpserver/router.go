package httpserver

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"renomarket/internal/handler"
	"renomarket/pkg/metrics"
	"renomarket/pkg/mq"
)

type Handlers struct {
	Projects   *handler.ProjectHandler
	Proposals  *handler.ProposalHandler
	Milestones *handler.MilestoneHandler
	Requests   *handler.RequestHandler
}

func NewRouter(h Handlers, logger *zap.Logger, db *pgxpool.Pool, publisher *mq.Publisher, jwtSecret string) *gin.Engine {
	r := gin.Default()

	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), latency)
	})

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if publisher != nil && !publisher.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(AuthMiddleware(jwtSecret))

	api.POST("/projects", h.Projects.Create)
	api.GET("/projects", h.Projects.List)
	api.GET("/projects/:id", h.Projects.Get)
	api.PUT("/projects/:id", h.Projects.Update)
	api.DELETE("/projects/:id", h.Projects.Delete)
	api.POST("/projects/:id/publish", h.Projects.Publish)
	api.POST("/projects/:id/unpublish", h.Projects.Unpublish)
	api.GET("/projects/:id/providers", h.Projects.ListProviders)

	api.POST("/proposals", h.Proposals.Submit)
	api.GET("/proposals", h.Proposals.ListMine)
	api.POST("/proposals/:id/accept", h.Proposals.Accept)
	api.POST("/proposals/:id/reject", h.Proposals.Reject)
	api.GET("/projects/:id/proposals", h.Proposals.ListForProject)

	api.POST("/projects/:id/milestones", h.Milestones.Create)
	api.GET("/projects/:id/milestones", h.Milestones.ListForProject)
	api.PUT("/milestones/:id", h.Milestones.Update)
	api.DELETE("/milestones/:id", h.Milestones.Delete)
	api.POST("/milestones/:id/status", h.Milestones.SetStatus)

	api.GET("/requests", h.Requests.List)
	api.POST("/requests/:projectId/respond", h.Requests.Respond)

	return r
}
