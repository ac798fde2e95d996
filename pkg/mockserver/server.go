// Package mockserver is an in-memory implementation of the AgentSmith
// backend used for local development and tests.
package mockserver

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// NewRouter wires the handler, request logging, CORS and /metrics onto a
// fresh gin engine.
func NewRouter(svc *Service, reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(svc.Logger.With(slog.String("component", "mockserver")), NewMetrics(reg)))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
	}))

	NewHandler(svc, reg).RegisterRoutes(r)
	return r
}
