package rest

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/llm-d-incubation/qsizer/internal/logger"
	"github.com/llm-d-incubation/qsizer/internal/metrics"
)

// Base REST server
type BaseServer struct {
	router   *gin.Engine
	registry *prometheus.Registry
	emitter  *metrics.MetricsEmitter
}

func NewBaseServer() *BaseServer {
	registry := prometheus.NewRegistry()
	server := &BaseServer{
		router:   gin.New(),
		registry: registry,
		emitter:  metrics.InitMetricsAndEmitter(registry),
	}
	server.router.Use(gin.Recovery(), requestLogger())
	server.router.GET("/"+MetricsVerb, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	return server
}

// Handler exposes the router, e.g. to serve it from a test server
func (server *BaseServer) Handler() *gin.Engine {
	return server.router
}

// Address of the server from the environment
func Address() string {
	var host, port string
	if host = os.Getenv(RestHostEnvName); host == "" {
		host = DefaultRestHost
	}
	if port = os.Getenv(RestPortEnvName); port == "" {
		port = DefaultRestPort
	}
	return host + ":" + port
}

// start server at the address given by the environment
func (server *BaseServer) Run() error {
	return server.RunOn(Address())
}

// start server at the given host:port
func (server *BaseServer) RunOn(addr string) error {
	logger.Log.Infow("starting REST server", "address", addr)
	return server.router.Run(addr)
}

// tag each request with an id and log it through the structured logger
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(RequestIDHeader, id)
		c.Next()
		logger.Log.Debugw("request", "id", id, "method", c.Request.Method, "path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}
