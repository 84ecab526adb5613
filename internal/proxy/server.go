package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	config "github.com/vigil-data/vigil/configs"
	"github.com/vigil-data/vigil/internal/metrics"
)

// Request is one forwarding instruction. The proxy is stateless: it forwards
// the request as given and reports the upstream outcome without interpreting
// the body.
type Request struct {
	URL            string            `json:"url" binding:"required"`
	Method         string            `json:"method"`
	Payload        json.RawMessage   `json:"payload"`
	Headers        map[string]string `json:"headers"`
	TimeoutSeconds int               `json:"timeout"`
	IncludeMeta    bool              `json:"include_meta"`
}

type Meta struct {
	DurationMS int64 `json:"duration_ms"`
	Attempts   int   `json:"attempts"`
}

type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
	Error      string `json:"error,omitempty"`
	Meta       *Meta  `json:"meta,omitempty"`
}

// Server forwards HTTP requests on behalf of rate-limited callers. Upstream
// 429s are retried with exponential backoff up to the configured attempt
// count, then surfaced to the caller rather than retried indefinitely.
type Server struct {
	cfg    config.ProxyConfig
	engine *gin.Engine
	client *resty.Client
}

func NewServer(cfg config.ProxyConfig) *Server {
	client := resty.New().
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetRetryCount(maxRetries(cfg.MaxAttempts)).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(16 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil || r == nil {
				return false
			}
			if r.StatusCode() == http.StatusTooManyRequests {
				metrics.ProxyRateLimited.Inc()
				return true
			}
			return false
		})

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{cfg: cfg, engine: engine, client: client}
	engine.POST("/proxy", s.handleProxy)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return s
}

func (s *Server) Run() error {
	log.Info().Str("addr", s.cfg.Addr).Msg("proxy listening")
	return s.engine.Run(s.cfg.Addr)
}

func (s *Server) handleProxy(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{StatusCode: http.StatusBadRequest, Error: err.Error()})
		return
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	start := time.Now()
	metrics.ProxiedRequests.Inc()

	r := s.client.R().SetContext(c.Request.Context()).SetHeaders(req.Headers)
	if len(req.Payload) > 0 {
		if _, ok := req.Headers["Content-Type"]; !ok {
			r.SetHeader("Content-Type", "application/json")
		}
		r.SetBody([]byte(req.Payload))
	}
	if req.TimeoutSeconds > 0 {
		// Per-request timeout override; resty timeouts are client-level, so
		// bound this request through its context instead.
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(req.TimeoutSeconds)*time.Second)
		defer cancel()
		r.SetContext(ctx)
	}

	upstream, err := r.Execute(method, req.URL)

	resp := Response{}
	switch {
	case err != nil:
		resp.Error = err.Error()
	default:
		resp.StatusCode = upstream.StatusCode()
		resp.Body = string(upstream.Body())
		if !upstream.IsSuccess() {
			resp.Error = http.StatusText(upstream.StatusCode())
		}
	}

	if req.IncludeMeta {
		attempts := 1
		if upstream != nil && upstream.Request.Attempt > 0 {
			attempts = upstream.Request.Attempt
		}
		resp.Meta = &Meta{
			DurationMS: time.Since(start).Milliseconds(),
			Attempts:   attempts,
		}
	}

	c.JSON(http.StatusOK, resp)
}

func maxRetries(maxAttempts int) int {
	if maxAttempts < 1 {
		return 0
	}
	return maxAttempts - 1
}

// requestLogger logs each forwarded request with zerolog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Debug().
			Str("path", path).
			Str("method", c.Request.Method).
			Int("status", c.Writer.Status()).
			Str("ip", c.ClientIP()).
			Dur("latency", time.Since(start)).
			Msg("incoming request")
	}
}
