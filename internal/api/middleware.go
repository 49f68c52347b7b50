package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDHeader = "X-Request-ID"
	requestLogKey   = "requestLog"
)

// RequestLogger 为每个请求分配 ID 并记录耗时
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(requestIDHeader, id)

		logger := log.With().Str("module", "api").Str("request", id).Logger()
		c.Set(requestLogKey, logger)

		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("请求完成")
	}
}

func requestLog(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(requestLogKey); ok {
		if logger, ok := v.(zerolog.Logger); ok {
			return &logger
		}
	}
	logger := log.With().Str("module", "api").Logger()
	return &logger
}
