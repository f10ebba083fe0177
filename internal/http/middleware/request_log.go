package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/http/response"
	"github.com/yungbote/firstflame-backend/internal/platform/ctxutil"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

type RequestLogOptions struct {
	// QuietPaths are logged at debug level unless they fail.
	QuietPaths []string
	// StreamPaths are long-lived; their line reports how long the stream stayed open.
	StreamPaths []string
}

func RequestLogger(log *logger.Logger, opts RequestLogOptions) gin.HandlerFunc {
	quiet := pathSet(opts.QuietPaths)
	streams := pathSet(opts.StreamPaths)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if day := c.Param("day"); day != "" {
			fields = append(fields, "day", day)
		}
		if code := c.GetString(response.ErrorCodeKey); code != "" {
			fields = append(fields, "error_code", code)
		}
		fields = append(fields, ctxutil.LogFields(c.Request.Context())...)
		if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
			if rd.UserID != uuid.Nil {
				fields = append(fields, "user_id", rd.UserID.String())
			}
			if rd.SessionID != uuid.Nil {
				fields = append(fields, "session_id", rd.SessionID.String())
			}
		}

		msg := "HTTP request"
		if streams[path] {
			msg = "SSE stream closed"
		}
		switch {
		case status >= 500:
			log.Error(msg, fields...)
		case status >= 400:
			log.Warn(msg, fields...)
		case quiet[path]:
			log.Debug(msg, fields...)
		default:
			log.Info(msg, fields...)
		}
	}
}

func pathSet(paths []string) map[string]bool {
	out := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out[p] = true
		}
	}
	return out
}
