// Package accesslog はリクエストごとのアクセスログを出力する
package accesslog

import (
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader はリクエストIDを返すレスポンスヘッダー
	RequestIDHeader = "X-Request-Id"

	requestIDKey = "request_id"
	timeLayout   = "02/Jan/2006 15:04:05"
)

// RequestID はリクエストごとにIDを払い出すミドルウェア
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Logger はアクセスログを out に書き出すミドルウェア
func Logger(out io.Writer) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: Format,
		Output:    out,
	})
}

// Format はアクセスログ1行を組み立てる
//
//	127.0.0.1 - - [19/Oct/2026 09:12:03] "GET /index.html HTTP/1.1" 200 1234 1.2ms id=...
func Format(p gin.LogFormatterParams) string {
	proto := "HTTP/1.1"
	if p.Request != nil {
		proto = p.Request.Proto
	}

	size := "-"
	if p.BodySize > 0 {
		size = fmt.Sprintf("%d", p.BodySize)
	}

	line := fmt.Sprintf("%s - - [%s] \"%s %s %s\" %d %s %s",
		p.ClientIP,
		p.TimeStamp.Format(timeLayout),
		p.Method,
		p.Path,
		proto,
		p.StatusCode,
		size,
		p.Latency.Round(time.Microsecond),
	)

	if id, ok := p.Keys[requestIDKey].(string); ok {
		line += " id=" + id
	}
	if p.ErrorMessage != "" {
		line += " error=" + p.ErrorMessage
	}

	return line + "\n"
}
