// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tigerwill90/waypoint/internal/slogpretty"
)

var defaultHandler slog.Handler = slogpretty.DefaultHandler

// LoggerWithHandler returns a middleware that logs request information using the provided slog.Handler.
// It logs details such as the remote IP, HTTP method, request path, status code and latency.
func LoggerWithHandler(handler slog.Handler) func(next http.Handler) http.Handler {
	log := slog.New(handler)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := NewResponseWriter(w)
			next.ServeHTTP(rw, r)
			latency := time.Since(start)

			lvl := level(rw.Status())
			ipStr, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ipStr = r.RemoteAddr
			}

			attrs := []slog.Attr{
				slog.Int("status", rw.Status()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.String()),
				slog.Duration("latency", roundLatency(latency)),
			}
			if lvl == slog.LevelDebug {
				if location := rw.Header().Get(HeaderLocation); location != "" {
					attrs = append(attrs, slog.String("location", location))
				}
			}
			log.LogAttrs(r.Context(), lvl, ipStr, attrs...)
		})
	}
}

// Logger returns a middleware that logs request information to os.Stdout and os.Stderr.
// It logs details such as the remote IP, HTTP method, request path, status code and latency.
func Logger() func(next http.Handler) http.Handler {
	return LoggerWithHandler(slogpretty.DefaultHandler)
}

func level(status int) slog.Level {
	switch {
	case status >= 200 && status < 300:
		return slog.LevelInfo
	case status >= 300 && status < 400:
		return slog.LevelDebug
	case status >= 400 && status < 500:
		return slog.LevelWarn
	case status >= 500:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func roundLatency(d time.Duration) time.Duration {
	switch {
	case d < 1*time.Microsecond:
		return d.Round(100 * time.Nanosecond)
	case d < 1*time.Millisecond:
		return d.Round(10 * time.Microsecond)
	case d < 10*time.Millisecond:
		return d.Round(100 * time.Microsecond)
	case d < 100*time.Millisecond:
		return d.Round(1 * time.Millisecond)
	case d < 1*time.Second:
		return d.Round(10 * time.Millisecond)
	case d < 10*time.Second:
		return d.Round(100 * time.Millisecond)
	default:
		return d.Round(1 * time.Second)
	}
}
