// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
)

// RecoveryFunc is a function type that defines how to handle panics that occur while running a terminal.
type RecoveryFunc func(c *Context, err any)

// DefaultHandleRecovery is a default implementation of the RecoveryFunc.
// It logs the recovered panic error with the Router logger, including the stack trace.
// If the response has not been written yet and the error is not caused by a broken connection,
// it sets the status code to http.StatusInternalServerError and writes a generic error message.
func DefaultHandleRecovery(c *Context, err any) {
	c.router.cfg.logger.LogAttrs(
		c.Ctx(),
		slog.LevelError,
		"panic recovered",
		slog.String("method", c.req.Method),
		slog.String("route", c.Route()),
		slog.Any("error", err),
		slog.String("stack", string(debug.Stack())),
	)
	if !c.Writer().Written() && !connIsBroken(err) {
		http.Error(c.Writer(), http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// handlePanic re-panics http.ErrAbortHandler, allowing the http server to handle it as an abort.
func handlePanic(c *Context, err any) {
	if abortErr, ok := err.(error); ok && errors.Is(abortErr, http.ErrAbortHandler) {
		panic(abortErr)
	}
	c.router.cfg.recovery(c, err)
}

func connIsBroken(err any) bool {
	if ne, ok := err.(*net.OpError); ok {
		var se *os.SyscallError
		if errors.As(ne, &se) {
			seStr := strings.ToLower(se.Error())
			return strings.Contains(seStr, "broken pipe") || strings.Contains(seStr, "connection reset by peer")
		}
	}
	return false
}
