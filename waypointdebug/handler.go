// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypointdebug

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/tigerwill90/waypoint"
)

var Version = "v0.1.0"

// DebugHandler returns a HandlerFunc that responds with detailed system and request information. Additionally, if a
// "sleep" query parameter is provided with a valid duration, the handler will sleep for the specified duration
// before responding. This function may leak sensitive information and is only useful for debugging purposes, providing
// a comprehensive overview of the incoming request and the system it is running on.
func DebugHandler() waypoint.HandlerFunc {
	return func(c *waypoint.Context) error {
		if sleep := c.QueryParam("sleep"); sleep != "" {
			if d, err := time.ParseDuration(sleep); err == nil {
				time.Sleep(d)
			}
		}

		c.SetHeader("Server", fmt.Sprintf("waypoint %s", Version))
		return c.String(http.StatusOK, "%s", dumpSysInfo(c))
	}
}

func dumpSysInfo(c *waypoint.Context) string {
	req := c.Request()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	requestDump, err := httputil.DumpRequest(req, true)
	if err != nil {
		requestDump = []byte("Failed to dump request")
	}

	rt := c.Router()

	var builder strings.Builder
	builder.WriteString("Waypoint: content routing core\n")
	builder.WriteString("Version: ")
	builder.WriteString(Version)
	builder.WriteString("\n\n")
	builder.WriteString("Router Information:\n")
	builder.WriteString("Build: ")
	builder.WriteString(rt.ID())
	builder.WriteByte('\n')
	builder.WriteString("Built At: ")
	builder.WriteString(rt.BuiltAt().Format(time.RFC3339))
	builder.WriteByte('\n')
	builder.WriteString("Interned Tokens: ")
	builder.WriteString(strconv.Itoa(rt.Lookup().Len()))
	builder.WriteByte('\n')
	builder.WriteString("Registered route:\n")
	for ep := range rt.Endpoints() {
		builder.WriteString("- ")
		builder.WriteString(ep.Method)
		builder.WriteString(" ")
		builder.WriteString(ep.Route)
		if ep.Target != "" {
			builder.WriteString(" -> ")
			builder.WriteString(ep.Target)
		}
		builder.WriteByte('\n')
	}

	builder.WriteString("\n\nHandler Information:\n")
	builder.WriteString("Matched Route: ")
	builder.WriteString(c.Route())
	builder.WriteByte('\n')
	builder.WriteString("Route Tokens:\n")
	names := c.TokenNames()
	tokens := c.Tokens()
	if tokens.Len() > 0 {
		for i := 0; i < tokens.Len(); i++ {
			builder.WriteString("- ")
			if i < len(names) {
				builder.WriteString(names[i])
			}
			builder.WriteString(": ")
			builder.WriteString(tokens.Get(i))
			builder.WriteByte('\n')
		}
	} else {
		builder.WriteString("- None\n")
	}

	builder.WriteString("\n\nFull Request Dump:\n")
	builder.WriteString(string(requestDump))
	builder.WriteString("\nSystem Information:\n")
	builder.WriteString("Time: ")
	builder.WriteString(time.Now().Format(time.RFC3339))
	builder.WriteByte('\n')
	builder.WriteString("Hostname: ")
	builder.WriteString(hostname)
	builder.WriteByte('\n')
	builder.WriteString("OS: ")
	builder.WriteString(runtime.GOOS)
	builder.WriteByte('\n')
	builder.WriteString("Arch: ")
	builder.WriteString(runtime.GOARCH)
	builder.WriteByte('\n')
	builder.WriteString("Go Version: ")
	builder.WriteString(runtime.Version())
	builder.WriteByte('\n')
	builder.WriteString("Pid: ")
	builder.WriteString(strconv.Itoa(os.Getpid()))
	builder.WriteByte('\n')
	builder.WriteString("Number of Goroutines: ")
	builder.WriteString(strconv.Itoa(runtime.NumGoroutine()))
	builder.WriteByte('\n')
	builder.WriteString("Allocated Memory: ")
	builder.WriteString(fmt.Sprintf("%d bytes", memStats.Alloc))
	builder.WriteByte('\n')

	return builder.String()
}
