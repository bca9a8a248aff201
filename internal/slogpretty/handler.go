// The code in this package is derivative of https://gitlab.com/greyxor/slogor.
// Mount of this source code is governed by a MIT license that can be found
// at https://gitlab.com/greyxor/slogor/-/blob/main/LICENSE?ref_type=heads.

package slogpretty

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tigerwill90/waypoint/internal/ansi"
)

const (
	maxBufferSize     = 16 << 10 // 16384
	initialBufferSize = 1024
	// shortBuildLen is the number of characters of a build id shown in the build column.
	shortBuildLen = 8
)

// Attribute keys with a dedicated rendering.
const (
	KeyBuild      = "build"
	KeyRoute      = "route"
	KeyTarget     = "target"
	KeyLocation   = "location"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyLatency    = "latency"
	KeyDelay      = "delay"
	KeyCollector  = "collector"
	KeyEndpoints  = "endpoints"
	KeyCollectors = "collectors"
	KeyError      = "error"
	KeyStack      = "stack"
)

var _ slog.Handler = (*Handler)(nil)

var logBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, initialBufferSize)
		return &b
	},
}

var (
	DefaultHandler = &Handler{
		We:  &lockedWriter{w: os.Stderr},
		Wo:  &lockedWriter{w: os.Stdout},
		Lvl: slog.LevelDebug,
	}
	timeFormat = fmt.Sprintf("%s %s", time.DateOnly, time.TimeOnly)
)

// New returns a Handler writing every record at or above lvl to w.
func New(w io.Writer, lvl slog.Leveler) *Handler {
	lw := &lockedWriter{w: w}
	return &Handler{
		We:  lw,
		Wo:  lw,
		Lvl: lvl,
	}
}

func freeBuf(b *[]byte) {
	if cap(*b) <= maxBufferSize {
		*b = (*b)[:0]
		logBufPool.Put(b)
	}
}

// Handler writes one colored line per record. A top level "build" attribute is lifted into its own column so
// that every line logged on behalf of a router build can be told apart at a glance. Records at or above
// slog.LevelError go to We, everything else to Wo.
type Handler struct {
	We  io.Writer
	Wo  io.Writer
	Lvl slog.Leveler

	// attrs holds the attributes added with WithAttrs, already rendered.
	attrs []byte
	// group is the dotted prefix of the open groups.
	group string
	build string
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.Lvl.Level()
}

func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	bufp := logBufPool.Get().(*[]byte)
	buf := *bufp

	defer func() {
		*bufp = buf
		freeBuf(bufp)
	}()

	build := h.build
	if h.group == "" {
		record.Attrs(func(attr slog.Attr) bool {
			if attr.Key == KeyBuild {
				build = attr.Value.Resolve().String()
				return false
			}
			return true
		})
	}

	buf = append(buf, "[WAYPOINT] "...)
	if !record.Time.IsZero() {
		buf = append(buf, ansi.Faint...)
		buf = append(buf, record.Time.Format(timeFormat)...)
		buf = append(buf, ansi.NormalIntensity...)
		buf = append(buf, ' ')
	}

	buf = append(buf, "| "...)
	buf = appendLevel(buf, record.Level)
	buf = append(buf, " | "...)

	if build != "" {
		if len(build) > shortBuildLen {
			build = build[:shortBuildLen]
		}
		buf = append(buf, ansi.Faint...)
		buf = append(buf, "build "...)
		buf = append(buf, build...)
		buf = append(buf, ansi.Reset...)
		buf = append(buf, " | "...)
	}

	if record.Level >= slog.LevelError {
		buf = append(buf, ansi.FgRed...)
		buf = append(buf, record.Message...)
		buf = append(buf, ansi.Reset...)
	} else {
		buf = append(buf, record.Message...)
	}
	buf = append(buf, " | "...)

	buf = append(buf, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		buf = appendAttr(record.Level, buf, h.group, attr)
		return true
	})

	// Replace the latest space by an EOL.
	buf[len(buf)-1] = '\n'

	w := h.Wo
	if record.Level >= slog.LevelError {
		w = h.We
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write buffer: %w", err)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := h.clone()
	for _, attr := range attrs {
		if h.group == "" && attr.Key == KeyBuild {
			nh.build = attr.Value.Resolve().String()
			continue
		}
		// The level is unknown until a record is handled, status falls back to the info color.
		nh.attrs = appendAttr(slog.LevelInfo, nh.attrs, h.group, attr)
	}
	return nh
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := h.clone()
	nh.group = h.group + name + "."
	return nh
}

func (h *Handler) clone() *Handler {
	return &Handler{
		We:    h.We,
		Wo:    h.Wo,
		Lvl:   h.Lvl,
		attrs: append([]byte(nil), h.attrs...),
		group: h.group,
		build: h.build,
	}
}

func appendLevel(buf []byte, level slog.Level) []byte {
	switch {
	case level >= slog.LevelError:
		buf = append(buf, ansi.FgRed...)
	case level >= slog.LevelWarn:
		buf = append(buf, ansi.FgYellow...)
	case level >= slog.LevelInfo:
		buf = append(buf, ansi.FgGreen...)
	default:
		buf = append(buf, ansi.FgMagenta...)
	}
	buf = append(buf, level.String()...)
	buf = append(buf, ansi.Reset...)
	// INFO and WARN are one character shorter than DEBUG and ERROR.
	if n := len(level.String()); n < 5 {
		buf = append(buf, "     "[:5-n]...)
	}
	return buf
}

// appendAttr appends the attribute to the buffer. Groups are flattened with a dotted key.
func appendAttr(level slog.Level, buf []byte, prefix string, attr slog.Attr) []byte {
	// Resolve the Attr's value before doing anything else.
	attr.Value = attr.Value.Resolve()

	// Ignore empty Attrs.
	if attr.Equal(slog.Attr{}) {
		return buf
	}

	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			prefix += attr.Key + "."
		}
		for _, ga := range attr.Value.Group() {
			buf = appendAttr(level, buf, prefix, ga)
		}
		return buf
	}

	// Lifted into the build column.
	if prefix == "" && attr.Key == KeyBuild {
		return buf
	}

	buf = append(buf, ansi.Faint...)
	buf = append(buf, ansi.Bold...)
	buf = append(buf, prefix...)
	buf = append(buf, attr.Key...)
	buf = append(buf, '=')
	buf = append(buf, ansi.NormalIntensity...)

	color, pad := attrStyle(level, prefix, attr)
	buf = append(buf, color...)
	if pad {
		buf = append(buf, ' ')
	}
	buf = append(buf, attr.Value.String()...)
	if pad {
		buf = append(buf, ' ')
	}
	buf = append(buf, ansi.Reset...)
	buf = append(buf, ' ')

	return buf
}

// attrStyle returns the color of an attribute value and whether the value is padded with spaces. Only top level
// attributes get a dedicated style.
func attrStyle(level slog.Level, prefix string, attr slog.Attr) (string, bool) {
	if prefix != "" {
		return ansi.FgCyan, false
	}
	switch attr.Key {
	case KeyMethod:
		return ansi.BgBlue, true
	case KeyStatus:
		return levelColor(level), true
	case KeyRoute, KeyTarget:
		return ansi.FgMagenta, false
	case KeyLocation:
		return ansi.FgYellow, false
	case KeyLatency, KeyDelay:
		if attr.Value.Kind() == slog.KindDuration {
			return latencyColor(attr.Value.Duration()), false
		}
	case KeyCollector:
		return ansi.Bold + ansi.FgCyan, false
	case KeyEndpoints, KeyCollectors:
		return ansi.FgGreen, false
	case KeyError:
		return ansi.FgRed, false
	case KeyStack:
		return ansi.Faint, false
	}
	return ansi.FgCyan, false
}

type lockedWriter struct {
	w io.Writer
	sync.Mutex
}

func (w *lockedWriter) Write(p []byte) (n int, err error) {
	w.Lock()
	n, err = w.w.Write(p)
	w.Unlock()
	return
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansi.BgRed
	case level >= slog.LevelWarn:
		return ansi.BgYellow
	case level >= slog.LevelInfo:
		return ansi.BgBlue
	default:
		return ansi.BgMagenta
	}
}

func latencyColor(d time.Duration) string {
	if d < 100*time.Millisecond {
		return ansi.FgGreen
	}
	if d < 500*time.Millisecond {
		return ansi.FgYellow
	}
	return ansi.FgRed
}
