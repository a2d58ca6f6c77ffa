package logbuf

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Trace captures the log lines of one top-level request so they can be
// returned to the caller alongside the response. Each request gets its
// own Trace, so concurrent requests never see each other's lines.
type Trace struct {
	ring   *Ring
	base   slog.Handler
	attrs  []slog.Attr
	groups []string
}

// NewTrace creates a request-scoped trace that tees records into its own
// ring buffer while still forwarding them to base.
func NewTrace(base slog.Handler) *Trace {
	return &Trace{
		ring: NewRing(DefaultCapacity),
		base: base,
	}
}

// Logger returns a logger whose output is captured by the trace.
func (t *Trace) Logger() *slog.Logger {
	return slog.New(t)
}

// Lines returns the captured lines in FIFO order.
func (t *Trace) Lines() []string {
	return t.ring.Lines()
}

// Enabled implements slog.Handler.
func (t *Trace) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo || t.base.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (t *Trace) Handle(ctx context.Context, rec slog.Record) error {
	t.ring.Append(formatLine(rec, t.attrs, t.groups))

	if t.base.Enabled(ctx, rec.Level) {
		return t.base.Handle(ctx, rec)
	}
	return nil
}

// WithAttrs implements slog.Handler. The derived handler shares the ring,
// so lines logged through child loggers stay in the request trace. Bound
// keys are qualified with the open groups at bind time.
func (t *Trace) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(t.attrs)+len(attrs))
	merged = append(merged, t.attrs...)
	for _, a := range attrs {
		merged = append(merged, slog.Attr{Key: qualify(t.groups, a.Key), Value: a.Value})
	}
	return &Trace{
		ring:   t.ring,
		base:   t.base.WithAttrs(attrs),
		attrs:  merged,
		groups: t.groups,
	}
}

// WithGroup implements slog.Handler.
func (t *Trace) WithGroup(name string) slog.Handler {
	if name == "" {
		return t
	}
	return &Trace{
		ring:   t.ring,
		base:   t.base.WithGroup(name),
		attrs:  t.attrs,
		groups: append(append([]string(nil), t.groups...), name),
	}
}

func qualify(groups []string, key string) string {
	if len(groups) == 0 {
		return key
	}
	return strings.Join(groups, ".") + "." + key
}

func formatLine(rec slog.Record, bound []slog.Attr, groups []string) string {
	var sb strings.Builder

	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	sb.WriteString(ts.Format("2006-01-02 15:04:05"))
	sb.WriteString(" - ")
	sb.WriteString(rec.Level.String())
	sb.WriteString(" - ")
	sb.WriteString(rec.Message)

	for _, a := range bound {
		sb.WriteString(fmt.Sprintf(" %s=%v", a.Key, a.Value))
	}
	rec.Attrs(func(a slog.Attr) bool {
		sb.WriteString(fmt.Sprintf(" %s=%v", qualify(groups, a.Key), a.Value))
		return true
	})

	return sb.String()
}
