package logger

import (
	"context"
	"log/slog"
	"strings"

	"github.com/corymhall/shlsp/lsp"
	"github.com/corymhall/shlsp/xcontext"
)

// ClientHandler writes records to an inner handler and also forwards
// those at or above Level to the client as window/logMessage.
type ClientHandler struct {
	inner  slog.Handler
	client lsp.Client
	level  slog.Leveler
	prefix string // pre-rendered attrs from WithAttrs
	group  string
}

func NewClientHandler(inner slog.Handler, client lsp.Client, level slog.Leveler) *ClientHandler {
	return &ClientHandler{inner: inner, client: client, level: level}
}

func (h *ClientHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level) || level >= h.level.Level()
}

func (h *ClientHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level.Level() {
		send(xcontext.Detach(ctx), h.client, h.render(r), convertLevel(r.Level))
	}
	if !h.inner.Enabled(ctx, r.Level) {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *ClientHandler) render(r slog.Record) string {
	var b strings.Builder
	b.WriteString(r.Message)
	b.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.group, a)
		return true
	})
	return b.String()
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}
		return
	}
	b.WriteString(" ")
	b.WriteString(key)
	b.WriteString("=")
	b.WriteString(a.Value.Resolve().String())
}

func (h *ClientHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.prefix)
	for _, a := range attrs {
		writeAttr(&b, h.group, a)
	}
	c := *h
	c.inner = h.inner.WithAttrs(attrs)
	c.prefix = b.String()
	return &c
}

func (h *ClientHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.inner = h.inner.WithGroup(name)
	if h.group != "" {
		c.group = h.group + "." + name
	} else {
		c.group = name
	}
	return &c
}
