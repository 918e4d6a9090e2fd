package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Notifier delivers a formatted record to the operator channel.
type Notifier interface {
	SendMessageWithTopic(msg string, level slog.Level, topic string)
}

const topicKey = "tg_topic"

// TelegramHandler is a slog.Handler that sends log messages to Telegram
type TelegramHandler struct {
	handler  slog.Handler
	notifier Notifier
	minLevel slog.Level
	mu       *sync.Mutex
	attrs    []slog.Attr
	group    string
}

// NewTelegramHandler creates a new TelegramHandler
func NewTelegramHandler(handler slog.Handler, notifier Notifier, minLevel slog.Level) *TelegramHandler {
	return &TelegramHandler{
		handler:  handler,
		notifier: notifier,
		minLevel: minLevel,
		mu:       &sync.Mutex{},
		attrs:    make([]slog.Attr, 0),
	}
}

// Enabled follows the wrapped handler. Tagged records it accepts reach
// Telegram even below minLevel.
func (h *TelegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler.Handle
func (h *TelegramHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.handler.Handle(ctx, record)
	if err != nil {
		return err
	}
	if h.notifier == nil {
		return nil
	}

	topic := ""
	for _, attr := range h.attrs {
		if attr.Key == topicKey {
			topic = attr.Value.String()
		}
	}
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == topicKey {
			topic = attr.Value.String()
		}
		return true
	})

	if record.Level < h.minLevel && topic == "" {
		return nil
	}
	if topic == "" {
		topic = "error"
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.notifier.SendMessageWithTopic(h.format(record), record.Level, topic)
	return nil
}

func (h *TelegramHandler) format(record slog.Record) string {
	var sb strings.Builder
	if h.group != "" {
		sb.WriteString(fmt.Sprintf("*%s* `%s.%s`", record.Level.String(), h.group, record.Message))
	} else {
		sb.WriteString(fmt.Sprintf("*%s* `%s`", record.Level.String(), record.Message))
	}

	write := func(attr slog.Attr) {
		if attr.Key == topicKey {
			return
		}
		if attr.Key == "error" {
			sb.WriteString(fmt.Sprintf("\n%s: ```error %v ```", attr.Key, attr.Value))
			return
		}
		sb.WriteString(Sanitize(fmt.Sprintf("\n%s: %v", attr.Key, attr.Value)))
	}
	for _, attr := range h.attrs {
		write(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		write(attr)
		return true
	})
	return sb.String()
}

// WithAttrs implements slog.Handler.WithAttrs
func (h *TelegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	return &TelegramHandler{
		handler:  h.handler.WithAttrs(attrs),
		notifier: h.notifier,
		minLevel: h.minLevel,
		mu:       h.mu,
		attrs:    newAttrs,
		group:    h.group,
	}
}

// WithGroup implements slog.Handler.WithGroup
func (h *TelegramHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}

	return &TelegramHandler{
		handler:  h.handler.WithGroup(name),
		notifier: h.notifier,
		minLevel: h.minLevel,
		mu:       h.mu,
		attrs:    h.attrs,
		group:    group,
	}
}

// Sanitize escapes MarkdownV2 reserved characters.
func Sanitize(input string) string {
	const reservedChars = "\\_{}#+-.!|()[]=*>~`"
	var sb strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}
