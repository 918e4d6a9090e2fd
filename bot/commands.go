package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tiergate/entity"
	"tiergate/lib/logger"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

const (
	notOperator = "This bot only serves site operators\\."
	topicNone   = "none"
)

func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.update(chatId, func(s *subscription) { s.enabled = true }) {
		t.log.With(
			slog.Int64("id", chatId),
			slog.String("username", ctx.EffectiveUser.Username),
		).Info("start from non-admin chat")
		t.send(chatId, notOperator)
		return nil
	}
	t.send(chatId, "Notifications ENABLED")
	return nil
}

func (t *TgBot) stop(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.update(chatId, func(s *subscription) { s.enabled = false }) {
		return nil
	}
	t.send(chatId, "Notifications DISABLED")
	return nil
}

func (t *TgBot) level(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	sub, ok := t.snapshot(chatId)
	if !ok {
		return nil
	}

	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 2 {
		t.send(chatId, fmt.Sprintf("Your current log level: %s\nAvailable levels: debug, info, warn, error", logger.Sanitize(sub.level.String())))
		return nil
	}

	level, valid := parseLevel(args[1])
	if !valid {
		t.send(chatId, fmt.Sprintf("Invalid level: %s\nAvailable levels: debug, info, warn, error", logger.Sanitize(args[1])))
		return nil
	}
	t.update(chatId, func(s *subscription) { s.level = level })
	t.send(chatId, "Log level set to "+logger.Sanitize(level.String()))
	return nil
}

func (t *TgBot) topics(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	sub, ok := t.snapshot(chatId)
	if !ok {
		return nil
	}
	t.send(chatId, formatTopics(sub))
	return nil
}

func (t *TgBot) subscribe(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return t.changeTopic(ctx, true)
}

func (t *TgBot) unsubscribe(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return t.changeTopic(ctx, false)
}

func (t *TgBot) changeTopic(ctx *ext.Context, add bool) error {
	chatId := ctx.EffectiveUser.Id
	if !t.isAdmin(chatId) {
		return nil
	}
	command := "/unsubscribe"
	if add {
		command = "/subscribe"
	}

	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 2 {
		t.send(chatId, fmt.Sprintf("Usage: `%s <topic|all>`\nAvailable topics: %s",
			command, logger.Sanitize(strings.Join(entity.AllTopics(), ", "))))
		return nil
	}

	topic := strings.ToLower(args[1])
	if topic != "all" && !entity.IsValidTopic(topic) {
		t.send(chatId, "Invalid topic: `"+logger.Sanitize(topic)+"`\nAvailable: "+logger.Sanitize(strings.Join(entity.AllTopics(), ", ")))
		return nil
	}

	t.update(chatId, func(s *subscription) { s.topics = toggleTopic(s.topics, topic, add) })
	sub, _ := t.snapshot(chatId)
	t.send(chatId, formatTopics(sub))
	return nil
}

func (t *TgBot) tiers(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.isAdmin(chatId) || t.db == nil {
		return nil
	}

	c, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	tiers, err := t.db.TierRequirements(c)
	if err != nil {
		t.reportError(chatId, "/tiers", err)
		return nil
	}
	t.send(chatId, formatTiers(tiers))
	return nil
}

func (t *TgBot) user(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.isAdmin(chatId) || t.db == nil {
		return nil
	}

	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) < 2 {
		t.send(chatId, "Usage: `/user <username>`")
		return nil
	}

	c, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	user, err := t.db.UserByUsername(c, args[1])
	if err != nil {
		t.reportError(chatId, "/user", err)
		return nil
	}
	if user == nil {
		t.send(chatId, "No user named `"+logger.Sanitize(args[1])+"`")
		return nil
	}
	t.send(chatId, formatUser(user))
	return nil
}

func (t *TgBot) status(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	sub, ok := t.snapshot(chatId)
	if !ok {
		t.send(chatId, notOperator)
		return nil
	}

	enabled := "disabled"
	if sub.enabled {
		enabled = "enabled"
	}
	topics := "all"
	if len(sub.topics) > 0 {
		topics = strings.Join(sub.topicList(), ", ")
	}
	t.send(chatId, fmt.Sprintf("*Your settings*\nNotifications: %s\nLevel: %s\nTopics: %s",
		enabled, logger.Sanitize(sub.level.String()), logger.Sanitize(topics)))
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	var sb strings.Builder
	sb.WriteString("*Available Commands*\n\n")
	sb.WriteString("`/start` \\- Enable notifications\n")
	sb.WriteString("`/help` \\- Show this help\n")

	if t.isAdmin(chatId) {
		sb.WriteString("`/stop` \\- Disable notifications\n")
		sb.WriteString("`/level <debug|info|warn|error>` \\- Set log level\n")
		sb.WriteString("`/topics` \\- View topic subscriptions\n")
		sb.WriteString("`/subscribe <topic|all>` \\- Subscribe to topic\n")
		sb.WriteString("`/unsubscribe <topic|all>` \\- Unsubscribe from topic\n")
		sb.WriteString("`/tiers` \\- List tier requirements\n")
		sb.WriteString("`/user <username>` \\- Look up a registered user\n")
		sb.WriteString("`/status` \\- Show your settings\n")
	}

	t.send(chatId, sb.String())
	return nil
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}

// toggleTopic returns the new topic set. An empty set means every topic and
// the "none" marker means no topic at all.
func toggleTopic(current map[string]bool, topic string, add bool) map[string]bool {
	if topic == "all" {
		if add {
			return map[string]bool{}
		}
		return map[string]bool{topicNone: true}
	}
	next := make(map[string]bool, len(entity.AllTopics()))
	if len(current) == 0 {
		for _, t := range entity.AllTopics() {
			next[t] = true
		}
	} else {
		for k, v := range current {
			next[k] = v
		}
	}
	delete(next, topicNone)
	if add {
		next[topic] = true
	} else {
		delete(next, topic)
	}
	switch len(next) {
	case 0:
		return map[string]bool{topicNone: true}
	case len(entity.AllTopics()):
		return map[string]bool{}
	}
	return next
}
