package bot

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"tiergate/entity"
	"tiergate/lib/logger"
	"tiergate/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// maxMessageLength is Telegram's limit for one text message.
const maxMessageLength = 4096

func (t *TgBot) plainResponse(chatId int64, text string) {
	if text == "" {
		t.log.With("id", chatId).Debug("empty message")
		return
	}

	for _, part := range splitMessage(text, maxMessageLength) {
		_, err := t.api.SendMessage(chatId, part, &tgbotapi.SendMessageOpts{
			ParseMode: "MarkdownV2",
		})
		if err == nil {
			continue
		}
		t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, part, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending safe message", sl.Err(err))
		}
	}
}

// reportError logs the failure, tells the other admins and answers the
// caller with a neutral message. The log record is not tagged, so it does not
// loop back through the Telegram handler as a duplicate.
func (t *TgBot) reportError(chatId int64, command string, err error) {
	t.log.Warn("bot command failed",
		slog.String("command", command),
		slog.Int64("user_id", chatId),
		sl.Err(err),
	)
	for _, id := range t.adminIds() {
		if id == chatId {
			continue
		}
		t.send(id, fmt.Sprintf("Command `%s` failed\nUser: `%d`\nError: `%s`",
			logger.Sanitize(command), chatId, logger.Sanitize(err.Error())))
	}
	t.send(chatId, "Something went wrong\\. Please try again later\\.")
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		cutAt := maxLen
		nlIdx := strings.LastIndex(text[:maxLen], "\n")
		if nlIdx > 0 {
			cutAt = nlIdx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

func formatTiers(tiers []entity.TierRequirement) string {
	if len(tiers) == 0 {
		return "No tiers configured\\."
	}
	var sb strings.Builder
	sb.WriteString("*Tier requirements*\n")
	for _, tier := range tiers {
		sb.WriteString(fmt.Sprintf("`%d` %s \\- $%s or %d invites\n",
			tier.Tier,
			logger.Sanitize(tier.ContentDescription),
			logger.Sanitize(strconv.FormatFloat(tier.PriceUSD, 'f', -1, 64)),
			tier.RequiredInvites,
		))
	}
	return sb.String()
}

func formatUser(user *entity.User) string {
	invitedBy := "nobody"
	if user.InvitedBy != nil {
		invitedBy = *user.InvitedBy
	}
	return fmt.Sprintf("*%s*\nID: `%s`\nTier: %d\nInvites: %d\nInvited by: `%s`\nJoined: %s",
		logger.Sanitize(user.Username),
		logger.Sanitize(user.ID),
		user.CurrentTier,
		user.TotalInvites,
		logger.Sanitize(invitedBy),
		logger.Sanitize(user.CreatedAt.Format("2006-01-02 15:04")),
	)
}

func formatTopics(sub subscription) string {
	var sb strings.Builder
	sb.WriteString("*Available topics:*\n")
	for _, topic := range entity.AllTopics() {
		marker := "  "
		if len(sub.topics) == 0 || sub.topics[topic] {
			marker = "\\+ "
		}
		sb.WriteString(fmt.Sprintf("%s`%s`\n", marker, topic))
	}
	if len(sub.topics) == 0 {
		sb.WriteString("\nYou are subscribed to *all* topics\\.")
	}
	sb.WriteString("\nUse `/subscribe <topic>` or `/unsubscribe <topic>`")
	return sb.String()
}
