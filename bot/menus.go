package bot

import (
	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

var commandsAnonymous = []tgbotapi.BotCommand{
	{Command: "start", Description: "Enable notifications"},
	{Command: "help", Description: "Show available commands"},
}

var commandsAdmin = []tgbotapi.BotCommand{
	{Command: "start", Description: "Enable notifications"},
	{Command: "stop", Description: "Disable notifications"},
	{Command: "level", Description: "Set log level filter"},
	{Command: "topics", Description: "Manage topic subscriptions"},
	{Command: "tiers", Description: "List tier requirements"},
	{Command: "user", Description: "Look up a registered user"},
	{Command: "status", Description: "Show your settings"},
	{Command: "help", Description: "Show available commands"},
}

// setDefaultCommands sets the bot menu for chats that are not admins.
func (t *TgBot) setDefaultCommands() {
	_, err := t.api.SetMyCommands(commandsAnonymous, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeDefault{},
	})
	if err != nil {
		t.log.Warn("setting default commands", "error", err)
	}
}

func (t *TgBot) syncAdminMenus() {
	for _, chatId := range t.adminIds() {
		_, err := t.api.SetMyCommands(commandsAdmin, &tgbotapi.SetMyCommandsOpts{
			Scope: tgbotapi.BotCommandScopeChat{ChatId: chatId},
		})
		if err != nil {
			t.log.Warn("setting admin commands", "chat_id", chatId, "error", err)
		}
	}
}
