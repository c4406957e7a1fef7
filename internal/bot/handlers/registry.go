package handlers

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// RegisteredHandler represents a command handler with its description and middleware.
// It encapsulates all information needed to register and document a command.
// When MatchFunc is set it is used instead of Pattern and MatchType.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
	MatchFunc   tgbot.MatchFunc
	Description string
}

// RegisterAllCommands initializes and returns a map of all available bot commands.
// It configures each command with appropriate handlers and middleware.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)
	senderOnly := []tgbot.Middleware{RequireSender(deps)}

	handlers["/start"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Handler:     NewStartHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  senderOnly,
		Description: "Register and share your contact",
	}
	handlers["/help"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "help",
		Handler:     NewHelpHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Description: "Show what the bot can do",
	}
	handlers["/websearch"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "websearch",
		Handler:     NewWebSearchHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  senderOnly,
		Description: "Search the web and summarize the results",
	}
	handlers["contact"] = RegisteredHandler{
		Handler:    NewContactHandler(deps),
		MatchFunc:  IsContact,
		Middleware: senderOnly,
	}

	return handlers
}

// DefaultHandler returns the catch-all handler for messages no command matched.
func DefaultHandler(deps HandlerDeps) tgbot.HandlerFunc {
	return RequireSender(deps)(NewMessageHandler(deps))
}

// BotCommands lists the registered slash commands for the client menu.
func BotCommands(registered map[string]RegisteredHandler) []models.BotCommand {
	var commands []models.BotCommand
	for _, name := range []string{"/start", "/help", "/websearch"} {
		h, ok := registered[name]
		if !ok || h.Description == "" {
			continue
		}
		commands = append(commands, models.BotCommand{Command: h.Pattern, Description: h.Description})
	}
	return commands
}
