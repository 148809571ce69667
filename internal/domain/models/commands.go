package models

import "strings"

// CommandType enumerates supported worker command categories.
type CommandType string

const (
	CommandLog      CommandType = "log"
	CommandStats    CommandType = "stats"
	CommandStock    CommandType = "stock"
	CommandVaccines CommandType = "vaccines"
	CommandUse      CommandType = "use"
	CommandHelp     CommandType = "help"
	CommandUnknown  CommandType = "unknown"
)

// Command represents a parsed worker instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
func ParseCommand(message string) Command {
	normalized := strings.TrimSpace(strings.ToLower(message))
	tokens := strings.Fields(normalized)
	cmd := Command{Raw: message, Type: CommandUnknown}

	if len(tokens) == 0 {
		return cmd
	}

	head := strings.TrimPrefix(tokens[0], "/")
	switch CommandType(head) {
	case CommandLog, CommandStats, CommandStock, CommandVaccines, CommandUse, CommandHelp:
		cmd.Type = CommandType(head)
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
