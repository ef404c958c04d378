package flow

import (
	"context"
	"strings"
)

// InputKind is what a user turn carries.
type InputKind int

const (
	InputText InputKind = iota
	InputOption
	InputPhoto
)

func (k InputKind) String() string {
	switch k {
	case InputOption:
		return "option"
	case InputPhoto:
		return "photo"
	default:
		return "text"
	}
}

// Command is a user-facing action available from any state.
type Command string

const (
	CmdNone       Command = ""
	CmdStart      Command = "start"
	CmdFactor     Command = "compute_sensitivity_factor"
	CmdMeal       Command = "compute_meal_coefficient"
	CmdStatistics Command = "show_statistics"
	CmdCalories   Command = "compute_calories"
	CmdHelp       Command = "help"
	CmdCancel     Command = "cancel"
	// shortcuts offered under a computed factor
	CmdCorrection Command = "factor_correction"
	CmdEdit       Command = "factor_edit"
)

var commands = map[Command]bool{
	CmdStart: true, CmdFactor: true, CmdMeal: true, CmdStatistics: true, CmdCalories: true,
	CmdHelp: true, CmdCancel: true, CmdCorrection: true, CmdEdit: true,
}

// Valid reports whether c is a known command.
func (c Command) Valid() bool {
	return commands[c]
}

const commandPrefix = "cmd:"

// CommandOption encodes a command, with an optional argument, as an option value.
func CommandOption(cmd Command, arg string) string {
	if arg == "" {
		return commandPrefix + string(cmd)
	}
	return commandPrefix + string(cmd) + ":" + arg
}

// ParseCommandOption decodes a value built by CommandOption.
func ParseCommandOption(value string) (Command, string, bool) {
	if !strings.HasPrefix(value, commandPrefix) {
		return CmdNone, "", false
	}
	name, arg, _ := strings.Cut(strings.TrimPrefix(value, commandPrefix), ":")
	cmd := Command(name)
	if !commands[cmd] {
		return CmdNone, "", false
	}
	return cmd, arg, true
}

// Event is one inbound user turn, already stripped of transport details.
type Event struct {
	UserID     uint  // database user
	TelegramID int64 // session key
	ChatID     int64
	// MessageID is the message an option was picked on; prompts answering
	// it may replace that message.
	MessageID int

	Kind     InputKind
	Text     string
	Option   string
	PhotoURL string

	Command Command
	Arg     string
}

func (ev Event) target() Target {
	return Target{ChatID: ev.ChatID, UserID: ev.TelegramID, MessageID: ev.MessageID}
}

// Option is a selectable answer.
type Option struct {
	Label string
	Value string
}

// Prompt is an outbound message. Options are laid out in rows.
type Prompt struct {
	Text     string
	Options  [][]Option
	MainMenu bool
}

// Target says where a prompt goes.
type Target struct {
	ChatID    int64
	UserID    int64
	MessageID int
}

// Channel delivers prompts to the user.
type Channel interface {
	Send(ctx context.Context, to Target, p Prompt) error
}

func row(opts ...Option) []Option {
	return opts
}
