package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/remindd/internal/model"
)

type Type string

const (
	TypeRemind  Type = "remind"
	TypeMove    Type = "move"
	TypeRetitle Type = "retitle"
	TypeDelete  Type = "delete"
	TypeCancel  Type = "cancel"
	TypeRestore Type = "restore"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

// NewNoteID is the note id placeholder asking the handler to mint one.
const NewNoteID = "-"

const (
	dateLayout  = time.DateOnly
	clockLayout = "15:04"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

type RemindArgs struct {
	NoteID string
	Date   time.Time
	Clock  time.Time
	Mode   model.RepeatMode
	Title  string
}

type MoveArgs struct {
	RequestCode int
	Date        time.Time
	Clock       time.Time
	// Mode is empty when the current repeat mode should be kept.
	Mode model.RepeatMode
}

type RetitleArgs struct {
	NoteID string
	Title  string
}

type DeleteArgs struct {
	RequestCode int
	NoteID      string
}

type CancelArgs struct {
	NoteID string
}

type Command struct {
	Type    Type
	Raw     string
	Remind  *RemindArgs
	Move    *MoveArgs
	Retitle *RetitleArgs
	Delete  *DeleteArgs
	Cancel  *CancelArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeRemind:
		return parseRemind(input, args)
	case TypeMove:
		return parseMove(input, args)
	case TypeRetitle:
		return parseRetitle(input, args)
	case TypeDelete:
		return parseDelete(input, args)
	case TypeCancel:
		return parseCancel(input, args)
	case TypeRestore:
		if len(args) != 0 {
			return Command{}, invalid("restore takes no arguments")
		}
		return Command{Type: TypeRestore, Raw: input}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseRemind(raw string, args []string) (Command, error) {
	if len(args) < 5 {
		return Command{}, invalid("remind requires note, date, time, repeat and title")
	}
	date, clock, err := parseWhen(args[1], args[2])
	if err != nil {
		return Command{}, err
	}
	mode, err := model.ParseRepeatMode(args[3])
	if err != nil {
		return Command{}, invalid("unknown repeat mode %q", args[3])
	}
	title := strings.TrimSpace(strings.Join(args[4:], " "))
	return Command{Type: TypeRemind, Raw: raw, Remind: &RemindArgs{
		NoteID: args[0],
		Date:   date,
		Clock:  clock,
		Mode:   mode,
		Title:  title,
	}}, nil
}

func parseMove(raw string, args []string) (Command, error) {
	if len(args) < 3 || len(args) > 4 {
		return Command{}, invalid("move requires request code, date, time and an optional repeat")
	}
	code, err := parseCode(args[0])
	if err != nil {
		return Command{}, err
	}
	date, clock, err := parseWhen(args[1], args[2])
	if err != nil {
		return Command{}, err
	}
	out := &MoveArgs{RequestCode: code, Date: date, Clock: clock}
	if len(args) == 4 {
		mode, err := model.ParseRepeatMode(args[3])
		if err != nil {
			return Command{}, invalid("unknown repeat mode %q", args[3])
		}
		out.Mode = mode
	}
	return Command{Type: TypeMove, Raw: raw, Move: out}, nil
}

func parseRetitle(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("retitle requires note and title")
	}
	return Command{Type: TypeRetitle, Raw: raw, Retitle: &RetitleArgs{
		NoteID: args[0],
		Title:  strings.TrimSpace(strings.Join(args[1:], " ")),
	}}, nil
}

func parseDelete(raw string, args []string) (Command, error) {
	switch {
	case len(args) == 2 && strings.EqualFold(args[0], "note"):
		return Command{Type: TypeDelete, Raw: raw, Delete: &DeleteArgs{NoteID: args[1]}}, nil
	case len(args) == 1:
		code, err := parseCode(args[0])
		if err != nil {
			return Command{}, err
		}
		return Command{Type: TypeDelete, Raw: raw, Delete: &DeleteArgs{RequestCode: code}}, nil
	default:
		return Command{}, invalid("delete requires a request code or note <id>")
	}
}

func parseCancel(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("cancel requires a note id")
	}
	return Command{Type: TypeCancel, Raw: raw, Cancel: &CancelArgs{NoteID: args[0]}}, nil
}

func parseWhen(dateRaw, clockRaw string) (time.Time, time.Time, error) {
	date, err := time.Parse(dateLayout, dateRaw)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("date %q must look like 2006-01-02", dateRaw)
	}
	clock, err := time.Parse(clockLayout, clockRaw)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("time %q must look like 15:04", clockRaw)
	}
	return date, clock, nil
}

func parseCode(raw string) (int, error) {
	code, err := strconv.Atoi(strings.TrimPrefix(raw, "#"))
	if err != nil || code < 0 {
		return 0, invalid("request code %q must be a non-negative integer", raw)
	}
	return code, nil
}
