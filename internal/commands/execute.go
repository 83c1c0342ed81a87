package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Remind  func(RemindArgs) (Result, error)
	Move    func(MoveArgs) (Result, error)
	Retitle func(RetitleArgs) (Result, error)
	Delete  func(DeleteArgs) (Result, error)
	Cancel  func(CancelArgs) (Result, error)
	Restore func() (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeRemind:
		if handlers.Remind == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Remind(*cmd.Remind)
	case TypeMove:
		if handlers.Move == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Move(*cmd.Move)
	case TypeRetitle:
		if handlers.Retitle == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Retitle(*cmd.Retitle)
	case TypeDelete:
		if handlers.Delete == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Delete(*cmd.Delete)
	case TypeCancel:
		if handlers.Cancel == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Cancel(*cmd.Cancel)
	case TypeRestore:
		if handlers.Restore == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Restore()
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}
