package commands

import "fmt"

type Result struct {
	Message string
	// Body is optional markdown rendered below the message.
	Body string
}

type Handlers struct {
	Add       func(AddArgs) (Result, error)
	Complete  func(TaskArgs) (Result, error)
	Reopen    func(TaskArgs) (Result, error)
	Archive   func(TaskArgs) (Result, error)
	Unarchive func(TaskArgs) (Result, error)
	Delete    func(TaskArgs) (Result, error)
	Snooze    func(SnoozeArgs) (Result, error)
	Unsnooze  func(TaskArgs) (Result, error)
	Priority  func(PriorityArgs) (Result, error)
	Energy    func(EnergyArgs) (Result, error)
	Suggest   func(SuggestArgs) (Result, error)
	Focus     func(FocusArgs) (Result, error)
	Sync      func(SyncArgs) (Result, error)
	Show      func(ShowArgs) (Result, error)
	Activity  func(ActivityArgs) (Result, error)
	Location  func(LocationArgs) (Result, error)
	Remind    func(RemindArgs) (Result, error)
	At        func(AtArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		return call(cmd.Type, handlers.Add, cmd.Add)
	case TypeComplete:
		return call(cmd.Type, handlers.Complete, cmd.Task)
	case TypeReopen:
		return call(cmd.Type, handlers.Reopen, cmd.Task)
	case TypeArchive:
		return call(cmd.Type, handlers.Archive, cmd.Task)
	case TypeUnarchive:
		return call(cmd.Type, handlers.Unarchive, cmd.Task)
	case TypeDelete:
		return call(cmd.Type, handlers.Delete, cmd.Task)
	case TypeSnooze:
		return call(cmd.Type, handlers.Snooze, cmd.Snooze)
	case TypeUnsnooze:
		return call(cmd.Type, handlers.Unsnooze, cmd.Task)
	case TypePriority:
		return call(cmd.Type, handlers.Priority, cmd.Priority)
	case TypeEnergy:
		return call(cmd.Type, handlers.Energy, cmd.Energy)
	case TypeSuggest:
		return call(cmd.Type, handlers.Suggest, cmd.Suggest)
	case TypeFocus:
		return call(cmd.Type, handlers.Focus, cmd.Focus)
	case TypeSync:
		return call(cmd.Type, handlers.Sync, cmd.Sync)
	case TypeShow:
		return call(cmd.Type, handlers.Show, cmd.Show)
	case TypeActivity:
		return call(cmd.Type, handlers.Activity, cmd.Activity)
	case TypeLocation:
		return call(cmd.Type, handlers.Location, cmd.Location)
	case TypeRemind:
		return call(cmd.Type, handlers.Remind, cmd.Remind)
	case TypeAt:
		return call(cmd.Type, handlers.At, cmd.At)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func call[A any](typ Type, fn func(A) (Result, error), args *A) (Result, error) {
	if fn == nil {
		return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", typ)}
	}
	if args == nil {
		return Result{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s arguments missing", typ)}
	}
	return fn(*args)
}
