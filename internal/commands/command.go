package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/zenith/internal/model"
)

type Type string

const (
	TypeAdd       Type = "add"
	TypeComplete  Type = "complete"
	TypeReopen    Type = "reopen"
	TypeArchive   Type = "archive"
	TypeUnarchive Type = "unarchive"
	TypeDelete    Type = "delete"
	TypeSnooze    Type = "snooze"
	TypeUnsnooze  Type = "unsnooze"
	TypePriority  Type = "priority"
	TypeEnergy    Type = "energy"
	TypeSuggest   Type = "suggest"
	TypeFocus     Type = "focus"
	TypeSync      Type = "sync"
	TypeShow      Type = "show"
	TypeActivity  Type = "activity"
	TypeLocation  Type = "location"
	TypeRemind    Type = "remind"
	TypeAt        Type = "at"
)

// Types lists every command in palette order.
var Types = []Type{
	TypeAdd, TypeComplete, TypeReopen, TypeArchive, TypeUnarchive, TypeDelete,
	TypeSnooze, TypeUnsnooze, TypePriority, TypeEnergy, TypeSuggest, TypeFocus,
	TypeSync, TypeShow, TypeActivity, TypeLocation, TypeRemind, TypeAt,
}

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) *CommandError {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

type AddArgs struct {
	Title    string
	Energy   model.EnergyLevel
	Priority model.Priority
	Due      *time.Time
}

// TaskArgs addresses a single task by local id.
type TaskArgs struct {
	ID int64
}

// SnoozeArgs carries exactly one of Option, For or Until.
type SnoozeArgs struct {
	ID     int64
	Option model.SnoozeOption
	For    time.Duration
	Until  *time.Time
}

type PriorityArgs struct {
	ID       int64
	Priority model.Priority
}

type EnergyArgs struct {
	ID     int64
	Energy model.EnergyLevel
}

// SuggestArgs with an empty Energy asks for a time-of-day suggestion.
type SuggestArgs struct {
	Energy model.EnergyLevel
}

type FocusAction string

const (
	FocusStart  FocusAction = "start"
	FocusStop   FocusAction = "stop"
	FocusToggle FocusAction = "toggle"
	FocusStatus FocusAction = "status"
)

type FocusArgs struct {
	Action  FocusAction
	Minutes int64
}

type SyncArgs struct {
	Collection string // empty means all
}

type ShowArgs struct {
	Subject string
	Query   string
}

var showSubjects = map[string]bool{
	"active": true, "today": true, "upcoming": true, "archived": true,
	"completed": true, "stats": true, "search": true, "focus": true, "sync": true,
	"widget": true,
}

// ActivityArgs is one activity-classifier reading.
type ActivityArgs struct {
	Label      string
	Confidence int
}

type LocationAction string

const (
	LocationAdd    LocationAction = "add"
	LocationList   LocationAction = "list"
	LocationDelete LocationAction = "delete"
	LocationEnter  LocationAction = "enter"
	LocationExit   LocationAction = "exit"
)

// LocationArgs uses Name, Latitude, Longitude and Radius for add and ID for
// delete, enter and exit.
type LocationArgs struct {
	Action    LocationAction
	ID        int64
	Name      string
	Latitude  float64
	Longitude float64
	Radius    float64
}

// RemindArgs with a nil LocationID turns the location reminder off.
type RemindArgs struct {
	ID         int64
	LocationID *int64
}

// AtArgs is a device position fed to the geofence tracker.
type AtArgs struct {
	Latitude  float64
	Longitude float64
}

type Command struct {
	Type     Type
	Raw      string
	Add      *AddArgs
	Task     *TaskArgs
	Snooze   *SnoozeArgs
	Priority *PriorityArgs
	Energy   *EnergyArgs
	Suggest  *SuggestArgs
	Focus    *FocusArgs
	Sync     *SyncArgs
	Show     *ShowArgs
	Activity *ActivityArgs
	Location *LocationArgs
	Remind   *RemindArgs
	At       *AtArgs
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
	head := Type(strings.ToLower(parts[0]))
	args := parts[1:]

	switch head {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeComplete, TypeReopen, TypeArchive, TypeUnarchive, TypeDelete, TypeUnsnooze:
		return parseTask(input, head, args)
	case TypeSnooze:
		return parseSnooze(input, args)
	case TypePriority:
		return parsePriority(input, args)
	case TypeEnergy:
		return parseEnergy(input, args)
	case TypeSuggest:
		return parseSuggest(input, args)
	case TypeFocus:
		return parseFocus(input, args)
	case TypeSync:
		return parseSync(input, args)
	case TypeShow:
		return parseShow(input, args)
	case TypeActivity:
		return parseActivity(input, args)
	case TypeLocation:
		return parseLocation(input, args)
	case TypeRemind:
		return parseRemind(input, args)
	case TypeAt:
		return parseAt(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

// parseAdd treats energy:, priority: and due: tokens as options and the rest
// as the title.
func parseAdd(raw string, args []string) (Command, error) {
	out := AddArgs{}
	words := make([]string, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, ":")
		switch strings.ToLower(key) {
		case "energy", "e":
			if !ok {
				break
			}
			level, err := model.ParseEnergyLevel(value)
			if err != nil {
				return Command{}, invalid("add: %v", err)
			}
			out.Energy = level
			continue
		case "priority", "p":
			if !ok {
				break
			}
			p, err := model.ParsePriority(value)
			if err != nil {
				return Command{}, invalid("add: %v", err)
			}
			out.Priority = p
			continue
		case "due":
			if !ok {
				break
			}
			due, err := parseWhen(value)
			if err != nil {
				return Command{}, invalid("add: due %q: %v", value, err)
			}
			out.Due = &due
			continue
		}
		words = append(words, arg)
	}
	out.Title = strings.TrimSpace(strings.Join(words, " "))
	if out.Title == "" {
		return Command{}, invalid("add requires a title")
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &out}, nil
}

func parseTask(raw string, typ Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("%s requires a task id", typ)
	}
	id, err := parseID(args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: typ, Raw: raw, Task: &TaskArgs{ID: id}}, nil
}

func parseSnooze(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("snooze requires task id and 1h|3h|tomorrow|week|<duration>|<time>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return Command{}, err
	}
	rest := strings.Join(args[1:], " ")
	out := SnoozeArgs{ID: id}
	if opt, err := model.ParseSnoozeOption(rest); err == nil {
		out.Option = opt
	} else if d, err := time.ParseDuration(rest); err == nil {
		if d <= 0 {
			return Command{}, invalid("snooze duration must be positive")
		}
		out.For = d
	} else if until, err := parseWhen(rest); err == nil {
		out.Until = &until
	} else {
		return Command{}, invalid("snooze: unrecognised time %q", rest)
	}
	return Command{Type: TypeSnooze, Raw: raw, Snooze: &out}, nil
}

func parsePriority(raw string, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, invalid("priority requires task id and level")
	}
	id, err := parseID(args[0])
	if err != nil {
		return Command{}, err
	}
	p, err := model.ParsePriority(args[1])
	if err != nil {
		return Command{}, invalid("priority: %v", err)
	}
	return Command{Type: TypePriority, Raw: raw, Priority: &PriorityArgs{ID: id, Priority: p}}, nil
}

func parseEnergy(raw string, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, invalid("energy requires task id and level")
	}
	id, err := parseID(args[0])
	if err != nil {
		return Command{}, err
	}
	level, err := model.ParseEnergyLevel(args[1])
	if err != nil {
		return Command{}, invalid("energy: %v", err)
	}
	return Command{Type: TypeEnergy, Raw: raw, Energy: &EnergyArgs{ID: id, Energy: level}}, nil
}

func parseSuggest(raw string, args []string) (Command, error) {
	out := SuggestArgs{}
	switch len(args) {
	case 0:
	case 1:
		level, err := model.ParseEnergyLevel(args[0])
		if err != nil {
			return Command{}, invalid("suggest: %v", err)
		}
		out.Energy = level
	default:
		return Command{}, invalid("suggest takes at most one energy level")
	}
	return Command{Type: TypeSuggest, Raw: raw, Suggest: &out}, nil
}

func parseFocus(raw string, args []string) (Command, error) {
	out := FocusArgs{Action: FocusToggle}
	if len(args) > 0 {
		out.Action = FocusAction(strings.ToLower(args[0]))
	}
	switch out.Action {
	case FocusStart, FocusToggle:
		if len(args) > 2 {
			return Command{}, invalid("focus %s takes at most a minute count", out.Action)
		}
		if len(args) == 2 {
			m, err := strconv.ParseInt(strings.TrimSuffix(strings.ToLower(args[1]), "m"), 10, 64)
			if err != nil || m < 0 {
				return Command{}, invalid("focus: invalid minutes %q", args[1])
			}
			out.Minutes = m
		}
	case FocusStop, FocusStatus:
		if len(args) > 1 {
			return Command{}, invalid("focus %s takes no arguments", out.Action)
		}
	default:
		return Command{}, invalid("focus: unknown action %q", args[0])
	}
	return Command{Type: TypeFocus, Raw: raw, Focus: &out}, nil
}

func parseSync(raw string, args []string) (Command, error) {
	out := SyncArgs{}
	switch len(args) {
	case 0:
	case 1:
		if c := args[0]; !strings.EqualFold(c, "all") {
			out.Collection = c
		}
	default:
		return Command{}, invalid("sync takes at most one collection")
	}
	return Command{Type: TypeSync, Raw: raw, Sync: &out}, nil
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, invalid("show requires a subject")
	}
	subject := strings.ToLower(args[0])
	if !showSubjects[subject] {
		return Command{}, invalid("show: unknown subject %q", subject)
	}
	query := strings.TrimSpace(strings.Join(args[1:], " "))
	if subject == "search" && query == "" {
		return Command{}, invalid("show search requires a query")
	}
	return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Subject: subject, Query: query}}, nil
}

func parseActivity(raw string, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, invalid("activity requires a label and a confidence 0-100")
	}
	confidence, err := strconv.Atoi(strings.TrimSuffix(args[1], "%"))
	if err != nil || confidence < 0 || confidence > 100 {
		return Command{}, invalid("activity: invalid confidence %q", args[1])
	}
	return Command{Type: TypeActivity, Raw: raw, Activity: &ActivityArgs{Label: args[0], Confidence: confidence}}, nil
}

func parseLocation(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, invalid("location requires add|list|delete|enter|exit")
	}
	out := LocationArgs{Action: LocationAction(strings.ToLower(args[0]))}
	rest := args[1:]
	switch out.Action {
	case LocationList:
		if len(rest) != 0 {
			return Command{}, invalid("location list takes no arguments")
		}
	case LocationDelete, LocationEnter, LocationExit:
		if len(rest) != 1 {
			return Command{}, invalid("location %s requires a location id", out.Action)
		}
		id, err := parseID(rest[0])
		if err != nil {
			return Command{}, err
		}
		out.ID = id
	case LocationAdd:
		// location add <name...> <lat> <lng> [radius=<meters>]
		if n := len(rest); n > 0 {
			if v, ok := strings.CutPrefix(strings.ToLower(rest[n-1]), "radius="); ok {
				r, err := strconv.ParseFloat(strings.TrimSuffix(v, "m"), 64)
				if err != nil || r <= 0 {
					return Command{}, invalid("location: invalid radius %q", v)
				}
				out.Radius = r
				rest = rest[:n-1]
			}
		}
		if len(rest) < 3 {
			return Command{}, invalid("location add requires a name, latitude and longitude")
		}
		lat, lng, err := parseCoords(rest[len(rest)-2], rest[len(rest)-1])
		if err != nil {
			return Command{}, err
		}
		out.Latitude, out.Longitude = lat, lng
		out.Name = strings.Join(rest[:len(rest)-2], " ")
	default:
		return Command{}, invalid("location: unknown action %q", args[0])
	}
	return Command{Type: TypeLocation, Raw: raw, Location: &out}, nil
}

func parseRemind(raw string, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, invalid("remind requires a task id and a location id or off")
	}
	id, err := parseID(args[0])
	if err != nil {
		return Command{}, err
	}
	out := RemindArgs{ID: id}
	if !strings.EqualFold(args[1], "off") {
		loc, err := parseID(args[1])
		if err != nil {
			return Command{}, err
		}
		out.LocationID = &loc
	}
	return Command{Type: TypeRemind, Raw: raw, Remind: &out}, nil
}

func parseAt(raw string, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, invalid("at requires latitude and longitude")
	}
	lat, lng, err := parseCoords(args[0], args[1])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeAt, Raw: raw, At: &AtArgs{Latitude: lat, Longitude: lng}}, nil
}

func parseCoords(latRaw, lngRaw string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(strings.TrimSuffix(latRaw, ","), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, invalid("invalid latitude %q", latRaw)
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil || lng < -180 || lng > 180 {
		return 0, 0, invalid("invalid longitude %q", lngRaw)
	}
	return lat, lng, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("invalid task id %q", raw)
	}
	return id, nil
}

var whenLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseWhen reads absolute times in the local zone unless an offset is given.
func parseWhen(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range whenLayouts {
		t, err := time.ParseInLocation(layout, raw, time.Local)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
