package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandeepkv93/zenith/internal/commands"
	"github.com/sandeepkv93/zenith/internal/focus"
	"github.com/sandeepkv93/zenith/internal/model"
	"github.com/sandeepkv93/zenith/internal/storage"
)

func (a *App) activityCommand(ctx context.Context, args commands.ActivityArgs) (commands.Result, error) {
	applied, err := a.Focus.ActivityDetected(ctx, args.Label, args.Confidence)
	if err != nil {
		return commands.Result{}, err
	}
	activity := model.ParseActivity(args.Label)
	if !applied {
		if args.Confidence < focus.ActivityConfidenceThreshold {
			return commands.Result{Message: fmt.Sprintf("Ignored %s: confidence %d is below %d", activity, args.Confidence, focus.ActivityConfidenceThreshold)}, nil
		}
		return commands.Result{Message: fmt.Sprintf("Ignored %s: no focus session is running", activity)}, nil
	}
	return commands.Result{Message: fmt.Sprintf("Focus activity set to %s", activity)}, nil
}

func (a *App) locationCommand(ctx context.Context, args commands.LocationArgs) (commands.Result, error) {
	switch args.Action {
	case commands.LocationAdd:
		loc, err := a.Locations.Add(ctx, model.Location{
			Name:      args.Name,
			Latitude:  args.Latitude,
			Longitude: args.Longitude,
			Radius:    args.Radius,
		})
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: fmt.Sprintf("Added location #%d %q (%.0fm)", loc.ID, loc.Name, loc.Radius)}, nil
	case commands.LocationList:
		list, err := a.Locations.List(ctx)
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: fmt.Sprintf("%d location(s)", len(list)), Body: LocationTable(list)}, nil
	case commands.LocationDelete:
		loc, err := a.lookupLocation(ctx, args.ID)
		if err != nil {
			return commands.Result{}, err
		}
		if err := a.Locations.Delete(ctx, args.ID); err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: fmt.Sprintf("Deleted location #%d %q", loc.ID, loc.Name)}, nil
	case commands.LocationEnter:
		loc, err := a.lookupLocation(ctx, args.ID)
		if err != nil {
			return commands.Result{}, err
		}
		n, err := a.Geofence.OnEnter(ctx, args.ID)
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: fmt.Sprintf("Entered %q: %d reminder(s)", loc.Name, n)}, nil
	case commands.LocationExit:
		loc, err := a.lookupLocation(ctx, args.ID)
		if err != nil {
			return commands.Result{}, err
		}
		n, err := a.Geofence.OnExit(ctx, args.ID)
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: fmt.Sprintf("Left %q: %d reminder(s) re-armed", loc.Name, n)}, nil
	default:
		return commands.Result{}, fmt.Errorf("location: unknown action %q", args.Action)
	}
}

func (a *App) remindCommand(ctx context.Context, args commands.RemindArgs) (commands.Result, error) {
	t, ok, err := a.lookup(ctx, args.ID)
	if err != nil {
		return commands.Result{}, err
	}
	if !ok {
		return missingTask(args.ID), nil
	}
	if args.LocationID == nil {
		if err := a.Tasks.SetLocationReminder(ctx, args.ID, t.LocationID, false); err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: fmt.Sprintf("Location reminder off for #%d %q", t.ID, t.Title)}, nil
	}
	loc, err := a.lookupLocation(ctx, *args.LocationID)
	if err != nil {
		return commands.Result{}, err
	}
	if err := a.Tasks.SetLocationReminder(ctx, args.ID, args.LocationID, true); err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Message: fmt.Sprintf("#%d %q reminds at %q", t.ID, t.Title, loc.Name)}, nil
}

func (a *App) atCommand(ctx context.Context, args commands.AtArgs) (commands.Result, error) {
	entered, exited, err := a.ObserveLocation(ctx, args.Latitude, args.Longitude)
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Message: fmt.Sprintf("Position %.5f, %.5f: entered %d, left %d location(s)",
		args.Latitude, args.Longitude, len(entered), len(exited))}, nil
}

func (a *App) lookupLocation(ctx context.Context, id int64) (model.Location, error) {
	loc, err := a.Locations.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Location{}, fmt.Errorf("location #%d not found", id)
	}
	return loc, err
}
