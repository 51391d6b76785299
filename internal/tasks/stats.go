package tasks

import (
	"context"

	"github.com/sandeepkv93/zenith/internal/model"
)

type Stats struct {
	Total      int
	Active     int
	Completed  int
	Archived   int
	Snoozed    int
	ByEnergy   map[model.EnergyLevel]int
	ByPriority map[model.Priority]int
}

// CompletionRate is the share of non-archived tasks that are completed.
func (s Stats) CompletionRate() float64 {
	visible := s.Total - s.Archived
	if visible <= 0 {
		return 0
	}
	return float64(s.Completed) / float64(visible)
}

// Summarize counts tasks into exclusive buckets checked in the order
// archived, completed, snoozed, active.
func Summarize(all []model.Task) Stats {
	out := Stats{
		ByEnergy:   make(map[model.EnergyLevel]int, 3),
		ByPriority: make(map[model.Priority]int, 3),
	}
	for _, t := range all {
		out.Total++
		switch {
		case t.IsArchived:
			out.Archived++
		case t.IsCompleted:
			out.Completed++
		case t.IsSnoozed:
			out.Snoozed++
		default:
			out.Active++
		}
		if t.IsActive() {
			out.ByEnergy[t.EnergyLevel]++
			out.ByPriority[t.Priority]++
		}
	}
	return out
}

// Stats summarizes every stored task. Energy and priority counts cover
// active tasks only.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	all, err := s.All(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(all), nil
}
