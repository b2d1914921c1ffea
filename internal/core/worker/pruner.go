package worker

import (
	"context"
	"log/slog"
	"time"
)

// PruneFunc removes expired state and returns how many entries it dropped.
type PruneFunc func() int

// Task is a named PruneFunc.
type Task struct {
	Name  string
	Prune PruneFunc
}

// Pruner periodically drops expired in-process state such as idle
// rate-limit windows.
type Pruner struct {
	interval time.Duration
	tasks    []Task
}

// NewPruner creates a new Pruner worker.
func NewPruner(interval time.Duration, tasks ...Task) *Pruner {
	return &Pruner{
		interval: interval,
		tasks:    tasks,
	}
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.interval <= 0 || len(p.tasks) == 0 {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneOnce()
		}
	}
}

// PruneOnce runs every task and returns the total removed.
func (p *Pruner) PruneOnce() int {
	total := 0
	for _, t := range p.tasks {
		removed := t.Prune()
		if removed > 0 {
			slog.Debug("Pruned expired entries", "task", t.Name, "removed", removed)
		}
		total += removed
	}
	return total
}
