package crawler

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Fleet runs a fixed set of Tasks concurrently and waits for all of them
// to exit on shutdown. The shared-cancellation-plus-WaitGroup shape is
// lifted directly from the teacher's cmd/crawler/main.go signal-handling
// goroutine lifecycle (spec.md §5's worker cancellation contract), just
// applied to long-running poll loops instead of a single bounded crawl.
type Fleet struct {
	tasks []*Task
	log   *zap.Logger
}

// NewFleet builds a Fleet over the given tasks.
func NewFleet(tasks []*Task, log *zap.Logger) *Fleet {
	return &Fleet{tasks: tasks, log: log}
}

// Run starts every task and blocks until ctx is cancelled and all tasks
// have returned.
func (f *Fleet) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i, task := range f.tasks {
		wg.Add(1)
		go func(i int, task *Task) {
			defer wg.Done()
			task.Run(ctx)
		}(i, task)
	}
	f.log.Info("fleet started", zap.Int("tasks", len(f.tasks)))
	wg.Wait()
	f.log.Info("fleet stopped")
}
