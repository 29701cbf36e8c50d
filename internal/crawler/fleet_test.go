package crawler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestFleetRunsAllTasksAndStopsOnCancel(t *testing.T) {
	const n = 3
	tasks := make([]*Task, n)
	for i := range tasks {
		tasks[i] = &Task{
			CoordinatorHost: "http://127.0.0.1:1",
			APIKey:          "test-key",
			UserAgent:       "badgecrawler/1.0",
			HTTPClient:      &http.Client{},
			Log:             zap.NewNop(),
		}
	}

	fleet := NewFleet(tasks, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	runCh := make(chan struct{})
	go func() {
		fleet.Run(ctx)
		close(runCh)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-runCh:
	case <-time.After(2 * time.Second):
		t.Fatal("Fleet.Run did not return after context cancellation")
	}
}
