package api

import (
	"context"
	"time"
)

// RunEvent announces a completed planning run to downstream consumers
// (dashboards, notification jobs). Fire-and-forget; delivery is best effort.
type RunEvent struct {
	RunID       string    `json:"runId"`
	Office      string    `json:"office"`
	WeekStart   string    `json:"weekStart"`
	Status      string    `json:"status"`
	Assignments int       `json:"assignments"`
	TS          time.Time `json:"ts"`
}

type EventPublisher interface {
	PublishRun(ctx context.Context, evt RunEvent)
}

// NopPublisher is used when no REDIS_URL is configured.
type NopPublisher struct{}

func (NopPublisher) PublishRun(context.Context, RunEvent) {}
