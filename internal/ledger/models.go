package ledger

import (
	"context"
	"time"
)

type Operation string

const (
	OpStyle Operation = "style"
	OpEdit  Operation = "edit"
	OpChat  Operation = "chat"
)

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Entry records one call to an external collaborator.
type Entry struct {
	ID        string
	RoomID    string
	Operation Operation
	Style     string
	Prompt    string
	Model     string
	Provider  string
	Status    Status
	Error     string
	Duration  time.Duration
	Cost      float64
	Timestamp time.Time
}

// Recorder persists ledger entries. *Store implements it.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
}

func (e *Entry) Failed() bool {
	return e.Status == StatusFailed
}

type CostSummary struct {
	TotalCost  float64
	ImageCount int
	EntryCount int
}

type ProviderCostSummary struct {
	Provider   string
	TotalCost  float64
	ImageCount int
}

func FormatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
