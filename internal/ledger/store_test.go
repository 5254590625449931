package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) (*Store, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewStoreWithPath(dbPath)
	if err != nil {
		t.Fatalf("NewStoreWithPath() error = %v", err)
	}

	cleanup := func() {
		store.Close()
	}
	return store, cleanup
}

func TestNewStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()
}

func TestStore_RecordFillsDefaults(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	e := &Entry{
		RoomID:    "room-1",
		Operation: OpStyle,
		Style:     "Modern",
		Prompt:    "Redesign this room",
		Model:     "gemini-2.5-flash-image",
		Provider:  "gemini",
	}
	if err := store.Record(ctx, e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if e.ID == "" {
		t.Error("Record() did not assign an ID")
	}
	if e.Timestamp.IsZero() {
		t.Error("Record() did not assign a timestamp")
	}
	if e.Status != StatusOK {
		t.Errorf("Record() Status = %v, want %v", e.Status, StatusOK)
	}
}

func TestStore_ListByRoom(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	entries := []*Entry{
		{RoomID: "room-1", Operation: OpStyle, Style: "Modern", Prompt: "style", Model: "m", Provider: "gemini", Cost: 0.039, Duration: 1500 * time.Millisecond, Timestamp: base},
		{RoomID: "room-1", Operation: OpEdit, Prompt: "make it blue", Model: "m", Provider: "gemini", Status: StatusFailed, Error: "boom", Timestamp: base.Add(time.Minute)},
		{RoomID: "room-2", Operation: OpChat, Prompt: "suggest a rug", Model: "c", Provider: "gemini", Timestamp: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := store.ListByRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("ListByRoom() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListByRoom() returned %d entries, want 2", len(got))
	}

	if got[0].Operation != OpStyle || got[0].Style != "Modern" {
		t.Errorf("first entry = %+v, want style Modern", got[0])
	}
	if got[0].Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v, want 1.5s", got[0].Duration)
	}
	if got[1].Operation != OpEdit || !got[1].Failed() || got[1].Error != "boom" {
		t.Errorf("second entry = %+v, want failed edit", got[1])
	}
	if got[1].Style != "" {
		t.Errorf("edit Style = %q, want empty", got[1].Style)
	}

	recent, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 || recent[0].RoomID != "room-2" {
		t.Errorf("Recent(1) = %+v, want room-2 entry", recent)
	}
}

func TestStore_CostQueries(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now()
	entries := []*Entry{
		{RoomID: "r1", Operation: OpStyle, Prompt: "p", Model: "m", Provider: "gemini", Cost: 0.039, Timestamp: now},
		{RoomID: "r1", Operation: OpEdit, Prompt: "p", Model: "m", Provider: "gemini", Cost: 0.039, Timestamp: now},
		{RoomID: "r1", Operation: OpEdit, Prompt: "p", Model: "m", Provider: "gemini", Status: StatusFailed, Timestamp: now},
		{RoomID: "r1", Operation: OpChat, Prompt: "p", Model: "c", Provider: "gemini", Timestamp: now},
		{RoomID: "r2", Operation: OpStyle, Prompt: "p", Model: "gpt-image-1", Provider: "openai", Cost: 0.042, Timestamp: now.Add(-48 * time.Hour)},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	total, err := store.TotalCost(ctx)
	if err != nil {
		t.Fatalf("TotalCost() error = %v", err)
	}
	if total.EntryCount != 5 {
		t.Errorf("TotalCost().EntryCount = %d, want 5", total.EntryCount)
	}
	if total.ImageCount != 3 {
		t.Errorf("TotalCost().ImageCount = %d, want 3", total.ImageCount)
	}
	if diff := total.TotalCost - 0.12; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("TotalCost().TotalCost = %v, want 0.12", total.TotalCost)
	}

	room, err := store.RoomCost(ctx, "r1")
	if err != nil {
		t.Fatalf("RoomCost() error = %v", err)
	}
	if room.ImageCount != 2 || room.EntryCount != 4 {
		t.Errorf("RoomCost() = %+v, want 2 images / 4 entries", room)
	}

	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)
	today, err := store.CostByDateRange(ctx, start, end)
	if err != nil {
		t.Fatalf("CostByDateRange() error = %v", err)
	}
	if today.EntryCount != 4 {
		t.Errorf("CostByDateRange().EntryCount = %d, want 4", today.EntryCount)
	}

	byProvider, err := store.CostByProvider(ctx)
	if err != nil {
		t.Fatalf("CostByProvider() error = %v", err)
	}
	if len(byProvider) != 2 {
		t.Fatalf("CostByProvider() returned %d rows, want 2", len(byProvider))
	}
	if byProvider[0].Provider != "gemini" || byProvider[0].ImageCount != 2 {
		t.Errorf("CostByProvider()[0] = %+v", byProvider[0])
	}
	if byProvider[1].Provider != "openai" || byProvider[1].ImageCount != 1 {
		t.Errorf("CostByProvider()[1] = %+v", byProvider[1])
	}
}

func TestStore_EmptyCost(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	total, err := store.TotalCost(context.Background())
	if err != nil {
		t.Fatalf("TotalCost() error = %v", err)
	}
	if total.EntryCount != 0 || total.TotalCost != 0 {
		t.Errorf("TotalCost() = %+v, want zero", total)
	}
}
