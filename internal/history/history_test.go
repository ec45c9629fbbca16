package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pollboard/pkg/types"
)

func sampleRecord(id, question string) *types.PollRecord {
	return &types.PollRecord{
		Poll: &types.Poll{
			ID:            id,
			Question:      question,
			Options:       []types.PollOption{{ID: 1, Text: "Red"}, {ID: 2, Text: "Blue"}},
			TimerSeconds:  30,
			CreatedAt:     time.Now().UTC().Truncate(time.Second),
			TeacherHandle: "teacher_a1b2c3d4",
		},
		Results: types.VoteTally{"Red": 2, "Blue": 1},
	}
}

func TestMemoryStoreAppendAndList(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Append(ctx, sampleRecord("01A", "Color?")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(ctx, sampleRecord("01B", "Shape?")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("List returned %d records, want 2", len(records))
	}
	if records[0].Poll.Question != "Color?" || records[1].Poll.Question != "Shape?" {
		t.Error("records not in creation order")
	}
}

func TestMemoryStoreDetachesRecords(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	record := sampleRecord("01A", "Color?")
	if err := store.Append(ctx, record); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Mutating the caller's copy must not reach history.
	record.Results["Red"] = 99
	record.Poll.Question = "changed"

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if records[0].Results["Red"] != 2 {
		t.Error("history record shares tally with caller")
	}
	if records[0].Poll.Question != "Color?" {
		t.Error("history record shares poll with caller")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()

	ctx := context.Background()
	want := sampleRecord("01HQZX3V9A", "Color?")
	if err := store.Append(ctx, want); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("List returned %d records, want 1", len(records))
	}

	got := records[0]
	if got.Poll.ID != want.Poll.ID || got.Poll.Question != want.Poll.Question {
		t.Errorf("poll mismatch: got %+v", got.Poll)
	}
	if len(got.Poll.Options) != 2 || got.Poll.Options[0].Text != "Red" {
		t.Errorf("options mismatch: got %+v", got.Poll.Options)
	}
	if got.Results["Red"] != 2 || got.Results["Blue"] != 1 {
		t.Errorf("results mismatch: got %+v", got.Results)
	}
}

func TestSQLiteStoreListOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	// ULIDs sort lexically by creation time; insert out of order.
	for _, id := range []string{"01C", "01A", "01B"} {
		if err := store.Append(ctx, sampleRecord(id, "q-"+id)); err != nil {
			t.Fatalf("Append %s: %v", id, err)
		}
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	wantOrder := []string{"01A", "01B", "01C"}
	for i, want := range wantOrder {
		if records[i].Poll.ID != want {
			t.Errorf("records[%d].ID = %s, want %s", i, records[i].Poll.ID, want)
		}
	}
}

func TestSQLiteStoreHealthCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}

func TestSQLiteStoreCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
