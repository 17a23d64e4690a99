package ratings

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRecordAndAll(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "ratings.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	seed := []Rating{
		{DocID: 1, RecommendationID: 2, Value: 5, Reporter: "10.0.0.1"},
		{DocID: 2, RecommendationID: 3, Value: 4, Reporter: "10.0.0.2"},
	}
	for _, r := range seed {
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("Record(%+v) error = %v", r, err)
		}
	}

	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("All() returned %d ratings, want 2", len(all))
	}
	if all[0] != seed[0] {
		t.Errorf("All()[0] = %+v, want %+v", all[0], seed[0])
	}
}

// One rating per (doc, recommendation) pair: a second report replaces the
// value instead of adding a row.
func TestRecordUpsert(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "ratings.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Record(ctx, Rating{DocID: 1, RecommendationID: 2, Value: 1, Reporter: "a"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := store.Record(ctx, Rating{DocID: 1, RecommendationID: 2, Value: 5, Reporter: "b"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("All() returned %d ratings after upsert, want 1", len(all))
	}
	if all[0].Value != 5 || all[0].Reporter != "b" {
		t.Errorf("upsert kept %+v, want value=5 reporter=b", all[0])
	}
}
