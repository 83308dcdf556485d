package store

import (
	"context"
	"path/filepath"
	"testing"

	"callscreen/internal/blocker"
	"callscreen/internal/reputation"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func intp(v int) *int { return &v }

func TestInsertAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pass := &blocker.Decision{Timestamp: "30.08.26 11:22:33", Rate: blocker.RatePass, Number: "", Name: "ANON"}
	block := &blocker.Decision{
		Timestamp: "30.08.26 11:25:00",
		Rate:      blocker.RateBlock,
		Number:    "030666777",
		Name:      "Spamfirma, Berlin",
		Reputation: &reputation.Info{
			Score: intp(8), Comments: intp(5), Searches: intp(231),
		},
	}
	if err := s.Insert(ctx, pass); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Insert(ctx, block); err != nil {
		t.Fatalf("insert: %v", err)
	}

	recent, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d records", len(recent))
	}
	// newest first
	if recent[0].Rate != "BLOCK" || recent[1].Rate != "PASS" {
		t.Fatalf("order wrong: %s, %s", recent[0].Rate, recent[1].Rate)
	}
	got := recent[0]
	if got.Number != "030666777" || got.Name != "Spamfirma, Berlin" {
		t.Fatalf("record = %+v", got)
	}
	if got.Score == nil || *got.Score != 8 || got.Comments == nil || *got.Comments != 5 {
		t.Fatalf("rating not persisted: %+v", got)
	}
	if recent[1].Score != nil {
		t.Fatalf("unrated decision should keep NULL rating, got %d", *recent[1].Score)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		d := &blocker.Decision{Timestamp: "t", Rate: blocker.RatePass, Number: "030123", Name: "Berlin"}
		if err := s.Insert(ctx, d); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("limit ignored, got %d records", len(recent))
	}
}

func TestHealth(t *testing.T) {
	s := openTestStore(t)
	if err := s.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}
