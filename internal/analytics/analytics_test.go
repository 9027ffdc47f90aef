package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"real-estate-matching/internal/database"
	"real-estate-matching/internal/models"

	"go.uber.org/zap"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	return loc
}

func TestDayBounds(t *testing.T) {
	loc := mustLocation(t, "Europe/Paris")
	// 23:30 UTC on 30 April is already 1 May in Paris
	start, end := DayBounds(time.Date(2024, 4, 30, 23, 30, 0, 0, time.UTC), loc)

	if want := time.Date(2024, 5, 1, 0, 0, 0, 0, loc); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
	if want := time.Date(2024, 5, 2, 0, 0, 0, 0, loc); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}
}

func TestGenerateDailyCountsYesterday(t *testing.T) {
	loc := mustLocation(t, DefaultTimezone)
	store := database.NewMemoryStore()
	yesterday := time.Date(2024, 5, 1, 0, 0, 0, 0, loc)

	store.PutUser(models.User{ID: "u1", CreatedAt: yesterday})
	store.PutUser(models.User{ID: "u2", CreatedAt: yesterday.Add(23*time.Hour + 59*time.Minute)})
	store.PutUser(models.User{ID: "u3", CreatedAt: yesterday.AddDate(0, 0, 1)})
	store.PutListing(models.Listing{ID: "l1", CreatedAt: yesterday.Add(12 * time.Hour)})
	store.PutListing(models.Listing{ID: "l2", CreatedAt: yesterday.Add(-time.Second)})
	store.PutRequest(models.Request{ID: "r1", CreatedAt: yesterday.Add(time.Hour)})

	svc := NewService(store, loc, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 5, 2, 2, 0, 0, 0, loc) }

	record, err := svc.GenerateDaily(context.Background())
	if err != nil {
		t.Fatalf("GenerateDaily: %v", err)
	}
	if record.ID != "daily_2024-05-01" {
		t.Errorf("id = %s", record.ID)
	}
	if record.NewUsers != 2 || record.NewListings != 1 || record.NewRequests != 1 {
		t.Errorf("unexpected counts: %+v", record)
	}
	if _, ok := store.DailyAnalytics("daily_2024-05-01"); !ok {
		t.Error("record was not stored")
	}
}

func TestGenerateForDayOverwrites(t *testing.T) {
	store := database.NewMemoryStore()
	svc := NewService(store, time.UTC, zap.NewNop())
	day := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	if _, err := svc.GenerateForDay(context.Background(), day); err != nil {
		t.Fatal(err)
	}
	store.PutUser(models.User{ID: "late", CreatedAt: day})
	if _, err := svc.GenerateForDay(context.Background(), day); err != nil {
		t.Fatal(err)
	}

	got, _ := store.DailyAnalytics("daily_2024-05-01")
	if got.NewUsers != 1 {
		t.Fatalf("expected overwritten record with 1 user, got %+v", got)
	}
}

func TestGenerateForDayStoreError(t *testing.T) {
	store := database.NewMemoryStore().WithError(errors.New("down"))
	svc := NewService(store, time.UTC, zap.NewNop())

	if _, err := svc.GenerateForDay(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error")
	}
}
