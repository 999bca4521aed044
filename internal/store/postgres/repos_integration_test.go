package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"bookcal/backend/internal/domain"
	"bookcal/backend/internal/store"
)

func TestPostgresIntegration_SlotAndBookingLifecycle(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("BOOKCAL_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("BOOKCAL_TEST_DATABASE_URL not set")
	}

	// A single connection keeps the session-level search_path stable.
	db, err := Open(databaseURL, PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := "bookcal_test_" + randomHex(t, 8)
	if _, err := db.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer ccancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(cctx)
	})
	if _, err := db.NewRaw("SET search_path TO " + schema).Exec(ctx); err != nil {
		t.Fatalf("set search_path: %v", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	providerRepo := NewProviderRepo(db)
	slotRepo := NewSlotRepo(db)
	apptRepo := NewAppointmentRepo(db)

	provider, err := providerRepo.Create(ctx, domain.Provider{
		Email:        "owner@example.com",
		PasswordHash: "x",
		Name:         "Dr. Owner",
		SharableID:   "01HTESTSHARABLEID000000000",
		Timezone:     "+00:00",
	})
	if err != nil {
		t.Fatalf("provider create: %v", err)
	}

	// Duplicate email maps to a conflict.
	_, err = providerRepo.Create(ctx, domain.Provider{
		Email:        "owner@example.com",
		PasswordHash: "x",
		Name:         "Other",
		SharableID:   "01HTESTSHARABLEID000000001",
		Timezone:     "+00:00",
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate email err = %v, want %v", err, store.ErrConflict)
	}

	day := time.Date(2026, 11, 23, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	candidates := domain.CandidateSlots(provider.ID, domain.MustParseOffset("+00:00"), day, day, now)
	if len(candidates) != 16 {
		t.Fatalf("candidates = %d, want 16", len(candidates))
	}

	inserted, err := slotRepo.BulkInsert(ctx, candidates)
	if err != nil {
		t.Fatalf("bulk insert: %v", err)
	}
	if inserted != 16 {
		t.Fatalf("inserted = %d, want 16", inserted)
	}

	// A second run of the same candidates loses every uniqueness race and
	// inserts nothing, without erroring.
	again := domain.CandidateSlots(provider.ID, domain.MustParseOffset("+00:00"), day, day, now)
	inserted, err = slotRepo.BulkInsert(ctx, again)
	if err != nil {
		t.Fatalf("second bulk insert: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("second insert = %d, want 0", inserted)
	}

	furthest, hasSlots, err := slotRepo.FurthestDay(ctx, provider.ID)
	if err != nil {
		t.Fatalf("furthest day: %v", err)
	}
	if !hasSlots || !furthest.Equal(day) {
		t.Fatalf("furthest = %s/%v, want %s/true", furthest, hasSlots, day)
	}

	listed, err := slotRepo.ListByDayRange(ctx, provider.ID, day, day, false, now)
	if err != nil {
		t.Fatalf("list by day range: %v", err)
	}
	if len(listed) != 16 {
		t.Fatalf("listed = %d, want 16", len(listed))
	}

	starts := []time.Time{listed[0].StartTime, listed[0].StartTime.Add(365 * 24 * time.Hour)}
	existing, err := slotRepo.ExistingStartTimes(ctx, provider.ID, starts)
	if err != nil {
		t.Fatalf("existing start times: %v", err)
	}
	if len(existing) != 1 || !existing[0].Equal(listed[0].StartTime) {
		t.Fatalf("existing = %v, want exactly the first start", existing)
	}

	slot := listed[0]

	// Claim wins once, then loses.
	if err := slotRepo.SetBooked(ctx, slot.ID, true); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := slotRepo.SetBooked(ctx, slot.ID, true); !errors.Is(err, store.ErrAlreadyBooked) {
		t.Fatalf("second claim err = %v, want %v", err, store.ErrAlreadyBooked)
	}

	appt, err := apptRepo.Insert(ctx, domain.Appointment{
		ProviderID: provider.ID,
		SlotID:     slot.ID,
		Name:       "Jane",
		Email:      "jane@example.com",
		Guests:     []string{"g1@example.com"},
	})
	if err != nil {
		t.Fatalf("appointment insert: %v", err)
	}

	listedAppts, total, err := apptRepo.ListByTimeDirection(ctx, provider.ID, store.TimeDirectionFuture, now, 1, 10)
	if err != nil {
		t.Fatalf("list appointments: %v", err)
	}
	if total != 1 || len(listedAppts) != 1 {
		t.Fatalf("total/len = %d/%d, want 1/1", total, len(listedAppts))
	}
	if listedAppts[0].Appointment.ID != appt.ID {
		t.Fatalf("listed id = %s, want %s", listedAppts[0].Appointment.ID, appt.ID)
	}
	if listedAppts[0].Slot.ID != slot.ID {
		t.Fatalf("joined slot id = %s, want %s", listedAppts[0].Slot.ID, slot.ID)
	}
	if len(listedAppts[0].Appointment.Guests) != 1 {
		t.Fatalf("guests round-trip = %v, want one entry", listedAppts[0].Appointment.Guests)
	}

	// Relative to a time after the slot the appointment counts as past.
	_, totalFuture, err := apptRepo.ListByTimeDirection(ctx, provider.ID, store.TimeDirectionFuture, slot.EndTime.Add(time.Hour), 1, 10)
	if err != nil {
		t.Fatalf("list future: %v", err)
	}
	if totalFuture != 0 {
		t.Fatalf("future total = %d, want 0", totalFuture)
	}

	if err := apptRepo.SoftDelete(ctx, appt.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := apptRepo.SoftDelete(ctx, appt.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("second soft delete err = %v, want %v", err, store.ErrConflict)
	}
	if err := slotRepo.SetBooked(ctx, slot.ID, false); err != nil {
		t.Fatalf("free: %v", err)
	}

	_, total, err = apptRepo.ListByTimeDirection(ctx, provider.ID, store.TimeDirectionFuture, now, 1, 10)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if total != 0 {
		t.Fatalf("total after delete = %d, want 0", total)
	}

	// Cleanup removes the expired unbooked slots but spares the booked one.
	keep := listed[1]
	if err := slotRepo.SetBooked(ctx, keep.ID, true); err != nil {
		t.Fatalf("claim keeper: %v", err)
	}
	deleted, err := slotRepo.DeletePastUnbooked(ctx, day.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 15 {
		t.Fatalf("deleted = %d, want 15", deleted)
	}
	remaining, err := slotRepo.ListByDayRange(ctx, provider.ID, day, day, false, now)
	if err != nil {
		t.Fatalf("list remaining: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != keep.ID {
		t.Fatalf("remaining = %d slots, want only the booked one", len(remaining))
	}
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

func applyMigrations(ctx context.Context, exec rawExecutor) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type mig struct {
		name string
		path string
	}
	migs := make([]mig, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		migs = append(migs, mig{name: e.Name(), path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].name < migs[j].name })

	for _, m := range migs {
		b, err := os.ReadFile(m.path)
		if err != nil {
			return err
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			return err
		}
		for _, stmt := range splitSQLStatements(upSQL) {
			if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime.Caller failed")
	}
	base := filepath.Dir(file)
	return filepath.Clean(filepath.Join(base, "..", "..", "..", "migrations")), nil
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := sql[upIdx+len(upMarker):]
	afterUp = strings.TrimLeft(afterUp, "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
