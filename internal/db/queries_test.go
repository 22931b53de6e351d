package db

import (
	"testing"
	"time"

	"github.com/j-veylop/data-watchdog/internal/models"
)

var day0 = time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC) // a Monday

func insertDay(t *testing.T, db *DB, ts time.Time, snapshot models.Snapshot) {
	t.Helper()
	if err := db.InsertUsageSamples(ts, snapshot); err != nil {
		t.Fatalf("InsertUsageSamples() failed: %v", err)
	}
}

func TestInsertUsageSamples_Empty(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	if err := db.InsertUsageSamples(day0, nil); err != nil {
		t.Fatalf("InsertUsageSamples(nil) failed: %v", err)
	}

	total, err := db.SumUsageSince(time.Time{})
	if err != nil {
		t.Fatalf("SumUsageSince() failed: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected 0 bytes, got %d", total)
	}
}

func TestGetDailyUsage(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	insertDay(t, db, day0, models.Snapshot{{AppID: "a", Bytes: 100}, {AppID: "b", Bytes: 50}})
	insertDay(t, db, day0.Add(time.Hour), models.Snapshot{{AppID: "a", Bytes: 25}})
	// Day 1 has no samples.
	insertDay(t, db, day0.AddDate(0, 0, 2), models.Snapshot{{AppID: "a", Bytes: 300}})
	// Today is excluded.
	insertDay(t, db, day0.AddDate(0, 0, 3), models.Snapshot{{AppID: "a", Bytes: 999}})

	daily, err := db.GetDailyUsage(7, day0.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("GetDailyUsage() failed: %v", err)
	}

	want := []models.DailyUsage{
		{Label: "Mon 2026-10-12", Bytes: 175},
		{Label: "Tue 2026-10-13", Bytes: 0},
		{Label: "Wed 2026-10-14", Bytes: 300},
	}
	if len(daily) != len(want) {
		t.Fatalf("Expected %d days, got %d: %v", len(want), len(daily), daily)
	}
	for i := range want {
		if daily[i] != want[i] {
			t.Errorf("day %d = %+v, want %+v", i, daily[i], want[i])
		}
	}
}

func TestGetDailyUsage_WindowLimit(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	for i := range 10 {
		insertDay(t, db, day0.AddDate(0, 0, i), models.Snapshot{{AppID: "a", Bytes: int64(i + 1)}})
	}

	daily, err := db.GetDailyUsage(7, day0.AddDate(0, 0, 10))
	if err != nil {
		t.Fatalf("GetDailyUsage() failed: %v", err)
	}
	if len(daily) != 7 {
		t.Fatalf("Expected 7 days, got %d", len(daily))
	}
	if daily[0].Bytes != 4 || daily[6].Bytes != 10 {
		t.Errorf("Unexpected window %v", daily)
	}
}

func TestGetDailyUsage_NoData(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	daily, err := db.GetDailyUsage(7, day0)
	if err != nil {
		t.Fatalf("GetDailyUsage() failed: %v", err)
	}
	if len(daily) != 0 {
		t.Errorf("Expected no days, got %v", daily)
	}
}

func TestGetRecentAppSamples(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	for i := range 12 {
		insertDay(t, db, day0.Add(time.Duration(i)*time.Minute), models.Snapshot{
			{AppID: "a", Bytes: int64(i)},
			{AppID: "b", Bytes: int64(100 + i)},
		})
	}

	samples, err := db.GetRecentAppSamples(10)
	if err != nil {
		t.Fatalf("GetRecentAppSamples() failed: %v", err)
	}

	a := samples["a"]
	if len(a) != 10 {
		t.Fatalf("Expected 10 samples for a, got %d", len(a))
	}
	if a[0] != 2 || a[9] != 11 {
		t.Errorf("Expected newest ten oldest first, got %v", a)
	}
	if len(samples["b"]) != 10 {
		t.Errorf("Expected 10 samples for b, got %d", len(samples["b"]))
	}
}

func TestGetRecentIntervalTotals(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	for i := range 3 {
		insertDay(t, db, day0.Add(time.Duration(i)*time.Minute), models.Snapshot{
			{AppID: "a", Bytes: int64(i)},
			{AppID: "b", Bytes: 10},
		})
	}

	totals, err := db.GetRecentIntervalTotals(2)
	if err != nil {
		t.Fatalf("GetRecentIntervalTotals() failed: %v", err)
	}
	if len(totals) != 2 || totals[0] != 11 || totals[1] != 12 {
		t.Errorf("Expected [11 12], got %v", totals)
	}
}

func TestSumUsageSinceAndTopApps(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	insertDay(t, db, day0, models.Snapshot{{AppID: "old", Bytes: 1000}})
	insertDay(t, db, day0.Add(time.Hour), models.Snapshot{
		{AppID: "a", AppName: "Alpha", Bytes: 10, MobileBytes: 4, HasInterfaceSplit: true},
		{AppID: "b", Bytes: 30},
	})
	insertDay(t, db, day0.Add(2*time.Hour), models.Snapshot{{AppID: "a", AppName: "Alpha", Bytes: 15}})

	total, err := db.SumUsageSince(day0.Add(time.Hour))
	if err != nil {
		t.Fatalf("SumUsageSince() failed: %v", err)
	}
	if total != 55 {
		t.Errorf("Expected 55 bytes, got %d", total)
	}

	top, err := db.GetTopApps(day0.Add(time.Hour), 5)
	if err != nil {
		t.Fatalf("GetTopApps() failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("Expected 2 apps, got %d", len(top))
	}
	if top[0].AppID != "b" || top[1].AppID != "a" || top[1].Bytes != 25 || top[1].MobileBytes != 4 {
		t.Errorf("Unexpected top apps %+v", top)
	}
	if top[1].AppName != "Alpha" {
		t.Errorf("Expected app name Alpha, got %q", top[1].AppName)
	}
}

func TestBundle_UpsertAndGet(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	got, err := db.GetBundle()
	if err != nil || got != nil {
		t.Fatalf("Expected no bundle, got %v, %v", got, err)
	}

	b := &models.Bundle{
		Provider:   "Carrier",
		TotalBytes: 5000 * models.MiB,
		UsedBytes:  -1,
		Expiry:     day0.AddDate(0, 0, 30),
	}
	if err := db.UpsertBundle(b); err != nil {
		t.Fatalf("UpsertBundle() failed: %v", err)
	}

	b.UsedBytes = 100
	b.Provider = "Other"
	if err := db.UpsertBundle(b); err != nil {
		t.Fatalf("UpsertBundle() update failed: %v", err)
	}

	got, err = db.GetBundle()
	if err != nil {
		t.Fatalf("GetBundle() failed: %v", err)
	}
	if got.Provider != "Other" || got.UsedBytes != 100 || got.TotalBytes != b.TotalBytes {
		t.Errorf("Unexpected bundle %+v", got)
	}
	if !got.Expiry.Equal(b.Expiry) {
		t.Errorf("Expiry = %v, want %v", got.Expiry, b.Expiry)
	}
	if !got.CycleStart.IsZero() {
		t.Errorf("Expected zero cycle start, got %v", got.CycleStart)
	}
	if got.LastUpdated.IsZero() {
		t.Error("Expected last updated to be set")
	}
}

func TestAlerts_InsertAndGet(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	alerts := []models.DrainAlert{
		{
			Timestamp:  day0,
			AppID:      "a",
			AppName:    "Alpha",
			Message:    "high usage",
			DataUsed:   42 * models.MiB,
			Percentage: 55.5,
			Kind:       models.AlertUsage,
			Severity:   models.SeverityCritical,
		},
		{
			Timestamp: day0.Add(time.Minute),
			AppID:     models.BundleAlertAppID,
			Message:   "pacing",
			Kind:      models.AlertBundlePacing,
			Severity:  models.SeverityHigh,
		},
	}

	if err := db.InsertAlerts(alerts); err != nil {
		t.Fatalf("InsertAlerts() failed: %v", err)
	}
	if alerts[0].ID == "" || alerts[1].ID == "" {
		t.Fatal("InsertAlerts() should assign IDs")
	}

	// Same IDs again are ignored.
	if err := db.InsertAlerts(alerts); err != nil {
		t.Fatalf("InsertAlerts() repeat failed: %v", err)
	}

	got, err := db.GetRecentAlerts(day0, 10)
	if err != nil {
		t.Fatalf("GetRecentAlerts() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 alerts, got %d", len(got))
	}
	if got[0].Kind != models.AlertBundlePacing || got[0].Severity != models.SeverityHigh {
		t.Errorf("Expected newest pacing alert first, got %+v", got[0])
	}
	if got[1].DataUsed != 42*models.MiB || got[1].Percentage != 55.5 || got[1].AppName != "Alpha" {
		t.Errorf("Unexpected alert %+v", got[1])
	}

	got, err = db.GetRecentAlerts(day0.Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("GetRecentAlerts() failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Expected 1 alert since cutoff, got %d", len(got))
	}
}

func TestPrediction_InsertAndLatest(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	latest, err := db.GetLatestPrediction()
	if err != nil || latest != nil {
		t.Fatalf("Expected no prediction, got %v, %v", latest, err)
	}

	for i, trend := range []models.Trend{models.TrendStable, models.TrendIncreasing} {
		rec := &models.PredictionRecord{
			Timestamp: day0.Add(time.Duration(i) * time.Hour),
			UsagePrediction: models.UsagePrediction{
				RecommendedDailyBudget: 100,
				Confidence:             0.7,
				ProjectedOverage:       uint64(i) * models.MiB,
				DaysToExhaustion:       9,
				Trend:                  trend,
				WillExceedLimit:        i == 1,
			},
		}
		if err := db.InsertPrediction(rec); err != nil {
			t.Fatalf("InsertPrediction() failed: %v", err)
		}
		if rec.ID == 0 {
			t.Error("InsertPrediction() should set ID")
		}
	}

	latest, err = db.GetLatestPrediction()
	if err != nil {
		t.Fatalf("GetLatestPrediction() failed: %v", err)
	}
	if latest.Trend != models.TrendIncreasing || !latest.WillExceedLimit || latest.ProjectedOverage != models.MiB {
		t.Errorf("Unexpected latest prediction %+v", latest)
	}
	if latest.DaysToExhaustion != 9 || latest.Confidence != 0.7 {
		t.Errorf("Unexpected latest prediction %+v", latest)
	}
}

func TestDeleteOldData(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	insertDay(t, db, day0, models.Snapshot{{AppID: "a", Bytes: 1}, {AppID: "b", Bytes: 1}})
	insertDay(t, db, day0.AddDate(0, 0, 5), models.Snapshot{{AppID: "a", Bytes: 1}})
	if err := db.InsertAlerts([]models.DrainAlert{{Timestamp: day0, AppID: "a", Message: "x"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertPrediction(&models.PredictionRecord{Timestamp: day0}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertBundle(&models.Bundle{TotalBytes: 1, UsedBytes: -1, LastUpdated: day0}); err != nil {
		t.Fatal(err)
	}

	removed, err := db.DeleteOldData(day0.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("DeleteOldData() failed: %v", err)
	}
	if removed != 4 {
		t.Errorf("Expected 4 rows removed, got %d", removed)
	}

	total, _ := db.SumUsageSince(time.Time{})
	if total != 1 {
		t.Errorf("Expected 1 byte left, got %d", total)
	}
	if b, _ := db.GetBundle(); b == nil {
		t.Error("Bundle should survive pruning")
	}
}
