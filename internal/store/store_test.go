package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/wheelpoke/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "wheelpoke.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func sampleRecord() model.FileRecord {
	return model.FileRecord{
		Summary: model.FileSummary{
			Path:        "/data/Results_1.txt",
			Identifier:  "Mouse_3",
			DriveID:     3,
			Preset:      model.Contrast,
			Appearances: 4,
			PokeEvents:  2,
			Rotations:   1,
		},
		Images: []model.ImageStats{
			{
				Name: "negative", Type: model.Reward, Contrast: 0, Appearances: 2, Hits: 1,
				TrueMean: 1.5, TrueSEM: math.NaN(), TrueSD: 0,
				AllMean: 5.75, AllSEM: 4.25, AllSD: 4.25,
				RPMMean: math.NaN(),
			},
			{
				Name: "gray", Type: model.Control, Contrast: 100,
				TrueMean: math.NaN(), TrueSEM: math.NaN(), TrueSD: math.NaN(),
				AllMean: math.NaN(), AllSEM: math.NaN(), AllSD: math.NaN(),
				RPMMean: 42, RPMCount: 1,
			},
		},
		Latencies: []model.LatencyRecord{
			{Time: 10, Image: "negative", Contrast: 0, Latency: 1.5, RewardSeq: 1},
			{Time: 40, Image: "negative", Contrast: 0, Latency: 10, RewardSeq: 2, TimedOut: true},
		},
		Rotations: []model.RotationRecord{
			{Image: "gray", Contrast: 100, StartTime: 3, AvgSpeed: 42},
		},
	}
}

func TestInsertRunRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	failed := model.FileRecord{Summary: model.FileSummary{Path: "/data/Results_2.txt", Err: "no start"}}
	runID, err := st.InsertRun(ctx, model.RunSummary{}, []model.FileRecord{sampleRecord(), failed})
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}
	if runID == "" {
		t.Fatalf("expected generated run id")
	}

	run, err := st.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Files != 2 || run.Failed != 1 {
		t.Fatalf("expected 2 files with 1 failed, got %+v", run)
	}

	files, err := st.ListFiles(ctx, runID)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Identifier != "Mouse_3" || files[0].Preset != model.Contrast {
		t.Fatalf("unexpected file summary: %+v", files[0])
	}
	if files[1].Err != "no start" {
		t.Fatalf("expected stored error, got %q", files[1].Err)
	}

	images, err := st.ListImageStats(ctx, files[0].FileID)
	if err != nil {
		t.Fatalf("list image stats: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("expected 2 image rows, got %d", len(images))
	}
	if images[0].Type != model.Reward || images[0].TrueMean != 1.5 {
		t.Fatalf("unexpected reward row: %+v", images[0])
	}
	if !math.IsNaN(images[0].TrueSEM) || !math.IsNaN(images[0].RPMMean) {
		t.Fatalf("expected NaN to survive storage, got %+v", images[0])
	}
	if images[1].RPMMean != 42 || images[1].RPMCount != 1 {
		t.Fatalf("unexpected control row: %+v", images[1])
	}

	lats, err := st.ListLatencies(ctx, files[0].FileID)
	if err != nil {
		t.Fatalf("list latencies: %v", err)
	}
	if len(lats) != 2 || lats[0].Latency != 1.5 || !lats[1].TimedOut {
		t.Fatalf("unexpected latencies: %+v", lats)
	}

	rots, err := st.ListRotations(ctx, files[0].FileID)
	if err != nil {
		t.Fatalf("list rotations: %v", err)
	}
	if len(rots) != 1 || rots[0].AvgSpeed != 42 {
		t.Fatalf("unexpected rotations: %+v", rots)
	}
}

func TestListRunsOrderAndLatest(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"b", "a", "c"} {
		run := model.RunSummary{RunID: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if _, err := st.InsertRun(ctx, run, nil); err != nil {
			t.Fatalf("insert run %s: %v", id, err)
		}
	}
	runs, err := st.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 || runs[0].RunID != "b" || runs[2].RunID != "c" {
		t.Fatalf("unexpected run order: %+v", runs)
	}
	latest, err := st.LatestRun(ctx)
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if latest.RunID != "c" {
		t.Fatalf("expected latest run c, got %s", latest.RunID)
	}
}

func TestMissingRun(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if _, err := st.LatestRun(ctx); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound on empty store, got %v", err)
	}
	if _, err := st.GetRun(ctx, "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}
