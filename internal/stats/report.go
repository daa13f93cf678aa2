package stats

import (
	"context"

	"github.com/verte-zerg/wheelpoke/internal/model"
	"github.com/verte-zerg/wheelpoke/internal/store"
)

// StoredReport contains a stored run with every file loaded.
type StoredReport struct {
	Run   model.RunSummary
	Files []model.FileRecord
}

// BuildStoredReport loads a run and its files for rendering. An empty runID
// selects the latest run.
func BuildStoredReport(ctx context.Context, st *store.Store, runID string) (StoredReport, error) {
	var run model.RunSummary
	var err error
	if runID == "" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.GetRun(ctx, runID)
	}
	if err != nil {
		return StoredReport{}, err
	}

	files, err := st.ListFiles(ctx, run.RunID)
	if err != nil {
		return StoredReport{}, err
	}
	report := StoredReport{Run: run, Files: make([]model.FileRecord, 0, len(files))}
	for _, fs := range files {
		rec := model.FileRecord{Summary: fs}
		if fs.Err == "" {
			if rec.Images, err = st.ListImageStats(ctx, fs.FileID); err != nil {
				return StoredReport{}, err
			}
			if rec.Latencies, err = st.ListLatencies(ctx, fs.FileID); err != nil {
				return StoredReport{}, err
			}
			if rec.Rotations, err = st.ListRotations(ctx, fs.FileID); err != nil {
				return StoredReport{}, err
			}
		}
		report.Files = append(report.Files, rec)
	}
	return report, nil
}

// RotationSpeeds returns stored interval speeds in time order.
func RotationSpeeds(rec model.FileRecord) []float64 {
	out := make([]float64, len(rec.Rotations))
	for i, r := range rec.Rotations {
		out[i] = r.AvgSpeed
	}
	return out
}
