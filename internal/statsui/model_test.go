package statsui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/wheelpoke/internal/model"
	"github.com/verte-zerg/wheelpoke/internal/stats"
	"github.com/verte-zerg/wheelpoke/internal/store"
)

func TestFindFileWrapsAround(t *testing.T) {
	files := []model.FileRecord{
		{Summary: model.FileSummary{Identifier: "Mouse_1", Path: "/a/Results_1.txt"}},
		{Summary: model.FileSummary{Identifier: "Mouse_2", Path: "/b/Results_2.txt"}},
		{Summary: model.FileSummary{Identifier: "Mouse_1", Path: "/c/Results_1.txt"}},
	}
	idx, ok := findFile(files, "mouse_1", 0)
	if !ok || idx != 2 {
		t.Fatalf("expected next match at 2, got %d (%v)", idx, ok)
	}
	idx, ok = findFile(files, "mouse_1", 2)
	if !ok || idx != 0 {
		t.Fatalf("expected wrap to 0, got %d (%v)", idx, ok)
	}
	if _, ok := findFile(files, "/b/", 0); !ok {
		t.Fatalf("expected path match")
	}
	if _, ok := findFile(files, "Mouse_9", 0); ok {
		t.Fatalf("expected no match")
	}
}

func TestCurveWindowSteps(t *testing.T) {
	if got := nextCurveWindow(1); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
	if got := nextCurveWindow(5); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if got := prevCurveWindow(7); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
	if got := prevCurveWindow(5); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestFitLines(t *testing.T) {
	got := fitLines("ab\ncd\nef", 3, 2)
	if got != "ab \ncd " {
		t.Fatalf("unexpected fit %q", got)
	}
}

func TestModelRendersStoredRun(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "wheelpoke.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	rec := model.FileRecord{
		Summary: model.FileSummary{Path: "/data/Results_3.txt", Identifier: "Mouse_3", Preset: model.Night4, PokeEvents: 2, Rotations: 2},
		Images: []model.ImageStats{
			{Name: "grating100", Type: model.Reward, Contrast: 100, Appearances: 2, Hits: 2, TrueMean: 1.2, RPMMean: 40, RPMCount: 2},
		},
		Rotations: []model.RotationRecord{
			{Image: "grating100", Contrast: 100, StartTime: 1, AvgSpeed: 35},
			{Image: "grating100", Contrast: 100, StartTime: 9, AvgSpeed: 45},
		},
	}
	if _, err := st.InsertRun(context.Background(), model.RunSummary{RunID: "run-1"}, []model.FileRecord{rec}); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	m := NewModel(st, "")
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	view := m.View()
	if !strings.Contains(view, "Mouse_3") {
		t.Fatalf("expected overview to list the file, got:\n%s", view)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	if view := m.View(); !strings.Contains(view, "grating100") {
		t.Fatalf("expected image table to show grating100, got:\n%s", view)
	}
}

func TestRenderOverviewWrapsFailures(t *testing.T) {
	report := stats.StoredReport{
		Run: model.RunSummary{RunID: "run-2", Files: 1, Failed: 1},
		Files: []model.FileRecord{
			{Summary: model.FileSummary{Path: "/data/Results_9.txt", Err: "parser: no start sentinel found in log body"}},
		},
	}
	out := renderOverview(report, 30)
	if !strings.Contains(out, "sentinel") {
		t.Fatalf("expected failure text in overview, got:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Results_9") && strings.Contains(line, "body") {
			t.Fatalf("expected failure to wrap across lines, got:\n%s", out)
		}
	}
}
