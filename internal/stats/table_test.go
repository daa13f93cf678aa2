package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Image", "Success", "Hits"}
	rows := [][]string{
		{"img7", "97.50%", "12"},
		{"negative", "8.00%", "3"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Image    Success Hits" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "img7      97.50%   12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "negative   8.00%    3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableTrimsTrailingPadding(t *testing.T) {
	lines := formatTable([]string{"Name", "Note"}, [][]string{{"a", ""}}, nil)
	if lines[1] != "a" {
		t.Fatalf("expected trailing padding trimmed, got %q", lines[1])
	}
}

func TestFormatValues(t *testing.T) {
	if got := fmtFloat(1.23456, 3); got != "1.235" {
		t.Fatalf("expected 1.235, got %s", got)
	}
	if got := fmtPercent(nan()); got != notAvailable {
		t.Fatalf("expected %s for NaN, got %s", notAvailable, got)
	}
}
