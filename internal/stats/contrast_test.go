package stats

import (
	"testing"

	"github.com/verte-zerg/wheelpoke/internal/registry"
)

func TestGetContrast(t *testing.T) {
	cases := map[string]int{
		"negative_control": 0,
		"Negative":         0,
		"img100.png":       100,
		"img7_a":           8,
		"grating27":        32,
		"plainimage":       100,
		"img33":            33,
	}
	for name, want := range cases {
		if got := GetContrast(name); got != want {
			t.Fatalf("expected contrast %d for %q, got %d", want, name, got)
		}
	}
}

func TestNaturalLess(t *testing.T) {
	if !NaturalLess("img7", "img27") {
		t.Fatalf("expected img7 before img27")
	}
	if NaturalLess("img27", "img7") {
		t.Fatalf("expected img27 after img7")
	}
	if !NaturalLess("a", "b") {
		t.Fatalf("expected lexical order for plain names")
	}
	if !NaturalLess("img", "img1") {
		t.Fatalf("expected shorter prefix first")
	}
	if NaturalLess("img1", "img1") {
		t.Fatalf("expected equal names not to be less")
	}
}

func TestSortByContrastIsStable(t *testing.T) {
	r := registry.New([]string{"gray"}, []string{"img100", "negative", "img7", "other"})
	sorted := SortByContrast(r.Images())
	var names []string
	for _, im := range sorted {
		names = append(names, im.Name)
	}
	want := []string{"negative", "img7", "gray", "img100", "other"}
	if len(names) != len(want) {
		t.Fatalf("expected %d images, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, names)
		}
	}
}
