package registry

import (
	"errors"
	"testing"

	"github.com/verte-zerg/wheelpoke/internal/model"
)

func TestAnnounceRewardSequence(t *testing.T) {
	r := New([]string{"gray"}, []string{"grating100"})
	gray, _ := r.Lookup("gray")
	grating, _ := r.Lookup("grating100")

	if _, err := r.Announce("gray", 1, r.DefaultImage()); err != nil {
		t.Fatalf("announce gray: %v", err)
	}
	first, err := r.Announce("grating100", 5, gray)
	if err != nil {
		t.Fatalf("announce grating: %v", err)
	}
	if first.RewardSeq != 1 {
		t.Fatalf("expected reward seq 1 after control, got %d", first.RewardSeq)
	}
	second, err := r.Announce("grating100", 9, grating)
	if err != nil {
		t.Fatalf("announce grating again: %v", err)
	}
	if second.RewardSeq != 2 {
		t.Fatalf("expected reward seq 2 on reappearance, got %d", second.RewardSeq)
	}
	back, err := r.Announce("gray", 12, grating)
	if err != nil {
		t.Fatalf("announce gray again: %v", err)
	}
	if back.RewardSeq != 0 {
		t.Fatalf("expected control reward seq 0, got %d", back.RewardSeq)
	}
	third, _ := r.Announce("grating100", 15, gray)
	if third.RewardSeq != 1 {
		t.Fatalf("expected reward seq reset to 1, got %d", third.RewardSeq)
	}
}

func TestAnnounceFirstEverRewardWithoutHistory(t *testing.T) {
	r := New([]string{"gray"}, []string{"grating"})
	ap, err := r.Announce("grating", 1, r.DefaultImage())
	if err != nil {
		t.Fatalf("announce: %v", err)
	}
	if ap.RewardSeq != 1 {
		t.Fatalf("expected reward seq 1, got %d", ap.RewardSeq)
	}
}

func TestAnnounceUnknownImage(t *testing.T) {
	r := New([]string{"gray"}, nil)
	_, err := r.Announce("missing", 1, nil)
	if !errors.Is(err, ErrUnknownImage) {
		t.Fatalf("expected ErrUnknownImage, got %v", err)
	}
}

func TestDefaultImagePrefersControl(t *testing.T) {
	r := New([]string{"c1", "c2"}, []string{"r1"})
	if got := r.DefaultImage(); got.Name != "c1" {
		t.Fatalf("expected c1, got %s", got.Name)
	}
	r = New(nil, []string{"r1", "r2"})
	if got := r.DefaultImage(); got.Name != "r1" {
		t.Fatalf("expected r1 fallback, got %s", got.Name)
	}
	if New(nil, nil).DefaultImage() != nil {
		t.Fatalf("expected nil default for empty registry")
	}
}

func TestImageAt(t *testing.T) {
	r := New([]string{"gray"}, []string{"grating"})
	gray, _ := r.Lookup("gray")
	_, _ = r.Announce("gray", 0, nil)
	_, _ = r.Announce("grating", 10, gray)

	im, ok := r.ImageAt(10)
	if !ok || im.Name != "gray" {
		t.Fatalf("expected gray strictly before 10, got %v", im)
	}
	im, ok = r.ImageAt(10.5)
	if !ok || im.Name != "grating" {
		t.Fatalf("expected grating after 10, got %v", im)
	}
	if _, ok := r.ImageAt(0); ok {
		t.Fatalf("expected no image before first appearance")
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := New([]string{"gray"}, nil)
	b := New([]string{"gray"}, nil)
	_, _ = a.Announce("gray", 1, nil)
	if len(b.Appearances()) != 0 {
		t.Fatalf("expected fresh registry to have no appearances")
	}
	im, _ := b.Lookup("gray")
	if im.NumAppearances() != 0 {
		t.Fatalf("expected image in fresh registry to have no appearances")
	}
}

func TestImageEqual(t *testing.T) {
	a := &Image{Name: "x", Type: model.Reward}
	b := &Image{Name: "x", Type: model.Reward}
	c := &Image{Name: "x", Type: model.Control}
	if !a.Equal(b) {
		t.Fatalf("expected equal images")
	}
	if a.Equal(c) {
		t.Fatalf("expected type to matter for equality")
	}
}

func TestLatestTime(t *testing.T) {
	r := New([]string{"gray"}, nil)
	gray, _ := r.Lookup("gray")
	if _, ok := gray.LatestTime(); ok {
		t.Fatalf("expected no latest time before any appearance")
	}
	if _, err := r.Announce("gray", 3.5, nil); err != nil {
		t.Fatalf("announce: %v", err)
	}
	got, ok := gray.LatestTime()
	if !ok || got != 3.5 {
		t.Fatalf("expected latest time 3.5, got %v (%v)", got, ok)
	}
}
