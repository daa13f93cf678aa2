// Package registry tracks the declared stimulus images of one log file and
// the order in which they were shown.
package registry

import (
	"errors"
	"fmt"

	"github.com/verte-zerg/wheelpoke/internal/model"
)

// ErrUnknownImage is returned when the log body names an image that the header did not declare.
var ErrUnknownImage = errors.New("unrecognized image")

// PokeRef is implemented by poke events attached to an appearance.
type PokeRef interface {
	StartTime() float64
}

// Image is a declared stimulus.
type Image struct {
	Name string
	Type model.ImageType

	appearances []*Appearance
}

// Equal reports whether two images share name and type.
func (im *Image) Equal(other *Image) bool {
	if im == nil || other == nil {
		return im == other
	}
	return im.Name == other.Name && im.Type == other.Type
}

// Appearances returns the appearances of the image in time order.
func (im *Image) Appearances() []*Appearance {
	return append([]*Appearance(nil), im.appearances...)
}

// NumAppearances returns how many times the image was shown.
func (im *Image) NumAppearances() int {
	return len(im.appearances)
}

// AppearanceTimes returns the onset times of every appearance.
func (im *Image) AppearanceTimes() []float64 {
	out := make([]float64, len(im.appearances))
	for i, ap := range im.appearances {
		out[i] = ap.Time
	}
	return out
}

// Latest returns the most recent appearance, or nil if the image was never shown.
func (im *Image) Latest() *Appearance {
	if len(im.appearances) == 0 {
		return nil
	}
	return im.appearances[len(im.appearances)-1]
}

// LatestTime returns the time of the most recent appearance.
func (im *Image) LatestTime() (float64, bool) {
	if ap := im.Latest(); ap != nil {
		return ap.Time, true
	}
	return 0, false
}

// Appearance is one showing of an image.
type Appearance struct {
	Image     *Image
	Time      float64
	RewardSeq int

	pokes []PokeRef
}

// AddPokeEvent attaches a poke event that ended while this appearance was current.
func (ap *Appearance) AddPokeEvent(p PokeRef) {
	ap.pokes = append(ap.pokes, p)
}

// PokeEvents returns the attached poke events in attachment order.
func (ap *Appearance) PokeEvents() []PokeRef {
	return append([]PokeRef(nil), ap.pokes...)
}

// Registry owns the images and appearance log of a single file.
type Registry struct {
	order  []*Image
	byName map[string]*Image
	log    []*Appearance
}

// New builds a registry from the header image sets. Names declared twice keep
// their first declaration.
func New(control, reward []string) *Registry {
	r := &Registry{byName: make(map[string]*Image, len(control)+len(reward))}
	r.declare(control, model.Control)
	r.declare(reward, model.Reward)
	return r
}

func (r *Registry) declare(names []string, typ model.ImageType) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := r.byName[name]; ok {
			continue
		}
		im := &Image{Name: name, Type: typ}
		r.byName[name] = im
		r.order = append(r.order, im)
	}
}

// Lookup finds a declared image by name.
func (r *Registry) Lookup(name string) (*Image, bool) {
	im, ok := r.byName[name]
	return im, ok
}

// Images returns the declared images in declaration order, controls first.
func (r *Registry) Images() []*Image {
	return append([]*Image(nil), r.order...)
}

// Len returns the number of declared images.
func (r *Registry) Len() int {
	return len(r.order)
}

// DefaultImage is the image assumed current before the first announcement.
// The logger occasionally records wheel or door activity before it records
// the first image, so such activity is charged to the first control image.
func (r *Registry) DefaultImage() *Image {
	for _, im := range r.order {
		if im.Type == model.Control {
			return im
		}
	}
	if len(r.order) == 0 {
		return nil
	}
	return r.order[0]
}

// Announce records a new appearance of name at time t. prev is the image that
// was current before the announcement and drives reward sequence numbering.
func (r *Registry) Announce(name string, t float64, prev *Image) (*Appearance, error) {
	im, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownImage, name)
	}
	ap := &Appearance{
		Image:     im,
		Time:      t,
		RewardSeq: rewardSeq(im, prev),
	}
	im.appearances = append(im.appearances, ap)
	r.log = append(r.log, ap)
	return ap, nil
}

func rewardSeq(im, prev *Image) int {
	if im.Type == model.Control {
		return 0
	}
	if prev == nil {
		return 1
	}
	last := prev.Latest()
	if last == nil {
		return 1
	}
	return last.RewardSeq + 1
}

// Appearances returns every appearance in announcement order.
func (r *Registry) Appearances() []*Appearance {
	return append([]*Appearance(nil), r.log...)
}

// ImageAt returns the image whose appearance most recently precedes t.
func (r *Registry) ImageAt(t float64) (*Image, bool) {
	var found *Appearance
	for _, ap := range r.log {
		if ap.Time < t && (found == nil || ap.Time >= found.Time) {
			found = ap
		}
	}
	if found == nil {
		return nil, false
	}
	return found.Image, true
}
