package stats

import (
	"github.com/verte-zerg/wheelpoke/internal/model"
	"github.com/verte-zerg/wheelpoke/internal/registry"
)

// ImageLatencies collects the latencies of one reward image.
//
// True latencies come from rewarded pokes. All latencies also count reward
// appearances that were never poked, using the preset timeout as a stand-in.
// The First variants only include appearances with reward sequence 1.
type ImageLatencies struct {
	Name      string
	Contrast  int
	True      []float64
	All       []float64
	TrueFirst []float64
	AllFirst  []float64
}

// LatencyReport gathers latencies of every reward appearance of a file.
type LatencyReport struct {
	Preset  model.Preset
	Records []model.LatencyRecord
	// Images holds one entry per reward image that appeared, in order of first appearance.
	Images []*ImageLatencies
}

// TrueLatencies returns every measured latency in appearance order.
func (r LatencyReport) TrueLatencies() []float64 {
	var out []float64
	for _, rec := range r.Records {
		if !rec.TimedOut {
			out = append(out, rec.Latency)
		}
	}
	return out
}

// Image returns the latencies of the named image.
func (r LatencyReport) Image(name string) (*ImageLatencies, bool) {
	for _, il := range r.Images {
		if il.Name == name {
			return il, true
		}
	}
	return nil, false
}

// BuildLatencyReport walks the appearance log of reg. Poke events that hold no
// single rewarded poke add nothing; an appearance that was poked without
// reward therefore counts toward neither hits nor appearances.
func BuildLatencyReport(reg *registry.Registry, preset model.Preset) LatencyReport {
	rep := LatencyReport{Preset: preset}
	byName := map[string]*ImageLatencies{}
	timeout, hasTimeout := preset.Timeout()

	for _, ap := range reg.Appearances() {
		if ap.Image.Type != model.Reward {
			continue
		}
		il, ok := byName[ap.Image.Name]
		if !ok {
			il = &ImageLatencies{Name: ap.Image.Name, Contrast: GetContrast(ap.Image.Name)}
			byName[il.Name] = il
			rep.Images = append(rep.Images, il)
		}
		first := ap.RewardSeq == 1
		pokes := ap.PokeEvents()
		if len(pokes) == 0 {
			if !hasTimeout {
				continue
			}
			rep.Records = append(rep.Records, model.LatencyRecord{
				Time:      ap.Time,
				Image:     il.Name,
				Contrast:  il.Contrast,
				Latency:   timeout,
				RewardSeq: ap.RewardSeq,
				TimedOut:  true,
			})
			il.All = append(il.All, timeout)
			if first {
				il.AllFirst = append(il.AllFirst, timeout)
			}
			continue
		}
		for _, ref := range pokes {
			lp, ok := ref.(latencyProvider)
			if !ok {
				continue
			}
			lat, ok := lp.Latency()
			if !ok {
				continue
			}
			rep.Records = append(rep.Records, model.LatencyRecord{
				Time:      ap.Time,
				Image:     il.Name,
				Contrast:  il.Contrast,
				Latency:   lat,
				RewardSeq: ap.RewardSeq,
			})
			il.True = append(il.True, lat)
			il.All = append(il.All, lat)
			if first {
				il.TrueFirst = append(il.TrueFirst, lat)
				il.AllFirst = append(il.AllFirst, lat)
			}
		}
	}
	return rep
}

type latencyProvider interface {
	Latency() (float64, bool)
}
