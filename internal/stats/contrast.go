package stats

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/verte-zerg/wheelpoke/internal/registry"
)

// defaultContrast is assumed for images whose names carry no level.
const defaultContrast = 100

// contrastLevels maps the digits written in image file names to contrast percentages.
var contrastLevels = map[int]int{1: 1, 2: 2, 4: 4, 7: 8, 14: 16, 27: 32, 52: 64, 100: 100}

// GetContrast derives the contrast level of an image from its name. Names
// containing "negative" are zero contrast. Otherwise every digit in the name is
// concatenated and looked up in the level table; unknown values pass through.
func GetContrast(name string) int {
	if strings.Contains(strings.ToLower(name), "negative") {
		return 0
	}
	var digits strings.Builder
	for _, r := range name {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return defaultContrast
	}
	v, err := strconv.Atoi(digits.String())
	if err != nil {
		return defaultContrast
	}
	if level, ok := contrastLevels[v]; ok {
		return level
	}
	return v
}

// SortByContrast orders images by contrast level, keeping input order for ties.
func SortByContrast(images []*registry.Image) []*registry.Image {
	out := append([]*registry.Image(nil), images...)
	sort.SliceStable(out, func(i, j int) bool {
		return GetContrast(out[i].Name) < GetContrast(out[j].Name)
	})
	return out
}

// NaturalLess compares names treating digit runs as numbers, so "img7" sorts before "img27".
func NaturalLess(a, b string) bool {
	ca, cb := naturalChunks(a), naturalChunks(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := ca[i], cb[i]
		if x.numeric && y.numeric {
			if x.n != y.n {
				return x.n < y.n
			}
			continue
		}
		if x.numeric != y.numeric {
			// digits sort before letters
			return x.numeric
		}
		if x.s != y.s {
			return x.s < y.s
		}
	}
	return len(ca) < len(cb)
}

type chunk struct {
	s       string
	n       int
	numeric bool
}

func naturalChunks(s string) []chunk {
	var out []chunk
	runes := []rune(s)
	for i := 0; i < len(runes); {
		j := i
		digit := unicode.IsDigit(runes[i])
		for j < len(runes) && unicode.IsDigit(runes[j]) == digit {
			j++
		}
		part := string(runes[i:j])
		c := chunk{s: part}
		if digit {
			if n, err := strconv.Atoi(part); err == nil {
				c.n = n
				c.numeric = true
			}
		}
		out = append(out, c)
		i = j
	}
	return out
}
