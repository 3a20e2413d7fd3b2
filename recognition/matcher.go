// Package recognition resolves unknown face embeddings to gallery labels.
package recognition

import (
	"math"

	"github.com/camden-git/attendancesys/gallery"
)

// UnknownLabel is reported for faces with no gallery entry within tolerance.
const UnknownLabel = "Unknown"

// DefaultTolerance is the default maximum accepted distance.
const DefaultTolerance = 0.5

// Result is the outcome of matching one embedding.
type Result struct {
	Label    string
	Distance float64 // distance to the closest entry, +Inf for an empty gallery
	Matched  bool
}

// PresentSet is the set of matched labels for one image.
type PresentSet map[string]struct{}

// Has reports whether label is in the set.
func (p PresentSet) Has(label string) bool {
	_, ok := p[label]
	return ok
}

// Labels returns the members in no particular order.
func (p PresentSet) Labels() []string {
	out := make([]string, 0, len(p))
	for label := range p {
		out = append(out, label)
	}
	return out
}

// Matcher compares embeddings against a fixed gallery.
type Matcher struct {
	entries   []gallery.Entry
	tolerance float64
	distance  DistanceFunc
}

// NewMatcher creates a matcher. A non-positive tolerance uses
// DefaultTolerance; a nil distance uses EuclideanDistance.
func NewMatcher(g *gallery.Gallery, tolerance float64, distance DistanceFunc) *Matcher {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if distance == nil {
		distance = EuclideanDistance
	}
	return &Matcher{
		entries:   g.Entries(),
		tolerance: tolerance,
		distance:  distance,
	}
}

// Tolerance returns the accepted maximum distance.
func (m *Matcher) Tolerance() float64 {
	return m.tolerance
}

// Match finds the closest gallery entry and accepts it only when its
// distance is within tolerance. The global minimum is rejected outright
// if it is too far.
func (m *Matcher) Match(embedding []float32) Result {
	best := -1
	bestDistance := math.Inf(1)
	for i, e := range m.entries {
		d := m.distance(embedding, e.Embedding)
		if d < bestDistance {
			best = i
			bestDistance = d
		}
	}

	if best < 0 || bestDistance > m.tolerance {
		return Result{Label: UnknownLabel, Distance: bestDistance}
	}
	return Result{Label: m.entries[best].Label, Distance: bestDistance, Matched: true}
}

// MatchAll matches each embedding independently. Repeated matches of one
// label collapse into a single member of the returned set.
func (m *Matcher) MatchAll(embeddings [][]float32) (PresentSet, []Result) {
	present := make(PresentSet)
	results := make([]Result, 0, len(embeddings))
	for _, emb := range embeddings {
		r := m.Match(emb)
		results = append(results, r)
		if r.Matched {
			present[r.Label] = struct{}{}
		}
	}
	return present, results
}
