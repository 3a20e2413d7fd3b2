// Package gallery holds the known face embeddings used for matching. A
// Gallery is loaded once before the server starts and never changes after.
package gallery

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidArtifact wraps every failure to read or validate the gallery file.
var ErrInvalidArtifact = errors.New("gallery: invalid artifact")

// Entry is one known embedding. Several entries may share a label when a
// person was enrolled from more than one photo.
type Entry struct {
	Label     string
	Embedding []float32
}

// artifact is the on-disk shape: parallel label and embedding lists.
type artifact struct {
	Labels     []string    `json:"labels" yaml:"labels"`
	Embeddings [][]float32 `json:"embeddings" yaml:"embeddings"`
}

// Gallery is an immutable set of entries.
type Gallery struct {
	entries []Entry
	dim     int
}

// New builds a gallery from entries, validating labels and dimensions.
func New(entries []Entry) (*Gallery, error) {
	g := &Gallery{entries: make([]Entry, 0, len(entries))}
	for i, e := range entries {
		if strings.TrimSpace(e.Label) == "" {
			return nil, fmt.Errorf("%w: entry %d has an empty label", ErrInvalidArtifact, i)
		}
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("%w: entry %d (%s) has an empty embedding", ErrInvalidArtifact, i, e.Label)
		}
		if g.dim == 0 {
			g.dim = len(e.Embedding)
		} else if len(e.Embedding) != g.dim {
			return nil, fmt.Errorf("%w: entry %d (%s) has dimension %d, expected %d", ErrInvalidArtifact, i, e.Label, len(e.Embedding), g.dim)
		}
		vec := make([]float32, len(e.Embedding))
		copy(vec, e.Embedding)
		g.entries = append(g.entries, Entry{Label: e.Label, Embedding: vec})
	}
	return g, nil
}

// Load reads a gallery artifact. YAML is used for .yaml/.yml files, JSON
// for everything else.
func Load(path string) (*Gallery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrInvalidArtifact, path, err)
	}

	var a artifact
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &a)
	default:
		err = json.Unmarshal(data, &a)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrInvalidArtifact, path, err)
	}

	if len(a.Labels) != len(a.Embeddings) {
		return nil, fmt.Errorf("%w: %d labels but %d embeddings", ErrInvalidArtifact, len(a.Labels), len(a.Embeddings))
	}

	entries := make([]Entry, len(a.Labels))
	for i := range a.Labels {
		entries[i] = Entry{Label: a.Labels[i], Embedding: a.Embeddings[i]}
	}
	return New(entries)
}

// Len returns the number of entries.
func (g *Gallery) Len() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// Dim returns the embedding dimension, 0 for an empty gallery.
func (g *Gallery) Dim() int {
	if g == nil {
		return 0
	}
	return g.dim
}

// Entries returns the entries. The embedding slices are shared and must not
// be modified.
func (g *Gallery) Entries() []Entry {
	if g == nil {
		return nil
	}
	out := make([]Entry, len(g.entries))
	copy(out, g.entries)
	return out
}

// Labels returns each distinct label once, in first-seen order.
func (g *Gallery) Labels() []string {
	if g == nil {
		return nil
	}
	seen := make(map[string]bool, len(g.entries))
	var labels []string
	for _, e := range g.entries {
		if !seen[e.Label] {
			seen[e.Label] = true
			labels = append(labels, e.Label)
		}
	}
	return labels
}
