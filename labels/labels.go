// Package labels holds the ordered set of class names a classifier was trained on.
// Position in the set is the index of the class in the model output.
package labels

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Label is the name of a crop/condition pair, e.g. "Cocoa Black Pod".
type Label string

func (l Label) String() string { return string(l) }

// Set is an ordered, immutable list of labels.
type Set struct {
	labels []Label
}

// Default is the label set of the cocoa/maize model.
var Default = MustNew(
	"Cocoa Black Pod",
	"Cocoa Healthy",
	"Cocoa Pod Borer",
	"Maize Blight",
	"Maize Common Rust",
	"Maize Gray Leaf Spot",
	"Maize Healthy",
)

// New builds a set from names in model output order.
func New(names ...string) (Set, error) {
	if len(names) == 0 {
		return Set{}, errors.New("label set is empty")
	}

	seen := make(map[string]int, len(names))
	out := make([]Label, len(names))
	for i, name := range names {
		if name == "" {
			return Set{}, fmt.Errorf("label %d is blank", i)
		}
		if j, present := seen[name]; present {
			return Set{}, fmt.Errorf("duplicate label %q at %d and %d", name, j, i)
		}
		seen[name] = i
		out[i] = Label(name)
	}

	return Set{labels: out}, nil
}

// MustNew is New that panics on error.
func MustNew(names ...string) Set {
	s, err := New(names...)
	if err != nil {
		panic(err)
	}
	return s
}

// Read parses a label file with one label per line. Blank lines are skipped.
func Read(r io.Reader) (Set, error) {
	var names []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		names = append(names, line)
	}

	if err := scanner.Err(); err != nil {
		return Set{}, err
	}

	return New(names...)
}

// Len returns the number of labels.
func (s Set) Len() int { return len(s.labels) }

// At returns the label at index i.
func (s Set) At(i int) (Label, bool) {
	if i < 0 || i >= len(s.labels) {
		return "", false
	}
	return s.labels[i], true
}

// Index returns the position of l, or -1.
func (s Set) Index(l Label) int {
	for i, v := range s.labels {
		if v == l {
			return i
		}
	}
	return -1
}

// Labels returns a copy of the labels in order.
func (s Set) Labels() []Label {
	out := make([]Label, len(s.labels))
	copy(out, s.labels)
	return out
}

// Strings returns the label names in order.
func (s Set) Strings() []string {
	out := make([]string, len(s.labels))
	for i, l := range s.labels {
		out[i] = string(l)
	}
	return out
}
