// Package shape classifies hand-drawn shapes from the geometry of their contours.
package shape

import (
	"errors"
	"fmt"
	"strings"
)

// Label identifies a recognized shape.
type Label string

const (
	// None means no recognized shape.
	None Label = ""
	// Circle is a closed, round stroke.
	Circle Label = "CIRCLE"
	// Arrow is a four-vertex chevron with one reflex corner.
	Arrow Label = "ARROW"
	// Square is any convex quadrilateral.
	Square Label = "SQUARE"
	// Mountain is a five-vertex outline with one deep notch.
	Mountain Label = "MOUNTAIN"
	// Peak is a five-vertex outline with two deep notches.
	Peak Label = "PEAK"
)

// ErrUnknownLabel is returned when a label name is not part of the vocabulary.
var ErrUnknownLabel = errors.New("unknown shape label")

// Labels returns the full shape vocabulary.
func Labels() []Label {
	return []Label{Circle, Arrow, Square, Mountain, Peak}
}

// ParseLabel converts a case-insensitive name into a Label.
func ParseLabel(s string) (Label, error) {
	name := Label(strings.ToUpper(strings.TrimSpace(s)))
	for _, l := range Labels() {
		if l == name {
			return l, nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownLabel, s)
}

// ParseSequence converts an ordered list of names into labels.
func ParseSequence(names []string) ([]Label, error) {
	seq := make([]Label, 0, len(names))
	for _, n := range names {
		l, err := ParseLabel(n)
		if err != nil {
			return nil, err
		}
		seq = append(seq, l)
	}
	return seq, nil
}
