package gallery

import (
	"errors"
	"fmt"
	"strings"
)

// LabelSeparator splits the name from the student ID in a gallery label.
const LabelSeparator = "_"

// ErrMalformedLabel is returned when a label is not in "Name_ID" form.
var ErrMalformedLabel = errors.New("gallery: label is not in 'Name_ID' format")

// Identity is the structured form of a "Name_ID" gallery label.
type Identity struct {
	Name      string
	StudentID string
}

// Label renders the identity back to its composite form.
func (id Identity) Label() string {
	return id.Name + LabelSeparator + id.StudentID
}

// ParseLabel splits label on its last separator. Names may themselves
// contain underscores ("Mary_Ann_042" is Mary_Ann / 042).
func ParseLabel(label string) (Identity, error) {
	idx := strings.LastIndex(label, LabelSeparator)
	if idx < 0 {
		return Identity{}, fmt.Errorf("%w: %q", ErrMalformedLabel, label)
	}
	name := strings.TrimSpace(label[:idx])
	studentID := strings.TrimSpace(label[idx+len(LabelSeparator):])
	if name == "" || studentID == "" {
		return Identity{}, fmt.Errorf("%w: %q", ErrMalformedLabel, label)
	}
	return Identity{Name: name, StudentID: studentID}, nil
}
