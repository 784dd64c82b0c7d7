// Package objectid parses and builds source object identifiers of the form
// "<source-uuid>::<path>".
package objectid

import (
	"errors"
	"fmt"
	"strings"
)

// Separator divides the source uuid from the source-local path.
const Separator = "::"

// ErrInvalidObjectID is returned for ids that do not carry a source uuid.
var ErrInvalidObjectID = errors.New("invalid object id")

// Split returns the source uuid and the source-local path of id.
// The path of a source's root container is empty.
func Split(id string) (uuid, path string, err error) {
	i := strings.Index(id, Separator)
	if i <= 0 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidObjectID, id)
	}
	return id[:i], id[i+len(Separator):], nil
}

// UUID returns only the source uuid part of id.
func UUID(id string) (string, error) {
	uuid, _, err := Split(id)
	return uuid, err
}

func Join(uuid, path string) string {
	return uuid + Separator + path
}

// Root returns the object id of a source's top-level container.
func Root(uuid string) string {
	return uuid + Separator
}
