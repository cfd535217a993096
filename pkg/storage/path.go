package storage

import "strings"

// Separator joins path segments into a backend key.
const Separator = "/"

// Path is a sequence of non-empty segments addressing a blob.
type Path []string

// NewPath constructs Path from the given segments.
func NewPath(segments ...string) Path {
	return segments
}

// ParsePath splits slash-separated string into Path.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return strings.Split(strings.Trim(s, Separator), Separator)
}

// Join returns new path with the given segments appended.
func (p Path) Join(segments ...string) Path {
	res := make(Path, 0, len(p)+len(segments))
	return append(append(res, p...), segments...)
}

// String returns slash-separated form of the path.
func (p Path) String() string {
	return strings.Join(p, Separator)
}

// within checks whether key is equal to or nested in prefix.
func within(prefix, key string) bool {
	return prefix == "" || key == prefix || strings.HasPrefix(key, prefix+Separator)
}

// overlaps checks whether two prefixes address intersecting subtrees.
func overlaps(a, b string) bool {
	return within(a, b) || within(b, a)
}
