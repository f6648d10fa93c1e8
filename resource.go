package ceed

import "strings"

// qualifierSep separates the backend name from the device qualifier.
const qualifierSep = ":"

// ResourceSpec is the parsed form of a resource string
// "<backend-name>[:<qualifier>]". It is immutable once parsed.
type ResourceSpec struct {
	// Backend is the backend-name component matched against descriptors.
	Backend string

	// Qualifier is the text after the first ':' (may be empty).
	Qualifier string

	// HasQualifier reports whether the resource contained a ':' at all.
	HasQualifier bool
}

// ParseResource splits resource at the first ':' into a backend name and an
// optional qualifier. It fails with ErrInvalidArgument for an empty resource
// or an empty backend name.
func ParseResource(resource string) (ResourceSpec, error) {
	if resource == "" {
		return ResourceSpec{}, newError(CodeInvalidArgument, "ParseResource", "resource string is empty")
	}
	name, qualifier, found := strings.Cut(resource, qualifierSep)
	if name == "" {
		return ResourceSpec{}, newError(CodeInvalidArgument, "ParseResource",
			"resource %q has an empty backend name", resource)
	}
	return ResourceSpec{Backend: name, Qualifier: qualifier, HasQualifier: found}, nil
}

// String reassembles the resource string.
func (s ResourceSpec) String() string {
	if !s.HasQualifier {
		return s.Backend
	}
	return s.Backend + qualifierSep + s.Qualifier
}

// Params parses the qualifier as comma separated key=value pairs.
// A bare token is a key with an empty value. Later keys win.
func (s ResourceSpec) Params() map[string]string {
	params := make(map[string]string)
	for _, tok := range strings.Split(s.Qualifier, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		k, v, _ := strings.Cut(tok, "=")
		params[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return params
}

// Param returns one qualifier parameter.
func (s ResourceSpec) Param(key string) (string, bool) {
	v, ok := s.Params()[key]
	return v, ok
}
