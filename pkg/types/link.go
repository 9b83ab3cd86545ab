package types

import (
	"fmt"
	"strings"
)

// LinkDelimiter separates the repository-relative source from the destination
// in a link declaration. Only the first occurrence splits, so destinations may
// contain it.
const LinkDelimiter = ":"

// LinkSpec is one declared (source, destination) pairing for a symbolic link.
type LinkSpec struct {
	// Source is relative to the repository root
	Source string `json:"source" yaml:"source" toml:"source"`
	// Destination may start with a home directory placeholder (~ or $HOME)
	Destination string `json:"destination" yaml:"destination" toml:"destination"`
}

// ParseLinkSpec splits a "<source>:<destination>" entry on its first delimiter.
func ParseLinkSpec(entry string) (LinkSpec, error) {
	source, destination, found := strings.Cut(strings.TrimSpace(entry), LinkDelimiter)
	if !found {
		return LinkSpec{}, fmt.Errorf("link %q has no %q delimiter", entry, LinkDelimiter)
	}

	source = strings.TrimSpace(source)
	destination = strings.TrimSpace(destination)
	if source == "" {
		return LinkSpec{}, fmt.Errorf("link %q has an empty source", entry)
	}
	if destination == "" {
		return LinkSpec{}, fmt.Errorf("link %q has an empty destination", entry)
	}

	return LinkSpec{Source: source, Destination: destination}, nil
}

// String renders the link back into its declaration form
func (l LinkSpec) String() string {
	return l.Source + LinkDelimiter + l.Destination
}
