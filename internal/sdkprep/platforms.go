package sdkprep

import (
	"fmt"
	"strings"
)

// PlatformGroup is a named alias for a set of architectures.
type PlatformGroup struct {
	Name  string
	Archs []string
}

var platformGroups = []PlatformGroup{
	{Name: "all", Archs: append(append([]string{}, archsDevice...), archsSimu...)},
	{Name: "devices", Archs: archsDevice},
	{Name: "simulators", Archs: archsSimu},
}

// DefaultPlatforms is used when no platform is given on the command line.
var DefaultPlatforms = []string{"x86_64", "devices"}

// InvalidPlatformError reports a token that is neither an architecture nor a
// platform group.
type InvalidPlatformError struct {
	Token string
	Valid []string
}

func (e *InvalidPlatformError) Error() string {
	quoted := make([]string, len(e.Valid))
	for i, v := range e.Valid {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return fmt.Sprintf("invalid platform: %q (choose from %s)", e.Token, strings.Join(quoted, ", "))
}

func (e *InvalidPlatformError) Unwrap() error { return ErrInvalidPlatform }

// ValidPlatforms lists group names followed by the registry architectures.
func ValidPlatforms(r *Registry) []string {
	valid := make([]string, 0, len(platformGroups)+len(r.targets))
	for _, g := range platformGroups {
		valid = append(valid, g.Name)
	}
	return append(valid, r.Archs()...)
}

func lookupGroup(name string) (PlatformGroup, bool) {
	for _, g := range platformGroups {
		if g.Name == name {
			return g, true
		}
	}
	return PlatformGroup{}, false
}

// ResolvePlatforms expands tokens into a deduplicated list of architectures.
//
// Every token is validated before anything is expanded, so one bad token
// rejects the whole request. The result keeps the order in which each
// architecture was first produced.
func ResolvePlatforms(r *Registry, tokens []string) ([]string, error) {
	if len(tokens) == 0 {
		tokens = DefaultPlatforms
	}
	for _, tok := range tokens {
		if _, ok := lookupGroup(tok); ok || r.Has(tok) {
			continue
		}
		return nil, &InvalidPlatformError{Token: tok, Valid: ValidPlatforms(r)}
	}

	var archs []string
	seen := make(map[string]bool)
	add := func(a string) {
		if !seen[a] {
			seen[a] = true
			archs = append(archs, a)
		}
	}
	for _, tok := range tokens {
		if g, ok := lookupGroup(tok); ok {
			for _, a := range g.Archs {
				add(a)
			}
			continue
		}
		add(tok)
	}
	return archs, nil
}
