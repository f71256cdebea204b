package store

import (
	"strings"

	"github.com/osprof/osprof/pkg/profile"
)

// Selection holds optional profile match criteria. Matching is the
// logical AND of the criteria that are set; empty fields are ignored.
// ID matches as a prefix, everything else matches exactly.
type Selection struct {
	ID               string
	Name             string
	ShortName        string
	Version          string
	VersionID        string
	UnamePattern     string
	KernelPattern    string
	InitramfsPattern string
	Options          string
}

// IsEmpty reports whether no criteria are set.
func (sel Selection) IsEmpty() bool {
	return sel == Selection{}
}

// Matches tests a profile against the selection criteria.
func (sel Selection) Matches(p *profile.Profile) bool {
	if sel.ID != "" && !strings.HasPrefix(p.ID(), sel.ID) {
		return false
	}
	if sel.Name != "" && p.Name() != sel.Name {
		return false
	}
	if sel.ShortName != "" && p.ShortName() != sel.ShortName {
		return false
	}
	if sel.Version != "" && p.Version() != sel.Version {
		return false
	}
	if sel.VersionID != "" && p.VersionID() != sel.VersionID {
		return false
	}
	if sel.UnamePattern != "" && p.UnamePattern() != sel.UnamePattern {
		return false
	}
	if sel.KernelPattern != "" && p.KernelPattern() != sel.KernelPattern {
		return false
	}
	if sel.InitramfsPattern != "" && p.InitramfsPattern() != sel.InitramfsPattern {
		return false
	}
	if sel.Options != "" && p.Options() != sel.Options {
		return false
	}
	return true
}
