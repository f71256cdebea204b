// Package osrelease reads os-release(5) data and turns it into OS
// profiles.
package osrelease

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	vfs "github.com/twpayne/go-vfs/v4"

	"github.com/osprof/osprof/pkg/profile"
)

// Paths tried, in order, when reading the host os-release data.
var hostPaths = []string{"/etc/os-release", "/usr/lib/os-release"}

// Release is parsed os-release(5) data. Fields carries every key the
// file defined, including the ones broken out into struct fields.
type Release struct {
	Name      string
	ID        string
	IDLike    string
	Version   string
	VersionID string
	Fields    map[string]string
}

// Parse reads os-release data from a string.
func Parse(data string) (*Release, error) {
	fields, err := godotenv.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parsing os-release data: %w", err)
	}
	return &Release{
		Name:      fields["NAME"],
		ID:        fields["ID"],
		IDLike:    fields["ID_LIKE"],
		Version:   fields["VERSION"],
		VersionID: fields["VERSION_ID"],
		Fields:    fields,
	}, nil
}

// ParseFile reads os-release data from a file on the given filesystem.
func ParseFile(fsys vfs.FS, path string) (*Release, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rel, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rel, nil
}

// Host reads the running host's os-release data, trying /etc and the
// /usr/lib fallback. OSPROF_OS_RELEASE overrides the path, which the
// tests use to fake the host.
func Host(fsys vfs.FS) (*Release, error) {
	paths := hostPaths
	if override := os.Getenv("OSPROF_OS_RELEASE"); override != "" {
		paths = []string{override}
	}
	var lastErr error
	for _, path := range paths {
		rel, err := ParseFile(fsys, path)
		if err == nil {
			return rel, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// NewProfile builds a profile for the OS a release describes, with the
// default template values and a uname pattern derived from the OS
// family.
func NewProfile(rel *Release) (*profile.Profile, error) {
	p, err := profile.New(rel.Name, rel.ID, rel.Version, rel.VersionID)
	if err != nil {
		return nil, fmt.Errorf("building profile from os-release data: %w", err)
	}
	if err := p.SetUnamePattern(UnamePattern(rel)); err != nil {
		return nil, err
	}
	return p, nil
}

// UnamePattern derives a kernel release match pattern for a release.
// Distributions that tag kernel releases with a well known marker get
// that marker; everything else falls back to the literal version id.
func UnamePattern(rel *Release) string {
	versionID := rel.VersionID
	major := versionID
	if dot := strings.IndexByte(major, '.'); dot > 0 {
		major = major[:dot]
	}

	family := rel.ID
	if family == "" {
		family = rel.IDLike
	}

	switch family {
	case "fedora":
		return fmt.Sprintf("fc%s", versionID)
	case "rhel", "centos", "almalinux", "rocky":
		return fmt.Sprintf("el%s", major)
	case "debian":
		return fmt.Sprintf("debian%s", major)
	default:
		return regexp.QuoteMeta(versionID)
	}
}
