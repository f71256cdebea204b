package profile

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/osprof/osprof/internal/constants"
)

// Profile is one operating system profile: the identity of a
// distribution/version plus the boot command line and image path
// templates needed to boot it.
//
// Values are kept in a map keyed by the on-disk BOOM_OS_* key names so
// marshalling to and from the file format stays trivial; typed access
// goes through the accessor methods.
type Profile struct {
	data map[string]string
	// comment blocks read from disk, keyed by the profile key that
	// followed them. Rewritten verbatim on save.
	comments map[string]string
	dirty    bool
}

var placeholderExp = regexp.MustCompile(`%\{([^}]*)\}`)

// New returns a profile for the given OS identity with the default
// template values. All four arguments are mandatory as together they
// form the profile identity the os_id is generated from. The uname
// pattern starts empty and must be set before the profile validates.
func New(name, shortName, version, versionID string) (*Profile, error) {
	for _, v := range []string{name, shortName, version, versionID} {
		if v == "" {
			return nil, fmt.Errorf("invalid profile arguments: name, short_name, version and version_id are mandatory")
		}
	}

	p := &Profile{
		data: map[string]string{
			KeyName:      name,
			KeyShortName: shortName,
			KeyVersion:   version,
			KeyVersionID: versionID,
		},
		dirty: true,
	}
	for key, value := range Defaults {
		p.data[key] = value
	}
	p.generateID()
	return p, nil
}

// FromData builds a profile from a key/value map. Missing template
// keys get their default values, the os_id is generated if absent, and
// the result is validated as a whole.
func FromData(data map[string]string) (*Profile, error) {
	p := &Profile{data: make(map[string]string, len(data)), dirty: true}
	for key, value := range data {
		if keyIndex(key) < 0 {
			return nil, fmt.Errorf("invalid profile key: %s", key)
		}
		p.data[key] = value
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return p, nil
}

// finish applies defaults, generates the identifier and validates.
// Shared by FromData and the file parser.
func (p *Profile) finish() error {
	for key, value := range Defaults {
		if _, ok := p.data[key]; !ok {
			p.data[key] = value
		}
	}
	if _, ok := p.data[KeyID]; !ok {
		p.generateID()
	}
	return p.Validate()
}

// generateID derives the profile identifier: the hex sha1 digest over
// the short name, version and version id. Content-hash ids keep the
// identifier stable across hosts for the same OS identity.
func (p *Profile) generateID() {
	hashData := p.data[KeyShortName] + p.data[KeyVersion] + p.data[KeyVersionID]
	digest := sha1.Sum([]byte(hashData))
	p.data[KeyID] = hex.EncodeToString(digest[:])
}

// Validate checks the whole record: required keys present and
// non-empty, at least one root options key, placeholder tokens inside
// template values restricted to the known vocabulary, no
// self-referential placeholders, and a compilable uname pattern.
// All failures are reported together.
func (p *Profile) Validate() error {
	var errs *multierror.Error

	for _, key := range RequiredKeys {
		if p.data[key] == "" {
			errs = multierror.Append(errs, fmt.Errorf("invalid profile data (missing %s)", key))
		}
	}

	haveRootOpts := false
	for _, key := range RootOptsKeys {
		if p.data[key] != "" {
			haveRootOpts = true
		}
	}
	if !haveRootOpts {
		errs = multierror.Append(errs, fmt.Errorf("invalid profile data (missing ROOT_OPTS)"))
	}

	for _, key := range templateKeys {
		value, ok := p.data[key]
		if !ok {
			continue
		}
		for _, name := range placeholderNames(value) {
			if !knownFormatKey(name) {
				errs = multierror.Append(errs, fmt.Errorf("%s: unknown placeholder %s", key, FormatKey(name)))
			}
		}
		for _, bad := range badFormatKeys[key] {
			if strings.Contains(value, FormatKey(bad)) {
				errs = multierror.Append(errs, fmt.Errorf("%s cannot contain %s", key, FormatKey(bad)))
			}
		}
	}

	if pattern := p.data[KeyUnamePattern]; pattern != "" {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", KeyUnamePattern, err))
		}
	}

	return errs.ErrorOrNil()
}

func placeholderNames(value string) []string {
	var names []string
	for _, m := range placeholderExp.FindAllStringSubmatch(value, -1) {
		names = append(names, m[1])
	}
	return names
}

func knownFormatKey(name string) bool {
	for _, known := range FormatKeys {
		if name == known {
			return true
		}
	}
	return false
}

func keyIndex(key string) int {
	for i, known := range Keys {
		if key == known {
			return i
		}
	}
	return -1
}

// Read-only identity accessors. These values feed the os_id hash so
// they cannot be changed after construction.

func (p *Profile) ID() string        { return p.data[KeyID] }
func (p *Profile) Name() string      { return p.data[KeyName] }
func (p *Profile) ShortName() string { return p.data[KeyShortName] }
func (p *Profile) Version() string   { return p.data[KeyVersion] }
func (p *Profile) VersionID() string { return p.data[KeyVersionID] }

func (p *Profile) UnamePattern() string     { return p.data[KeyUnamePattern] }
func (p *Profile) KernelPattern() string    { return p.data[KeyKernelPattern] }
func (p *Profile) InitramfsPattern() string { return p.data[KeyInitramfsPattern] }
func (p *Profile) RootOptsLVM2() string     { return p.data[KeyRootOptsLVM2] }
func (p *Profile) RootOptsBTRFS() string    { return p.data[KeyRootOptsBTRFS] }
func (p *Profile) Options() string          { return p.data[KeyOptions] }

// SetUnamePattern stores a new kernel release match pattern.
func (p *Profile) SetUnamePattern(pattern string) error {
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("%s: %w", KeyUnamePattern, err)
	}
	return p.set(KeyUnamePattern, pattern)
}

func (p *Profile) SetKernelPattern(pattern string) error {
	return p.set(KeyKernelPattern, pattern)
}

func (p *Profile) SetInitramfsPattern(pattern string) error {
	return p.set(KeyInitramfsPattern, pattern)
}

func (p *Profile) SetRootOptsLVM2(opts string) error {
	return p.set(KeyRootOptsLVM2, opts)
}

func (p *Profile) SetRootOptsBTRFS(opts string) error {
	return p.set(KeyRootOptsBTRFS, opts)
}

func (p *Profile) SetOptions(options string) error {
	return p.set(KeyOptions, options)
}

func (p *Profile) set(key, value string) error {
	for _, bad := range badFormatKeys[key] {
		if strings.Contains(value, FormatKey(bad)) {
			return fmt.Errorf("%s cannot contain %s", key, FormatKey(bad))
		}
	}
	p.data[key] = value
	p.dirty = true
	return nil
}

// Dirty reports whether the profile has unwritten changes. Newly
// created profiles are dirty, profiles loaded from disk are not.
func (p *Profile) Dirty() bool { return p.dirty }

// MarkWritten flags the profile as in sync with its on-disk file.
func (p *Profile) MarkWritten() { p.dirty = false }

// MatchUnameVersion reports whether the given kernel release string
// matches this profile's uname pattern.
func (p *Profile) MatchUnameVersion(version string) bool {
	pattern := p.UnamePattern()
	if pattern == "" || version == "" {
		return false
	}
	matched, err := regexp.MatchString(pattern, version)
	if err != nil {
		return false
	}
	return matched
}

// Get returns the raw value for an on-disk key.
func (p *Profile) Get(key string) (string, bool) {
	value, ok := p.data[key]
	return value, ok
}

// Len returns the number of keys the profile defines.
func (p *Profile) Len() int { return len(p.data) }

// PresentKeys returns the defined keys in canonical on-disk order.
func (p *Profile) PresentKeys() []string {
	keys := make([]string, 0, len(p.data))
	for key := range p.data {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keyIndex(keys[i]) < keyIndex(keys[j])
	})
	return keys
}

// Data returns a copy of the raw key/value pairs.
func (p *Profile) Data() map[string]string {
	data := make(map[string]string, len(p.data))
	for key, value := range p.data {
		data[key] = value
	}
	return data
}

// FileName returns the canonical file name for this profile inside a
// profiles directory.
func (p *Profile) FileName() string {
	return fmt.Sprintf("%s-%s%s%s", p.ID(), p.ShortName(), p.VersionID(), constants.ProfileSuffix)
}

// String formats the profile as a human readable string, with like
// attributes grouped onto lines.
func (p *Profile) String() string {
	lineBreaks := map[string]bool{
		KeyID: true, KeyShortName: true, KeyVersionID: true,
		KeyUnamePattern: true, KeyInitramfsPattern: true,
		KeyRootOptsLVM2: true, KeyRootOptsBTRFS: true, KeyOptions: true,
	}

	keys := p.PresentKeys()
	var b strings.Builder
	for i, key := range keys {
		fmt.Fprintf(&b, "%s: \"%s\"", KeyNames[key], p.data[key])
		if i == len(keys)-1 {
			break
		}
		if lineBreaks[key] {
			b.WriteString(",\n")
		} else {
			b.WriteString(", ")
		}
	}
	return b.String()
}

// Bytes renders the profile in its on-disk form: one KEY="value" line
// per defined key in canonical order, preceded by any comment block
// that was attached to the key when the profile was read.
func (p *Profile) Bytes() []byte {
	var b strings.Builder
	for _, key := range p.PresentKeys() {
		if comment, ok := p.comments[key]; ok {
			b.WriteString(strings.TrimRight(comment, "\n"))
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s=\"%s\"\n", key, p.data[key])
	}
	return []byte(b.String())
}

// Info is the profile in a shape fit for structured CLI output.
type Info struct {
	ID               string `json:"os_id" yaml:"os_id"`
	Name             string `json:"name" yaml:"name"`
	ShortName        string `json:"short_name" yaml:"short_name"`
	Version          string `json:"version" yaml:"version"`
	VersionID        string `json:"version_id" yaml:"version_id"`
	UnamePattern     string `json:"uname_pattern" yaml:"uname_pattern"`
	KernelPattern    string `json:"kernel_pattern" yaml:"kernel_pattern"`
	InitramfsPattern string `json:"initramfs_pattern" yaml:"initramfs_pattern"`
	RootOptsLVM2     string `json:"root_opts_lvm2" yaml:"root_opts_lvm2"`
	RootOptsBTRFS    string `json:"root_opts_btrfs" yaml:"root_opts_btrfs"`
	Options          string `json:"options" yaml:"options"`
}

// Info returns the profile as an Info value.
func (p *Profile) Info() Info {
	return Info{
		ID:               p.ID(),
		Name:             p.Name(),
		ShortName:        p.ShortName(),
		Version:          p.Version(),
		VersionID:        p.VersionID(),
		UnamePattern:     p.UnamePattern(),
		KernelPattern:    p.KernelPattern(),
		InitramfsPattern: p.InitramfsPattern(),
		RootOptsLVM2:     p.RootOptsLVM2(),
		RootOptsBTRFS:    p.RootOptsBTRFS(),
		Options:          p.Options(),
	}
}
