// Package store manages the on-disk set of OS profiles: one
// KEY="value" file per profile inside a profiles directory, loaded
// once into memory and indexed by identifier.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	vfs "github.com/twpayne/go-vfs/v4"

	"github.com/osprof/osprof/internal/constants"
	"github.com/osprof/osprof/pkg/profile"
)

// minIDPrefix is the smallest display width for profile identifiers.
const minIDPrefix = 7

// Store is an in-memory view of a profiles directory. It is loaded in
// a single pass and treated as read-only afterwards; mutation happens
// through Add/Write/Delete which keep memory and disk in sync.
type Store struct {
	fs  vfs.FS
	dir string
	log zerolog.Logger

	profiles []*profile.Profile
	byID     map[string]*profile.Profile
	files    map[string]string // os_id -> file the profile was read from
}

// New returns a store over the given profiles directory. Nothing is
// read until Load is called.
func New(fsys vfs.FS, dir string, log zerolog.Logger) *Store {
	return &Store{
		fs:    fsys,
		dir:   dir,
		log:   log.With().Str("dir", dir).Logger(),
		byID:  map[string]*profile.Profile{},
		files: map[string]string{},
	}
}

// Dir returns the profiles directory the store operates on.
func (s *Store) Dir() string { return s.dir }

// Load reads every profile file in the store directory. A file that
// fails to parse or validate does not stop the rest from loading; all
// failures are collected and returned together. Two files carrying the
// same os_id are an error naming both files, and the later file is
// ignored.
func (s *Store) Load() error {
	s.profiles = nil
	s.byID = map[string]*profile.Profile{}
	s.files = map[string]string{}

	entries, err := s.fs.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Debug().Msg("profiles directory does not exist, nothing to load")
			return nil
		}
		return err
	}

	var errs *multierror.Error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), constants.ProfileSuffix) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		p, err := profile.ParseFile(s.fs, path)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if other, ok := s.files[p.ID()]; ok {
			errs = multierror.Append(errs, fmt.Errorf("duplicate os_id %s in %s and %s", p.ID(), other, path))
			continue
		}
		s.profiles = append(s.profiles, p)
		s.byID[p.ID()] = p
		s.files[p.ID()] = path
	}

	s.log.Debug().Int("profiles", len(s.profiles)).Msg("loaded profiles")
	return errs.ErrorOrNil()
}

// Len returns the number of loaded profiles.
func (s *Store) Len() int { return len(s.profiles) }

// Profiles returns the loaded profiles sorted by name and version.
func (s *Store) Profiles() []*profile.Profile {
	profiles := make([]*profile.Profile, len(s.profiles))
	copy(profiles, s.profiles)
	sortProfiles(profiles)
	return profiles
}

func sortProfiles(profiles []*profile.Profile) {
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].Name() != profiles[j].Name() {
			return profiles[i].Name() < profiles[j].Name()
		}
		return profiles[i].Version() < profiles[j].Version()
	})
}

// Get returns the profile with exactly the given os_id.
func (s *Store) Get(id string) (*profile.Profile, error) {
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("os_id %s: %w", id, constants.ErrNotFound)
}

// GetByPrefix resolves a (possibly abbreviated) os_id. The prefix has
// to match exactly one loaded profile.
func (s *Store) GetByPrefix(prefix string) (*profile.Profile, error) {
	if prefix == "" {
		return nil, fmt.Errorf("empty os_id: %w", constants.ErrNotFound)
	}
	var found *profile.Profile
	for _, p := range s.profiles {
		if !strings.HasPrefix(p.ID(), prefix) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("os_id %s: %w", prefix, constants.ErrAmbiguous)
		}
		found = p
	}
	if found == nil {
		return nil, fmt.Errorf("os_id %s: %w", prefix, constants.ErrNotFound)
	}
	return found, nil
}

// Find returns the profiles matching the selection, sorted by name
// and version. An empty selection returns everything.
func (s *Store) Find(sel Selection) []*profile.Profile {
	var matches []*profile.Profile
	for _, p := range s.profiles {
		if sel.Matches(p) {
			matches = append(matches, p)
		}
	}
	sortProfiles(matches)
	s.log.Debug().Int("matches", len(matches)).Msg("profile selection")
	return matches
}

// MatchVersion returns the first profile (in name/version order) whose
// uname pattern matches the given kernel release string.
func (s *Store) MatchVersion(release string) (*profile.Profile, error) {
	for _, p := range s.Profiles() {
		if p.MatchUnameVersion(release) {
			s.log.Debug().Str("release", release).Str("os_id", p.ID()).Msg("matched profile")
			return p, nil
		}
	}
	return nil, fmt.Errorf("no profile matches %q: %w", release, constants.ErrNotFound)
}

// Add registers a new profile with the store without writing it.
func (s *Store) Add(p *profile.Profile) error {
	if _, ok := s.byID[p.ID()]; ok {
		return fmt.Errorf("os_id %s: %w", p.ID(), constants.ErrExists)
	}
	s.profiles = append(s.profiles, p)
	s.byID[p.ID()] = p
	return nil
}

// Write persists a profile to the store directory. Clean profiles are
// skipped unless force is set. The file is written to a temporary
// name, synced, and renamed into place so a crash cannot leave a
// half-written profile behind.
func (s *Store) Write(p *profile.Profile, force bool) error {
	if !force && !p.Dirty() {
		return nil
	}

	if err := vfs.MkdirAll(s.fs, s.dir, 0o755); err != nil {
		return err
	}

	name := p.FileName()
	path := filepath.Join(s.dir, name)
	tmpPath := filepath.Join(s.dir, "."+name+".tmp")

	s.log.Debug().Str("file", name).Str("os_id", p.ID()).Msg("writing profile")

	f, err := s.fs.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, constants.ProfileMode)
	if err != nil {
		return err
	}
	if _, err := f.Write(p.Bytes()); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmpPath)
		return err
	}

	if err := s.fs.Rename(tmpPath, path); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("writing profile file %s: %w", path, err)
	}
	if err := s.fs.Chmod(path, constants.ProfileMode); err != nil {
		return err
	}

	s.files[p.ID()] = path
	p.MarkWritten()
	return nil
}

// WriteAll writes every loaded profile, skipping clean ones unless
// force is set. A failed write does not stop the others.
func (s *Store) WriteAll(force bool) error {
	var errs *multierror.Error
	for _, p := range s.profiles {
		if err := s.Write(p, force); err != nil {
			s.log.Warn().Err(err).Str("os_id", p.ID()).Msg("failed to write profile")
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// Delete removes a profile from the store and erases its on-disk file
// if one exists. The file the profile was read from wins over the
// canonical name, so profiles loaded from hand-named files are cleaned
// up correctly.
func (s *Store) Delete(p *profile.Profile) error {
	path, ok := s.files[p.ID()]
	if !ok {
		path = filepath.Join(s.dir, p.FileName())
	}

	for i, candidate := range s.profiles {
		if candidate == p {
			s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
			break
		}
	}
	delete(s.byID, p.ID())
	delete(s.files, p.ID())

	if _, err := s.fs.Stat(path); os.IsNotExist(err) {
		return nil
	}
	s.log.Debug().Str("file", filepath.Base(path)).Str("os_id", p.ID()).Msg("deleting profile")
	return s.fs.Remove(path)
}

// MinIDWidth returns the shortest prefix length that keeps every
// loaded os_id unique, with a floor of seven characters.
func (s *Store) MinIDWidth() int {
	width := minIDPrefix
	for ; width < 40; width++ {
		prefixes := map[string]bool{}
		unique := true
		for id := range s.byID {
			prefix := id
			if len(id) > width {
				prefix = id[:width]
			}
			if prefixes[prefix] {
				unique = false
				break
			}
			prefixes[prefix] = true
		}
		if unique {
			break
		}
	}
	return width
}

// DisplayID returns the shortest unambiguous os_id prefix for display.
func (s *Store) DisplayID(p *profile.Profile) string {
	id := p.ID()
	if width := s.MinIDWidth(); len(id) > width {
		return id[:width]
	}
	return id
}
