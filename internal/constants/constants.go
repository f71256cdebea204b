package constants

import "errors"

// DefaultProfilesDir is where profiles live unless overridden on the
// command line or via OSPROF_PROFILES_DIR.
const DefaultProfilesDir = "/boot/boom/profiles"

// ProfileSuffix is the file name suffix for on-disk profiles.
const ProfileSuffix = ".profile"

// ProfileMode is the mode profile files are created with.
const ProfileMode = 0o644

var (
	ErrNotFound  = errors.New("profile not found")
	ErrAmbiguous = errors.New("profile identifier is ambiguous")
	ErrExists    = errors.New("profile already exists")
)
