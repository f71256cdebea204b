// Package profile implements operating system profiles: the identity
// of an OS distribution/version plus the template values an external
// boot configuration engine needs to generate boot entries for it.
//
// Profiles are flat records of BOOM_OS_* keys stored one per file as
// KEY="value" lines. Template values may carry %{name} placeholders
// from a fixed vocabulary; expansion of those placeholders is the
// consumer's job, not ours.
package profile

// Profile keys as they appear on disk.
const (
	KeyID               = "BOOM_OS_ID"
	KeyName             = "BOOM_OS_NAME"
	KeyShortName        = "BOOM_OS_SHORT_NAME"
	KeyVersion          = "BOOM_OS_VERSION"
	KeyVersionID        = "BOOM_OS_VERSION_ID"
	KeyUnamePattern     = "BOOM_OS_UNAME_PATTERN"
	KeyKernelPattern    = "BOOM_OS_KERNEL_PATTERN"
	KeyInitramfsPattern = "BOOM_OS_INITRAMFS_PATTERN"
	KeyRootOptsLVM2     = "BOOM_OS_ROOT_OPTS_LVM2"
	KeyRootOptsBTRFS    = "BOOM_OS_ROOT_OPTS_BTRFS"
	KeyOptions          = "BOOM_OS_OPTIONS"
)

// Keys is the canonical on-disk key order. ID through
// INITRAMFS_PATTERN are mandatory, at least one of the ROOT_OPTS keys
// is required, OPTIONS is optional.
var Keys = []string{
	KeyID, KeyName, KeyShortName, KeyVersion,
	KeyVersionID, KeyUnamePattern,
	KeyKernelPattern, KeyInitramfsPattern,
	KeyRootOptsLVM2, KeyRootOptsBTRFS,
	KeyOptions,
}

// RequiredKeys must be present with a non-empty value in every valid
// profile.
var RequiredKeys = Keys[0:8]

// RootOptsKeys are the alternate root device option keys; a valid
// profile defines at least one.
var RootOptsKeys = Keys[8:10]

// KeyNames maps profile keys to names suitable for display.
var KeyNames = map[string]string{
	KeyID:               "OS ID",
	KeyName:             "Name",
	KeyShortName:        "Short name",
	KeyVersion:          "Version",
	KeyVersionID:        "Version ID",
	KeyUnamePattern:     "UTS release pattern",
	KeyKernelPattern:    "Kernel pattern",
	KeyInitramfsPattern: "Initramfs pattern",
	KeyRootOptsLVM2:     "Root options (LVM2)",
	KeyRootOptsBTRFS:    "Root options (BTRFS)",
	KeyOptions:          "Options",
}

// Defaults are the values applied to keys a record does not define.
var Defaults = map[string]string{
	KeyKernelPattern:    "/vmlinuz-%{version}",
	KeyInitramfsPattern: "/initramfs-%{version}.img",
	KeyRootOptsLVM2:     "rd.lvm.lv=%{lvm_root_lv}",
	KeyRootOptsBTRFS:    "rootflags=%{btrfs_subvolume}",
	KeyOptions:          "root=%{root_device} ro %{root_opts}",
}

// Placeholder names allowed inside template values.
const (
	FmtVersion         = "version"
	FmtLVMRootLV       = "lvm_root_lv"
	FmtBTRFSSubvolume  = "btrfs_subvolume"
	FmtBTRFSSubvolID   = "btrfs_subvol_id"
	FmtBTRFSSubvolPath = "btrfs_subvol_path"
	FmtRootDevice      = "root_device"
	FmtRootOpts        = "root_opts"
	FmtKernel          = "kernel"
	FmtInitramfs       = "initramfs"
)

// FormatKeys is the full placeholder vocabulary. Tokens outside this
// set make a profile invalid.
var FormatKeys = []string{
	FmtVersion, FmtLVMRootLV,
	FmtBTRFSSubvolume, FmtBTRFSSubvolID, FmtBTRFSSubvolPath,
	FmtRootDevice, FmtRootOpts,
	FmtKernel, FmtInitramfs,
}

// templateKeys are the profile keys whose values are scanned for
// placeholder tokens.
var templateKeys = []string{
	KeyKernelPattern, KeyInitramfsPattern,
	KeyRootOptsLVM2, KeyRootOptsBTRFS,
	KeyOptions,
}

// badFormatKeys lists, per profile key, the placeholders that would be
// self-referential in that key's value: the consumer substitutes
// %{kernel} with the expanded kernel pattern, so the pattern itself
// cannot contain it.
var badFormatKeys = map[string][]string{
	KeyKernelPattern:    {FmtKernel},
	KeyInitramfsPattern: {FmtInitramfs},
	KeyRootOptsLVM2:     {FmtRootOpts},
	KeyRootOptsBTRFS:    {FmtRootOpts},
}

// FormatKey returns the %{name} placeholder token for a format key
// name.
func FormatKey(name string) string {
	return "%{" + name + "}"
}
