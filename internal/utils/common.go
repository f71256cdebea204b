package utils

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// KernelRelease returns the running kernel release string, e.g.
// "2.6.32-754.35.1.el6.x86_64". Reads /proc/sys/kernel/osrelease and
// falls back to uname(2). The path can be overridden with
// HOST_KERNEL_RELEASE, which the tests use to fake the host kernel.
func KernelRelease() (string, error) {
	path := "/proc/sys/kernel/osrelease"
	if override := os.Getenv("HOST_KERNEL_RELEASE"); override != "" {
		path = override
	}

	release, err := os.ReadFile(path)
	if err == nil {
		return strings.TrimSpace(string(release)), nil
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(uts.Release[:]), nil
}
