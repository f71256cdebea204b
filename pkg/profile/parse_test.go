package profile_test

import (
	"bytes"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/osprof/osprof/pkg/profile"
)

const rhel6File = `BOOM_OS_ID="98c3edb94b7b3c8c95cb7d93f75693d2b25f764d"
BOOM_OS_NAME="Red Hat Enterprise Linux Server"
BOOM_OS_SHORT_NAME="rhel"
BOOM_OS_VERSION="6 (Server)"
BOOM_OS_VERSION_ID="6"
BOOM_OS_UNAME_PATTERN="el6"
BOOM_OS_KERNEL_PATTERN="/vmlinuz-%{version}"
BOOM_OS_INITRAMFS_PATTERN="/initramfs-%{version}.img"
BOOM_OS_ROOT_OPTS_LVM2="rd.lvm.lv=%{lvm_root_lv}"
BOOM_OS_ROOT_OPTS_BTRFS="rootflags=%{btrfs_subvolume}"
BOOM_OS_OPTIONS="root=%{root_device} ro %{root_opts} rhgb quiet"
`

// swapLine replaces the line defining key with a raw replacement line.
func swapLine(data, key, replacement string) string {
	var out []string
	for _, line := range strings.Split(strings.TrimRight(data, "\n"), "\n") {
		if strings.HasPrefix(line, key+"=") {
			line = replacement
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n") + "\n"
}

var _ = Describe("Parse", func() {
	It("parses a complete profile file", func() {
		p, err := profile.Parse(strings.NewReader(rhel6File))
		Expect(err).ToNot(HaveOccurred())
		Expect(p.ID()).To(Equal(rhel6ID))
		Expect(p.Name()).To(Equal("Red Hat Enterprise Linux Server"))
		Expect(p.ShortName()).To(Equal("rhel"))
		Expect(p.VersionID()).To(Equal("6"))
		Expect(p.UnamePattern()).To(Equal("el6"))
		Expect(p.Options()).To(Equal("root=%{root_device} ro %{root_opts} rhgb quiet"))
	})
	It("loads profiles clean", func() {
		p, err := profile.Parse(strings.NewReader(rhel6File))
		Expect(err).ToNot(HaveOccurred())
		Expect(p.Dirty()).To(BeFalse())
	})
	It("generates the os_id when the file does not carry one", func() {
		data := strings.Replace(rhel6File, `BOOM_OS_ID="98c3edb94b7b3c8c95cb7d93f75693d2b25f764d"`+"\n", "", 1)
		p, err := profile.Parse(strings.NewReader(data))
		Expect(err).ToNot(HaveOccurred())
		Expect(p.ID()).To(Equal(rhel6ID))
	})
	It("fills missing template keys with defaults", func() {
		data := `BOOM_OS_NAME="Fedora"
BOOM_OS_SHORT_NAME="fedora"
BOOM_OS_VERSION="24 (Workstation Edition)"
BOOM_OS_VERSION_ID="24"
BOOM_OS_UNAME_PATTERN="fc24"
`
		p, err := profile.Parse(strings.NewReader(data))
		Expect(err).ToNot(HaveOccurred())
		Expect(p.ID()).To(Equal(fedora24ID))
		Expect(p.KernelPattern()).To(Equal("/vmlinuz-%{version}"))
		Expect(p.Options()).To(Equal("root=%{root_device} ro %{root_opts}"))
	})

	Context("value forms", func() {
		parseName := func(line string) (string, error) {
			data := swapLine(rhel6File, profile.KeyName, line)
			p, err := profile.Parse(strings.NewReader(data))
			if err != nil {
				return "", err
			}
			return p.Name(), nil
		}
		It("accepts bare values", func() {
			Expect(parseName("BOOM_OS_NAME=Fedora")).To(Equal("Fedora"))
		})
		It("accepts single quoted values", func() {
			Expect(parseName("BOOM_OS_NAME='Red Hat Enterprise Linux Server'")).To(Equal("Red Hat Enterprise Linux Server"))
		})
		It("ignores whitespace around the separator", func() {
			Expect(parseName(`BOOM_OS_NAME = "Fedora"`)).To(Equal("Fedora"))
		})
		It("strips trailing comments", func() {
			Expect(parseName(`BOOM_OS_NAME="Fedora" # the name`)).To(Equal("Fedora"))
			Expect(parseName("BOOM_OS_NAME=Fedora # the name")).To(Equal("Fedora"))
		})
		It("rejects lines without a separator", func() {
			_, err := parseName("BOOM_OS_NAME")
			Expect(err).To(MatchError(ContainSubstring("no '='")))
		})
		It("rejects empty assignments", func() {
			_, err := parseName("BOOM_OS_NAME==Fedora")
			Expect(err).To(MatchError(ContainSubstring("empty assignment")))
		})
		It("rejects names with invalid characters", func() {
			_, err := parseName("BOOM_OS_NAME+=Fedora")
			Expect(err).To(MatchError(ContainSubstring("bad name")))
		})
		It("rejects unterminated quotes", func() {
			_, err := parseName(`BOOM_OS_NAME="Fedora`)
			Expect(err).To(MatchError(ContainSubstring("unterminated quote")))
		})
		It("rejects trailing data after a quoted value", func() {
			_, err := parseName(`BOOM_OS_NAME="Fedora" Workstation`)
			Expect(err).To(MatchError(ContainSubstring("trailing data")))
		})
		It("names the offending line number", func() {
			_, err := parseName("BOOM_OS_NAME")
			Expect(err).To(MatchError(ContainSubstring("line 2")))
		})
	})

	It("rejects unknown keys", func() {
		data := rhel6File + "BOOM_OS_FLAVOR=\"spicy\"\n"
		_, err := profile.Parse(strings.NewReader(data))
		Expect(err).To(MatchError(ContainSubstring("invalid profile key")))
	})
	It("rejects duplicate keys", func() {
		data := rhel6File + `BOOM_OS_NAME="Fedora"` + "\n"
		_, err := profile.Parse(strings.NewReader(data))
		Expect(err).To(MatchError(ContainSubstring("duplicate profile key")))
	})
	It("rejects empty input", func() {
		_, err := profile.Parse(strings.NewReader("# nothing here\n"))
		Expect(err).To(MatchError(ContainSubstring("no profile keys")))
	})
	It("rejects records that do not validate", func() {
		data := swapLine(rhel6File, profile.KeyUnamePattern, `BOOM_OS_UNAME_PATTERN="*el6"`)
		_, err := profile.Parse(strings.NewReader(data))
		Expect(err).To(MatchError(ContainSubstring(profile.KeyUnamePattern)))
	})

	Context("round trips", func() {
		It("re-parses its own output unchanged", func() {
			p1, err := profile.Parse(strings.NewReader(rhel6File))
			Expect(err).ToNot(HaveOccurred())
			p2, err := profile.Parse(bytes.NewReader(p1.Bytes()))
			Expect(err).ToNot(HaveOccurred())
			Expect(p2.Data()).To(Equal(p1.Data()))
		})
		It("keeps comment blocks attached to their keys", func() {
			data := "# RHEL6 profile\n# written by hand\n" + rhel6File
			p, err := profile.Parse(strings.NewReader(data))
			Expect(err).ToNot(HaveOccurred())
			out := string(p.Bytes())
			Expect(out).To(HavePrefix("# RHEL6 profile\n# written by hand\nBOOM_OS_ID="))
			p2, err := profile.Parse(strings.NewReader(out))
			Expect(err).ToNot(HaveOccurred())
			Expect(p2.Data()).To(Equal(p.Data()))
		})
	})
})

var _ = Describe("ParseFile", func() {
	var fs *vfst.TestFS
	var cleanup func()

	BeforeEach(func() {
		var err error
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
			"/profiles/rhel6.profile":  rhel6File,
			"/profiles/broken.profile": "BOOM_OS_NAME\n",
		})
		Expect(err).ToNot(HaveOccurred())
	})
	AfterEach(func() {
		cleanup()
	})

	It("reads a profile from a file", func() {
		p, err := profile.ParseFile(fs, "/profiles/rhel6.profile")
		Expect(err).ToNot(HaveOccurred())
		Expect(p.ID()).To(Equal(rhel6ID))
	})
	It("names the file in parse errors", func() {
		_, err := profile.ParseFile(fs, "/profiles/broken.profile")
		Expect(err).To(MatchError(ContainSubstring("/profiles/broken.profile")))
	})
	It("propagates open errors", func() {
		_, err := profile.ParseFile(fs, "/profiles/missing.profile")
		Expect(os.IsNotExist(err)).To(BeTrue())
	})
})
