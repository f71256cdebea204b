package cmd

import (
	"fmt"

	vfs "github.com/twpayne/go-vfs/v4"
	"github.com/urfave/cli/v2"

	"github.com/osprof/osprof/internal/utils"
	"github.com/osprof/osprof/pkg/osrelease"
	"github.com/osprof/osprof/pkg/profile"
	"github.com/osprof/osprof/pkg/store"
)

var Commands = []*cli.Command{
	{
		Name:  "create",
		Usage: "create a new OS profile and write it to the profiles directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "OS name, e.g. \"Red Hat Enterprise Linux Server\"", Required: true},
			&cli.StringFlag{Name: "short-name", Usage: "OS short name, e.g. \"rhel\"", Required: true},
			&cli.StringFlag{Name: "os-version", Usage: "OS version string, e.g. \"6 (Server)\"", Required: true},
			&cli.StringFlag{Name: "os-version-id", Usage: "OS version id, e.g. \"6\"", Required: true},
			&cli.StringFlag{Name: "uname-pattern", Usage: "pattern matched against kernel release strings, e.g. \"el6\"", Required: true},
			&cli.StringFlag{Name: "kernel-pattern", Usage: "kernel image path template"},
			&cli.StringFlag{Name: "initramfs-pattern", Usage: "initramfs image path template"},
			&cli.StringFlag{Name: "root-opts-lvm2", Usage: "root options template for LVM2 roots"},
			&cli.StringFlag{Name: "root-opts-btrfs", Usage: "root options template for BTRFS roots"},
			&cli.StringFlag{Name: "os-options", Usage: "kernel command line template"},
		},
		Action: func(c *cli.Context) error {
			p, err := profile.New(c.String("name"), c.String("short-name"),
				c.String("os-version"), c.String("os-version-id"))
			if err != nil {
				return err
			}
			if err := p.SetUnamePattern(c.String("uname-pattern")); err != nil {
				return err
			}
			setters := map[string]func(string) error{
				"kernel-pattern":    p.SetKernelPattern,
				"initramfs-pattern": p.SetInitramfsPattern,
				"root-opts-lvm2":    p.SetRootOptsLVM2,
				"root-opts-btrfs":   p.SetRootOptsBTRFS,
				"os-options":        p.SetOptions,
			}
			for flag, set := range setters {
				if c.IsSet(flag) {
					if err := set(c.String(flag)); err != nil {
						return err
					}
				}
			}
			if err := p.Validate(); err != nil {
				return err
			}

			s, err := openStore(c)
			if err != nil {
				return err
			}
			if err := s.Add(p); err != nil {
				return err
			}
			if err := s.Write(p, false); err != nil {
				return err
			}
			utils.Log.Info().Str("os_id", s.DisplayID(p)).Str("file", p.FileName()).Msg("created profile")
			fmt.Fprintln(c.App.Writer, p.String())
			return nil
		},
	},
	{
		Name:      "from-os-release",
		Usage:     "build a profile from os-release data (the host's by default)",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "write", Usage: "write the profile to the profiles directory"},
		},
		Action: func(c *cli.Context) error {
			var rel *osrelease.Release
			var err error
			if path := c.Args().First(); path != "" {
				rel, err = osrelease.ParseFile(vfs.OSFS, path)
			} else {
				rel, err = osrelease.Host(vfs.OSFS)
			}
			if err != nil {
				return err
			}

			p, err := osrelease.NewProfile(rel)
			if err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				return err
			}

			if c.Bool("write") {
				s, err := openStore(c)
				if err != nil {
					return err
				}
				if err := s.Add(p); err != nil {
					return err
				}
				if err := s.Write(p, false); err != nil {
					return err
				}
				utils.Log.Info().Str("os_id", s.DisplayID(p)).Str("file", p.FileName()).Msg("created profile")
			}
			fmt.Fprintln(c.App.Writer, p.String())
			return nil
		},
	},
	{
		Name:  "list",
		Usage: "list profiles matching the given criteria",
		Flags: append([]cli.Flag{outputFlag()}, selectionFlags()...),
		Action: func(c *cli.Context) error {
			s, err := openStore(c)
			if err != nil {
				return err
			}
			profiles := s.Find(selectionFromFlags(c))
			return writeProfileList(c.App.Writer, c.String("output"), s, profiles)
		},
	},
	{
		Name:      "show",
		Usage:     "show one profile in full",
		ArgsUsage: "<os_id prefix>",
		Flags:     []cli.Flag{outputFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("show requires an os_id argument")
			}
			s, err := openStore(c)
			if err != nil {
				return err
			}
			p, err := s.GetByPrefix(c.Args().First())
			if err != nil {
				return err
			}
			return writeProfile(c.App.Writer, c.String("output"), p)
		},
	},
	{
		Name:  "match",
		Usage: "find the profile matching a kernel release string",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "version", Usage: "kernel release string to match, e.g. \"2.6.32-754.el6.x86_64\""},
			&cli.BoolFlag{Name: "from-host", Usage: "match the running host's kernel release"},
			outputFlag(),
		},
		Action: func(c *cli.Context) error {
			release := c.String("version")
			if c.Bool("from-host") {
				var err error
				release, err = utils.KernelRelease()
				if err != nil {
					return err
				}
			}
			if release == "" {
				return fmt.Errorf("one of --version or --from-host is required")
			}

			s, err := openStore(c)
			if err != nil {
				return err
			}
			p, err := s.MatchVersion(release)
			if err != nil {
				return err
			}
			return writeProfile(c.App.Writer, c.String("output"), p)
		},
	},
	{
		Name:      "delete",
		Usage:     "delete a profile and its on-disk file",
		ArgsUsage: "<os_id prefix>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("delete requires an os_id argument")
			}
			s, err := openStore(c)
			if err != nil {
				return err
			}
			p, err := s.GetByPrefix(c.Args().First())
			if err != nil {
				return err
			}
			if err := s.Delete(p); err != nil {
				return err
			}
			utils.Log.Info().Str("os_id", p.ID()).Msg("deleted profile")
			return nil
		},
	},
}

func openStore(c *cli.Context) (*store.Store, error) {
	s := store.New(vfs.OSFS, c.String("profiles-dir"), utils.Log)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "output",
		Usage: "output format: table, json or yaml",
		Value: "table",
	}
}

func selectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "profile", Usage: "match profiles by os_id prefix"},
		&cli.StringFlag{Name: "name", Usage: "match profiles by OS name"},
		&cli.StringFlag{Name: "short-name", Usage: "match profiles by OS short name"},
		&cli.StringFlag{Name: "os-version", Usage: "match profiles by OS version"},
		&cli.StringFlag{Name: "os-version-id", Usage: "match profiles by OS version id"},
		&cli.StringFlag{Name: "uname-pattern", Usage: "match profiles by uname pattern"},
	}
}

func selectionFromFlags(c *cli.Context) store.Selection {
	return store.Selection{
		ID:           c.String("profile"),
		Name:         c.String("name"),
		ShortName:    c.String("short-name"),
		Version:      c.String("os-version"),
		VersionID:    c.String("os-version-id"),
		UnamePattern: c.String("uname-pattern"),
	}
}
