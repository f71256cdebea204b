package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/osprof/osprof/pkg/profile"
	"github.com/osprof/osprof/pkg/store"
)

// writeProfileList renders a set of profiles as a table, json or yaml.
func writeProfileList(w io.Writer, format string, s *store.Store, profiles []*profile.Profile) error {
	switch format {
	case "json":
		infos := profileInfos(profiles)
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		data, err := yaml.Marshal(profileInfos(profiles))
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "table", "":
		tw := tabwriter.NewWriter(w, 2, 8, 2, ' ', 0)
		fmt.Fprintln(tw, "OS ID\tNAME\tSHORT NAME\tVERSION\tVERSION ID")
		for _, p := range profiles {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				s.DisplayID(p), p.Name(), p.ShortName(), p.Version(), p.VersionID())
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// writeProfile renders one profile in full.
func writeProfile(w io.Writer, format string, p *profile.Profile) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(p.Info(), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		data, err := yaml.Marshal(p.Info())
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "table", "":
		_, err := fmt.Fprintln(w, p.String())
		return err
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func profileInfos(profiles []*profile.Profile) []profile.Info {
	infos := make([]profile.Info, 0, len(profiles))
	for _, p := range profiles {
		infos = append(infos, p.Info())
	}
	return infos
}
