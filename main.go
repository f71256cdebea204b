package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/osprof/osprof/internal/cmd"
	"github.com/osprof/osprof/internal/constants"
	"github.com/osprof/osprof/internal/utils"
	"github.com/osprof/osprof/internal/version"
)

// Manage OS boot profiles.
func main() {
	app := cli.NewApp()
	app.Name = "osprof"
	app.Usage = "manage OS boot profiles"
	app.Version = version.GetVersion()
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "profiles-dir",
			Usage:   "directory holding the profile files",
			Value:   constants.DefaultProfilesDir,
			EnvVars: []string{"OSPROF_PROFILES_DIR"},
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "enable debug logging",
			EnvVars: []string{"OSPROF_DEBUG"},
		},
	}
	app.Before = func(c *cli.Context) error {
		utils.SetLogger(c.Bool("debug"))
		return nil
	}
	app.Commands = append(cmd.Commands, &cli.Command{
		Name:  "version",
		Usage: "version",
		Action: func(c *cli.Context) error {
			v := version.Get()
			utils.Log.Info().Str("commit", v.GitCommit).Str("compiled with", v.GoVersion).Str("version", v.Version).Msg("osprof")
			return nil
		},
	})

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
