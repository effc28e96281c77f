package commands

import (
	"encoding/json"
	"fmt"

	"github.com/acorn-io/acorn-edge/pkg/version"
	"github.com/urfave/cli/v2"
)

func printVersion(c *cli.Context) error {
	v := version.Get()
	if !c.Bool("json") {
		fmt.Fprintln(c.App.Writer, v)
		return nil
	}
	out, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print version",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the version as JSON, as served on /healthz",
			},
		},
		Action: printVersion,
	}
}
