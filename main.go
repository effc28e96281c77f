package main

import (
	"os"

	"github.com/acorn-io/acorn-edge/pkg/commands"
	"github.com/acorn-io/acorn-edge/pkg/version"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			// logrus.Panic values have already been logged
			if _, ok := r.(*logrus.Entry); ok {
				os.Exit(1)
			}
			panic(r)
		}
	}()

	app := &cli.App{
		Name:     "acorn-edge",
		Usage:    "Edge router and identity resolver for subdomain profiles",
		Version:  version.Get().String(),
		Commands: commands.GetCommands(),
		CommandNotFound: func(_ *cli.Context, command string) {
			logrus.Fatalf("Command %s not found.", command)
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
