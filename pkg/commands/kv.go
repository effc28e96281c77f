package commands

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/acorn-io/acorn-edge/pkg/backend"
	"github.com/acorn-io/acorn-edge/pkg/config"
	"github.com/urfave/cli/v2"
)

func kvCommand() *cli.Command {
	flags := append(storeFlags(), GlobalFlags()...)

	return &cli.Command{
		Name:  "kv",
		Usage: "inspect and edit the identity and content store",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "print the value stored under a key",
				ArgsUsage: "<key>",
				Flags:     flags,
				Before:    Before,
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one key")
					}
					database, err := openDatabase(c.Context, c)
					if err != nil {
						return err
					}
					value, err := database.Get(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					_, err = c.App.Writer.Write(value)
					return err
				},
			},
			{
				Name:      "put",
				Usage:     "store a value under a key, read from the argument or stdin",
				ArgsUsage: "<key> [value]",
				Flags:     flags,
				Before:    Before,
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 || c.NArg() > 2 {
						return fmt.Errorf("expected a key and an optional value")
					}
					var value []byte
					if c.NArg() == 2 {
						value = []byte(c.Args().Get(1))
					} else {
						var err error
						if value, err = io.ReadAll(os.Stdin); err != nil {
							return err
						}
					}
					database, err := openDatabase(c.Context, c)
					if err != nil {
						return err
					}
					return database.Put(c.Context, c.Args().First(), value)
				},
			},
			{
				Name:      "delete",
				Usage:     "remove a key",
				ArgsUsage: "<key>",
				Flags:     flags,
				Before:    Before,
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one key")
					}
					database, err := openDatabase(c.Context, c)
					if err != nil {
						return err
					}
					return database.Delete(c.Context, c.Args().First())
				},
			},
			{
				Name:      "list",
				Usage:     "list keys starting with a prefix",
				ArgsUsage: "[prefix]",
				Flags:     flags,
				Before:    Before,
				Action: func(c *cli.Context) error {
					database, err := openDatabase(c.Context, c)
					if err != nil {
						return err
					}
					keys, err := database.List(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					for _, k := range keys {
						fmt.Fprintln(c.App.Writer, k)
					}
					return nil
				},
			},
			{
				Name:      "publish",
				Usage:     "publish a file into the content collection under a logical path",
				ArgsUsage: "<file>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Logical path to publish the file as, such as /index.html",
					},
					&cli.StringFlag{
						Name:    "config",
						Usage:   "YAML file selecting the publish id and collection",
						EnvVars: []string{"EDGE_CONFIG"},
					},
				}, flags...),
				Before: Before,
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one file")
					}
					file := c.Args().First()
					body, err := os.ReadFile(file)
					if err != nil {
						return err
					}
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}
					path := c.String("path")
					if path == "" {
						path = "/" + filepath.Base(file)
					}
					contentType := mime.TypeByExtension(filepath.Ext(file))
					if contentType == "" {
						contentType = "application/octet-stream"
					}

					database, err := openDatabase(c.Context, c)
					if err != nil {
						return err
					}
					entry, err := backend.NewPublisher(database, cfg.PublishID, cfg.Collection).
						Publish(c.Context, path, contentType, body)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s -> %s (%d bytes)\n", path, entry.Key, entry.Size)
					return nil
				},
			},
		},
	}
}
