package commands

import (
	"fmt"
	"net/url"
	"time"

	"github.com/acorn-io/acorn-edge/pkg/apiserver"
	"github.com/acorn-io/acorn-edge/pkg/backend"
	"github.com/acorn-io/acorn-edge/pkg/config"
	"github.com/acorn-io/acorn-edge/pkg/version"
	"github.com/rancher/wrangler/pkg/signals"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

type apiServerCommand struct{}

func (s *apiServerCommand) Execute(c *cli.Context) error {
	ctx := signals.SetupSignalContext()

	log := logrus.WithField("command", "serve")

	log.Infof("version: %v", version.Get())

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	database, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}

	timeout := c.Duration("upstream-timeout")
	back := backend.NewBackend(database, backend.Options{
		PublishID:  cfg.PublishID,
		Collection: cfg.Collection,
		APIBaseURL: c.String("api-url"),
		UserAgent:  "acorn-edge/" + version.Get().String(),
		Timeout:    timeout,
	})

	upstreams := apiserver.Upstreams{Timeout: timeout}
	if upstreams.StaticOrigin, err = parseOptionalURL("static-origin", c.String("static-origin")); err != nil {
		return err
	}
	if upstreams.ReportBackend, err = parseOptionalURL("report-backend", c.String("report-backend")); err != nil {
		return err
	}

	apiServer := apiserver.NewAPIServer(ctx, log, c.Int("port"))

	if err := apiServer.Start(cfg, back, upstreams); err != nil {
		return err
	}

	return nil
}

func parseOptionalURL(flag, raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("--%s: %q is not an absolute URL", flag, raw)
	}
	return u, nil
}

func serverCommand() *cli.Command {
	cmd := apiServerCommand{}

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Usage:   "Port for the HTTP Server Port",
			EnvVars: []string{"EDGE_PORT", "PORT"},
			Value:   4315,
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "YAML file overriding the built-in routing configuration",
			EnvVars: []string{"EDGE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "static-origin",
			Usage:   "Base URL of the static content server unmatched requests are proxied to",
			EnvVars: []string{"EDGE_STATIC_ORIGIN", "STATIC_ORIGIN"},
		},
		&cli.StringFlag{
			Name:    "report-backend",
			Usage:   "URL report submissions are passed through to",
			EnvVars: []string{"EDGE_REPORT_BACKEND", "REPORT_BACKEND"},
		},
		&cli.StringFlag{
			Name:    "api-url",
			Usage:   "Base URL of the video and profile metadata API",
			EnvVars: []string{"EDGE_API_URL", "API_URL"},
		},
		&cli.DurationFlag{
			Name:    "upstream-timeout",
			Usage:   "Timeout applied to every store read and outbound call",
			EnvVars: []string{"EDGE_UPSTREAM_TIMEOUT"},
			Value:   3 * time.Second,
		},
	}
	flags = append(flags, storeFlags()...)

	return &cli.Command{
		Name:   "serve",
		Usage:  "run the edge router",
		Action: cmd.Execute,
		Flags:  append(flags, GlobalFlags()...),
		Before: Before,
	}
}
