package commands

import (
	"fmt"
	"path"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level: trace, debug, info, warn or error",
			Aliases: []string{"l"},
			EnvVars: []string{"EDGE_LOG_LEVEL", "LOGLEVEL"},
			Value:   "info",
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log output format: json or text",
			EnvVars: []string{"EDGE_LOG_FORMAT"},
			Value:   "json",
		},
		&cli.BoolFlag{
			Name:  "log-caller",
			Usage: "log the caller (aka line number and file)",
		},
	}
}

// Before configures the global logrus logger from the log flags.
func Before(c *cli.Context) error {
	callerPrettyfier := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", path.Base(f.File), f.Line)
	}

	switch c.String("log-format") {
	case "json":
		formatter := &logrus.JSONFormatter{}
		if c.Bool("log-caller") {
			formatter.CallerPrettyfier = callerPrettyfier
		}
		logrus.SetFormatter(formatter)
	case "text":
		formatter := &logrus.TextFormatter{FullTimestamp: true}
		if c.Bool("log-caller") {
			formatter.CallerPrettyfier = callerPrettyfier
		}
		logrus.SetFormatter(formatter)
	default:
		return fmt.Errorf("unknown log format %q", c.String("log-format"))
	}
	logrus.SetReportCaller(c.Bool("log-caller"))

	switch c.String("log-level") {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		return fmt.Errorf("unknown log level %q", c.String("log-level"))
	}

	return nil
}
