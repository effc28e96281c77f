package db

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLogger sends gorm's output through logrus.
type gormLogger struct {
	level logger.LogLevel
	log   *logrus.Entry
}

// NewLogger maps the process log level onto a gorm logger.
func NewLogger(logLevel string) logger.Interface {
	l := &gormLogger{
		log: logrus.WithField("component", "gorm"),
	}
	switch logLevel {
	case "trace":
		l.level = logger.Info
	case "debug", "info", "warn":
		l.level = logger.Warn
	default:
		l.level = logger.Error
	}
	return l
}

func (g *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	n := *g
	n.level = level
	return &n
}

func (g *gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Info {
		g.log.WithContext(ctx).Infof(msg, args...)
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Warn {
		g.log.WithContext(ctx).Warnf(msg, args...)
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= logger.Error {
		g.log.WithContext(ctx).Errorf(msg, args...)
	}
}

func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	entry := g.log.WithContext(ctx).WithFields(logrus.Fields{
		"duration": elapsed,
		"rows":     rows,
		"sql":      sql,
	})

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= logger.Error:
		entry.WithError(err).Error("query failed")
	case elapsed > slowQueryThreshold && g.level >= logger.Warn:
		entry.Warn("slow query")
	case g.level >= logger.Info:
		entry.Trace("query")
	}
}
