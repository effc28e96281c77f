package commands

import (
	"context"
	"fmt"

	"github.com/acorn-io/acorn-edge/pkg/db"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

const dialectS3 = "s3"

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "kv-dialect",
			Usage:   "Key-value store backing identities and published content: sqlite, mysql or s3",
			EnvVars: []string{"EDGE_KV_DIALECT", "KV_DIALECT"},
			Value:   "sqlite",
		},
		&cli.StringFlag{
			Name:    "kv-dsn",
			Usage:   "The DSN to connect to for the sqlite and mysql dialects",
			EnvVars: []string{"EDGE_KV_DSN", "KV_DSN"},
			Value:   "file:edge.sqlite",
		},
		&cli.StringFlag{
			Name:    "s3-bucket",
			Usage:   "Bucket holding the store when --kv-dialect=s3",
			EnvVars: []string{"EDGE_S3_BUCKET", "S3_BUCKET"},
		},
		&cli.StringFlag{
			Name:    "s3-prefix",
			Usage:   "Object key prefix within the bucket",
			EnvVars: []string{"EDGE_S3_PREFIX", "S3_PREFIX"},
		},
		&cli.StringFlag{
			Name:    "s3-region",
			Usage:   "Region of the bucket",
			EnvVars: []string{"EDGE_S3_REGION", "AWS_REGION"},
			Value:   "us-east-1",
		},
		&cli.StringFlag{
			Name:    "s3-endpoint",
			Usage:   "Custom S3-compatible endpoint, such as R2 or MinIO",
			EnvVars: []string{"EDGE_S3_ENDPOINT", "S3_ENDPOINT"},
		},
	}
}

// openDatabase connects to the store selected by the kv flags.
func openDatabase(ctx context.Context, c *cli.Context) (db.Database, error) {
	switch dialect := c.String("kv-dialect"); dialect {
	case dialectS3:
		if c.String("s3-bucket") == "" {
			return nil, fmt.Errorf("--s3-bucket is required for the s3 dialect")
		}
		return db.NewS3(db.S3Options{
			Bucket:   c.String("s3-bucket"),
			Prefix:   c.String("s3-prefix"),
			Region:   c.String("s3-region"),
			Endpoint: c.String("s3-endpoint"),
		})
	default:
		return db.New(ctx, dialect, c.String("kv-dsn"), &gorm.Config{
			Logger: db.NewLogger(c.String("log-level")),
		})
	}
}
