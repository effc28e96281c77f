package db

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"
)

type S3Options struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

// s3Database keeps every key as an object under prefix in a single bucket.
type s3Database struct {
	bucket string
	prefix string
	Svc    s3iface.S3API
}

func NewS3(opts S3Options) (Database, error) {
	cfg := &aws.Config{
		MaxRetries: aws.Int(3),
	}
	if opts.Region != "" {
		cfg.Region = aws.String(opts.Region)
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	s, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}

	logrus.Infof("using s3 bucket %s (prefix %q) as key-value store", opts.Bucket, opts.Prefix)
	return newS3Database(s3.New(s), opts.Bucket, opts.Prefix), nil
}

func newS3Database(svc s3iface.S3API, bucket, prefix string) *s3Database {
	return &s3Database{
		bucket: bucket,
		prefix: prefix,
		Svc:    svc,
	}
}

func (d *s3Database) objectKey(key string) string {
	return d.prefix + key
}

func (d *s3Database) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := d.Svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (d *s3Database) Put(ctx context.Context, key string, value []byte) error {
	_, err := d.Svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.objectKey(key)),
		Body:   bytes.NewReader(value),
	})
	return err
}

func (d *s3Database) Delete(ctx context.Context, key string) error {
	if _, err := d.Svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.objectKey(key)),
	}); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return err
	}

	_, err := d.Svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.objectKey(key)),
	})
	return err
}

func (d *s3Database) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
		Prefix: aws.String(d.objectKey(prefix)),
	}
	err := d.Svc.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				keys = append(keys, strings.TrimPrefix(aws.StringValue(obj.Key), d.prefix))
			}
			return true
		})
	return keys, err
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
