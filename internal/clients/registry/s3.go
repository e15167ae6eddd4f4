package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures access to S3-compatible stores (AWS, R2, MinIO).
// Empty fields fall back to the default AWS credential chain.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// ParseS3URI splits s3://bucket/key
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest := uri
	if len(rest) >= 5 && strings.EqualFold(rest[:5], "s3://") {
		rest = rest[5:]
	} else {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}

	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri needs a bucket and key: %s", uri)
	}
	return bucket, key, nil
}

func (c *Client) fetchS3(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	downloader, err := c.s3Downloader(ctx)
	if err != nil {
		return nil, err
	}

	buf := manager.NewWriteAtBuffer(nil)
	n, err := downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	c.log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int64("bytes", n).
		Msg("Downloaded object")
	return buf.Bytes(), nil
}

// s3Downloader builds the SDK client on first use so runs that never touch
// S3 do not resolve AWS configuration.
func (c *Client) s3Downloader(ctx context.Context) (objectDownloader, error) {
	c.s3Once.Do(func() {
		if c.downloader != nil {
			return
		}

		var opts []func(*awsconfig.LoadOptions) error
		if c.s3cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(c.s3cfg.Region))
		}
		if c.s3cfg.AccessKeyID != "" && c.s3cfg.SecretAccessKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(c.s3cfg.AccessKeyID, c.s3cfg.SecretAccessKey, ""),
			))
		}

		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			c.s3Err = fmt.Errorf("failed to load AWS config: %w", err)
			return
		}

		client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			if c.s3cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(c.s3cfg.Endpoint)
			}
			o.UsePathStyle = c.s3cfg.UsePathStyle
		})
		c.downloader = manager.NewDownloader(client)
	})
	return c.downloader, c.s3Err
}
