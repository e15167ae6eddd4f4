// Package registry fetches raw registry exports from local files, HTTP(S)
// endpoints, S3-compatible object stores, or the bundled sample.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aristath/carbonscreen/pkg/embedded"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ErrSourceUnavailable wraps every failure to obtain source bytes
var ErrSourceUnavailable = errors.New("registry source unavailable")

const (
	// UserAgent identifies the screener to registry servers
	UserAgent = "carbonscreen/1.0 (research use)"
	// DefaultTimeout bounds a single HTTP download
	DefaultTimeout = 30 * time.Second
	// MaxBodyBytes caps a downloaded export
	MaxBodyBytes = 256 << 20
)

// Kind classifies a source string
type Kind string

const (
	KindSample Kind = "sample"
	KindHTTP   Kind = "http"
	KindS3     Kind = "s3"
	KindFile   Kind = "file"
)

// Classify resolves the fetcher kind of a source string
func Classify(source string) Kind {
	s := strings.TrimSpace(source)
	lower := strings.ToLower(s)
	switch {
	case s == "" || lower == embedded.SampleRegistryName:
		return KindSample
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return KindHTTP
	case strings.HasPrefix(lower, "s3://"):
		return KindS3
	}
	return KindFile
}

// Remote reports whether downloads of this kind are worth caching
func (k Kind) Remote() bool {
	return k == KindHTTP || k == KindS3
}

// Fetcher returns the raw bytes of a registry export
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// objectDownloader is satisfied by manager.Downloader
type objectDownloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error)
}

// Client dispatches a source string to the matching fetcher
type Client struct {
	http  *http.Client
	s3cfg S3Config
	log   zerolog.Logger

	s3Once     sync.Once
	downloader objectDownloader
	s3Err      error
}

// NewClient creates a registry client. A zero timeout uses DefaultTimeout.
func NewClient(timeout time.Duration, s3cfg S3Config, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:  &http.Client{Timeout: timeout},
		s3cfg: s3cfg,
		log:   log.With().Str("client", "registry").Logger(),
	}
}

// Fetch returns the bytes of the export named by source
func (c *Client) Fetch(ctx context.Context, source string) ([]byte, error) {
	kind := Classify(source)
	c.log.Debug().Str("source", source).Str("kind", string(kind)).Msg("Fetching registry export")

	var (
		data []byte
		err  error
	)
	switch kind {
	case KindSample:
		data = append([]byte(nil), embedded.SampleRegistry...)
	case KindHTTP:
		data, err = c.fetchHTTP(ctx, source)
	case KindS3:
		data, err = c.fetchS3(ctx, source)
	default:
		data, err = c.fetchFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, source, err)
	}

	c.log.Info().
		Str("source", source).
		Int("bytes", len(data)).
		Msg("Fetched registry export")
	return data, nil
}

func (c *Client) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/csv, */*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) > MaxBodyBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", MaxBodyBytes)
	}
	return data, nil
}

func (c *Client) fetchFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return os.ReadFile(path)
}
