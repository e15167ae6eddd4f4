package registry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/carbonscreen/pkg/embedded"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient(0, S3Config{}, zerolog.Nop())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		source string
		want   Kind
	}{
		{"", KindSample},
		{"sample", KindSample},
		{"SAMPLE", KindSample},
		{"https://registry.example.org/export.csv", KindHTTP},
		{"HTTP://registry.example.org/export.csv", KindHTTP},
		{"s3://bucket/exports/verra.csv", KindS3},
		{"data/verra.csv", KindFile},
		{"/abs/path.csv", KindFile},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.source))
		})
	}

	assert.True(t, KindHTTP.Remote())
	assert.True(t, KindS3.Remote())
	assert.False(t, KindFile.Remote())
	assert.False(t, KindSample.Remote())
}

func TestFetch_Sample(t *testing.T) {
	data, err := newTestClient().Fetch(context.Background(), "sample")
	require.NoError(t, err)
	assert.Equal(t, embedded.SampleRegistry, data)

	data[0] = 'x'
	assert.NotEqual(t, byte('x'), embedded.SampleRegistry[0], "callers get a copy")
}

func TestFetch_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte("ID,Total Credits Issued\n"), 0644))

	data, err := newTestClient().Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "ID,Total Credits Issued\n", string(data))
}

func TestFetch_MissingFile(t *testing.T) {
	_, err := newTestClient().Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestFetch_Directory(t *testing.T) {
	_, err := newTestClient().Fetch(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestFetch_HTTP(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("ID,Total Credits Issued,Total Credits Retired\nVCS1,10,5\n"))
	}))
	defer server.Close()

	data, err := newTestClient().Fetch(context.Background(), server.URL+"/export.csv")
	require.NoError(t, err)
	assert.Contains(t, string(data), "VCS1,10,5")
	assert.Equal(t, UserAgent, gotAgent)
}

func TestFetch_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient().Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "503")
}

func TestFetch_HTTPCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient().Fetch(ctx, server.URL)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://exports/verra/2024.csv")
	require.NoError(t, err)
	assert.Equal(t, "exports", bucket)
	assert.Equal(t, "verra/2024.csv", key)

	for _, bad := range []string{"s3://", "s3://bucket", "s3://bucket/", "https://bucket/key"} {
		_, _, err := ParseS3URI(bad)
		assert.Error(t, err, bad)
	}
}

type fakeDownloader struct {
	body   []byte
	err    error
	bucket string
	key    string
}

func (f *fakeDownloader) Download(_ context.Context, w io.WriterAt, input *s3.GetObjectInput, _ ...func(*manager.Downloader)) (int64, error) {
	f.bucket = aws.ToString(input.Bucket)
	f.key = aws.ToString(input.Key)
	if f.err != nil {
		return 0, f.err
	}
	n, err := w.WriteAt(f.body, 0)
	return int64(n), err
}

func TestFetch_S3(t *testing.T) {
	fake := &fakeDownloader{body: []byte("ID,Total Credits Issued\n")}
	client := newTestClient()
	client.downloader = fake

	data, err := client.Fetch(context.Background(), "s3://exports/verra.csv")
	require.NoError(t, err)
	assert.Equal(t, "ID,Total Credits Issued\n", string(data))
	assert.Equal(t, "exports", fake.bucket)
	assert.Equal(t, "verra.csv", fake.key)
}

func TestFetch_S3Failure(t *testing.T) {
	client := newTestClient()
	client.downloader = &fakeDownloader{err: errors.New("access denied")}

	_, err := client.Fetch(context.Background(), "s3://exports/verra.csv")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "access denied")
}
