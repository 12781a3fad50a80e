package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/ksicht/ksicht-api/internal/blob"
)

// fakeBucket answers the handful of S3 calls the store issues.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]string
	puts    []string
}

func (f *fakeBucket) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	switch req.Method {
	case http.MethodPut:
		_, _ = io.Copy(io.Discard, req.Body)
		f.objects[key] = "stored"
		f.puts = append(f.puts, key)
		return response(http.StatusOK, "", http.Header{"ETag": {"\"etag\""}}), nil
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			return response(http.StatusNotFound, "<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>", http.Header{"Content-Type": {"application/xml"}}), nil
		}
		return response(http.StatusOK, body, http.Header{"Content-Type": {"application/pdf"}}), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return response(http.StatusNoContent, "", http.Header{}), nil
	}
	return response(http.StatusNotImplemented, "", http.Header{}), nil
}

func response(status int, body string, header http.Header) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: header}
}

func newFakeStore(t *testing.T) (*Store, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{objects: map[string]string{}}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("eu-central-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)

	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.HTTPClient = &http.Client{Transport: bucket}
		o.UsePathStyle = true
		o.RetryMaxAttempts = 1
	})
	return NewWithClient(client, "ksicht"), bucket
}

func TestStorePutGetDelete(t *testing.T) {
	store, bucket := newFakeStore(t)
	ctx := context.Background()

	info, err := store.Put(ctx, "rocniky/reseni/1.pdf", bytes.NewReader([]byte("%PDF-1.4")), blob.PutOptions{ContentType: "application/pdf"})
	require.NoError(t, err)
	require.Equal(t, int64(8), info.Size)
	require.Equal(t, []string{"rocniky/reseni/1.pdf"}, bucket.puts)

	got, reader, err := store.Get(ctx, "rocniky/reseni/1.pdf")
	require.NoError(t, err)
	defer reader.Close()
	require.Equal(t, "application/pdf", got.ContentType)

	existed, err := store.Delete(ctx, "rocniky/reseni/1.pdf")
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, blob.DriverS3, store.Driver())
}

func TestStoreGetMissingMapsToNotFound(t *testing.T) {
	store, _ := newFakeStore(t)
	_, _, err := store.Get(context.Background(), "missing.pdf")
	require.ErrorIs(t, err, blob.ErrNotFound)
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}
