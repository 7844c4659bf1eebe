package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pos/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewS3ExportArchive_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ExportArchive(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3ExportArchive(&config.StorageConfig{AccessKey: "k", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		_, err := NewS3ExportArchive(&config.StorageConfig{Bucket: "b", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		_, err := NewS3ExportArchive(&config.StorageConfig{Bucket: "b", AccessKey: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("defaults presign expiration", func(t *testing.T) {
		archive, err := NewS3ExportArchive(&config.StorageConfig{Bucket: "reports", AccessKey: "k", SecretKey: "s"},
			WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, "reports", archive.Bucket())
		assert.Equal(t, 15*time.Minute, archive.presignExpiration)
	})

	t.Run("option overrides expiration", func(t *testing.T) {
		archive, err := NewS3ExportArchive(&config.StorageConfig{Bucket: "reports", AccessKey: "k", SecretKey: "s"},
			WithPresignExpiration(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, archive.presignExpiration)
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		useSSL bool
		want   string
	}{
		{"", false, "http://localhost:9000"},
		{"minio:9000", false, "http://minio:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"https://s3.example.com", false, "https://s3.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeEndpoint(tt.in, tt.useSSL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExportKey(t *testing.T) {
	at := time.Date(2026, 1, 20, 23, 0, 0, 0, time.UTC)

	key, err := ExportKey(at, "sales-report-2026-01-01-to-2026-01-20.csv")
	require.NoError(t, err)
	assert.Equal(t, "exports/2026/01/20/sales-report-2026-01-01-to-2026-01-20.csv", key)

	_, err = ExportKey(at, "../etc/passwd")
	assert.Error(t, err)
	_, err = ExportKey(at, "  ")
	assert.Error(t, err)
}

// fakeS3 accepts PutObject requests and records them.
type fakeS3 struct {
	mu   sync.Mutex
	puts map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	f.mu.Lock()
	f.puts[r.URL.Path] = r.Header.Get("Content-Type")
	f.mu.Unlock()
	w.Header().Set("ETag", `"etag"`)
	w.WriteHeader(http.StatusOK)
}

func TestS3ExportArchive_Archive(t *testing.T) {
	fake := &fakeS3{puts: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	archive, err := NewS3ExportArchive(&config.StorageConfig{
		Bucket:       "reports",
		AccessKey:    "k",
		SecretKey:    "s",
		Endpoint:     srv.URL,
		UsePathStyle: true,
	})
	require.NoError(t, err)
	archive.now = func() time.Time { return time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC) }

	out, err := archive.Archive(context.Background(), "sales-report-a-to-b.csv", []byte("data"), "text/csv")
	require.NoError(t, err)

	assert.Equal(t, "exports/2026/01/20/sales-report-a-to-b.csv", out.Key)
	assert.True(t, strings.HasPrefix(out.URL, srv.URL+"/reports/exports/2026/01/20/"))
	assert.Contains(t, out.URL, "X-Amz-Signature=")
	assert.Equal(t, time.Date(2026, 1, 20, 12, 15, 0, 0, time.UTC), out.ExpiresAt)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "text/csv", fake.puts["/reports/exports/2026/01/20/sales-report-a-to-b.csv"])
}
