package artifact

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	body   string
	ctype  string
}

func newFakeS3(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body), ctype: r.Header.Get("Content-Type")})
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func TestS3StorePutAndDeleteUsePathStyle(t *testing.T) {
	srv, requests := newFakeS3(t)
	store, err := NewS3Store(context.Background(), S3Config{
		Bucket: "contratos", Region: "us-east-1", Endpoint: srv.URL,
		AccessKey: "minioadmin", SecretKey: "minioadmin",
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "contracts/u1/a.txt", []byte("CONTRATO"), contentType))
	require.NoError(t, store.Delete(ctx, "contracts/u1/a.txt"))

	got := requests()
	require.Len(t, got, 2)
	assert.Equal(t, http.MethodPut, got[0].method)
	assert.Equal(t, "/contratos/contracts/u1/a.txt", got[0].path)
	assert.Contains(t, got[0].body, "CONTRATO")
	assert.Equal(t, contentType, got[0].ctype)
	assert.Equal(t, http.MethodDelete, got[1].method)
}

func TestS3StorePresignGet(t *testing.T) {
	store, err := NewS3Store(context.Background(), S3Config{
		Bucket: "contratos", Endpoint: "http://127.0.0.1:9000",
		AccessKey: "minioadmin", SecretKey: "minioadmin",
	})
	require.NoError(t, err)

	url, err := store.PresignGet(context.Background(), "contracts/u1/a.txt", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://127.0.0.1:9000/contratos/contracts/u1/a.txt?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=300")
}

func TestNewS3StoreAppliesRegionAndRequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{})
	require.Error(t, err)

	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	var region string
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		var lo config.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				return aws.Config{}, err
			}
		}
		region = lo.Region
		return aws.Config{Region: lo.Region}, nil
	}
	_, err = NewS3Store(context.Background(), S3Config{Bucket: "b", Region: "sa-east-1"})
	require.NoError(t, err)
	assert.Equal(t, "sa-east-1", region)
}
