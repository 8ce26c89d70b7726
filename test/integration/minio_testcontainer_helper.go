package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sandeepkv93/deepscan-backend/internal/service"
)

const (
	minioImage    = "docker.io/minio/minio:RELEASE.2025-09-07T16-13-09Z"
	minioRootUser = "minioadmin"
	minioRootPass = "minioadmin"
)

// mediaBucketEnv is a throwaway MinIO with the media store pointed at a
// fresh bucket, plus a raw client for asserting on what landed there.
type mediaBucketEnv struct {
	bucket string
	store  *service.MinIOMediaStore
	raw    *minio.Client
}

func newMinIOIntegrationEnv(t *testing.T) *mediaBucketEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("minio container tests are skipped in -short mode")
	}
	ctx := context.Background()
	image := minioImage
	if v := os.Getenv("MINIO_TEST_IMAGE"); v != "" {
		image = v
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			Env:          map[string]string{"MINIO_ROOT_USER": minioRootUser, "MINIO_ROOT_PASSWORD": minioRootPass},
			ExposedPorts: []string{"9000/tcp"},
			Cmd:          []string{"server", "/data", "--address", ":9000"},
			WaitingFor: wait.ForHTTP("/minio/health/ready").
				WithPort("9000/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start minio container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	endpoint, err := c.PortEndpoint(ctx, "9000/tcp", "")
	if err != nil {
		t.Fatalf("minio endpoint: %v", err)
	}

	env := &mediaBucketEnv{bucket: fmt.Sprintf("media-it-%d", time.Now().UnixNano())}
	env.store, err = service.NewMinIOMediaStore(service.MinIOMediaConfig{
		Endpoint:  endpoint,
		AccessKey: minioRootUser,
		SecretKey: minioRootPass,
		Bucket:    env.bucket,
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("media store: %v", err)
	}
	env.raw, err = minio.New(endpoint, &minio.Options{Creds: credentials.NewStaticV4(minioRootUser, minioRootPass, "")})
	if err != nil {
		t.Fatalf("raw minio client: %v", err)
	}
	return env
}

func (e *mediaBucketEnv) stat(key string) (minio.ObjectInfo, error) {
	return e.raw.StatObject(context.Background(), e.bucket, key, minio.StatObjectOptions{})
}

func (e *mediaBucketEnv) mustStatObject(t *testing.T, key string) minio.ObjectInfo {
	t.Helper()
	info, err := e.stat(key)
	if err != nil {
		t.Fatalf("stat %q: %v", key, err)
	}
	return info
}

func (e *mediaBucketEnv) mustObjectExists(t *testing.T, key string) bool {
	t.Helper()
	_, err := e.stat(key)
	switch {
	case err == nil:
		return true
	case isMissing(err):
		return false
	}
	t.Fatalf("stat %q: %v", key, err)
	return false
}

// countObjects treats a bucket that was never created as empty.
func (e *mediaBucketEnv) countObjects(t *testing.T) int {
	t.Helper()
	n := 0
	for obj := range e.raw.ListObjects(context.Background(), e.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			if isMissing(obj.Err) {
				return 0
			}
			t.Fatalf("list objects: %v", obj.Err)
		}
		n++
	}
	return n
}

func isMissing(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return true
	}
	return false
}
