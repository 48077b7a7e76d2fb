package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	// failures is the number of calls failing with a transient error first.
	failures int
	calls    int
	inputs   []*s3.GetObjectInput
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls++
	f.inputs = append(f.inputs, params)
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	data, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func newTestS3(client S3API, maxRetries int, maxBytes int64) *S3Storage {
	s := NewS3StorageWithClient(client, S3Config{MaxRetries: maxRetries, MaxBytes: maxBytes})
	s.backoff = 0
	return s
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		location string
		bucket   string
		key      string
		wantErr  bool
	}{
		{"s3://bucket/key.avro", "bucket", "key.avro", false},
		{"s3://bucket/dir/sub/key.avro", "bucket", "dir/sub/key.avro", false},
		{"s3://bucket", "", "", true},
		{"s3://bucket/", "", "", true},
		{"s3:///key", "", "", true},
		{"/tmp/file.avro", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			bucket, key, err := ParseS3URL(tt.location)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestFileStorage_Fetch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.avro")
	require.NoError(t, os.WriteFile(path, []byte("Obj\x01data"), 0600))

	t.Run("reads file", func(t *testing.T) {
		obj, err := NewFileStorage(0).Fetch(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, "users.avro", obj.Name)
		assert.Equal(t, []byte("Obj\x01data"), obj.Data)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewFileStorage(0).Fetch(context.Background(), filepath.Join(dir, "nope.avro"))
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("size limit", func(t *testing.T) {
		_, err := NewFileStorage(4).Fetch(context.Background(), path)
		assert.ErrorIs(t, err, ErrObjectTooLarge)

		obj, err := NewFileStorage(8).Fetch(context.Background(), path)
		require.NoError(t, err)
		assert.Len(t, obj.Data, 8)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewFileStorage(0).Fetch(ctx, path)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestS3Storage_Fetch(t *testing.T) {
	t.Run("reads object", func(t *testing.T) {
		client := &fakeS3{objects: map[string][]byte{"b/in/users.avro": []byte("payload")}}
		obj, err := newTestS3(client, 0, 0).Fetch(context.Background(), "s3://b/in/users.avro")
		require.NoError(t, err)
		assert.Equal(t, "users.avro", obj.Name)
		assert.Equal(t, []byte("payload"), obj.Data)
		assert.Equal(t, "b", aws.ToString(client.inputs[0].Bucket))
		assert.Equal(t, "in/users.avro", aws.ToString(client.inputs[0].Key))
	})

	t.Run("not found is not retried", func(t *testing.T) {
		client := &fakeS3{}
		_, err := newTestS3(client, 3, 0).Fetch(context.Background(), "s3://b/missing.avro")
		assert.ErrorIs(t, err, ErrObjectNotFound)
		assert.Equal(t, 1, client.calls)
	})

	t.Run("transient errors are retried", func(t *testing.T) {
		client := &fakeS3{objects: map[string][]byte{"b/k.avro": []byte("x")}, failures: 2}
		obj, err := newTestS3(client, 3, 0).Fetch(context.Background(), "s3://b/k.avro")
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), obj.Data)
		assert.Equal(t, 3, client.calls)
	})

	t.Run("retries exhausted", func(t *testing.T) {
		client := &fakeS3{failures: 10}
		_, err := newTestS3(client, 2, 0).Fetch(context.Background(), "s3://b/k.avro")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
		assert.Equal(t, 3, client.calls)
	})

	t.Run("too large", func(t *testing.T) {
		client := &fakeS3{objects: map[string][]byte{"b/k.avro": bytes.Repeat([]byte{1}, 100)}}
		_, err := newTestS3(client, 3, 10).Fetch(context.Background(), "s3://b/k.avro")
		assert.ErrorIs(t, err, ErrObjectTooLarge)
		assert.Equal(t, 1, client.calls)
	})

	t.Run("invalid url", func(t *testing.T) {
		client := &fakeS3{}
		_, err := newTestS3(client, 0, 0).Fetch(context.Background(), "s3://bucket-only")
		assert.ErrorIs(t, err, ErrInvalidURL)
		assert.Zero(t, client.calls)
	})
}

func TestDefaultStorage_Fetch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "local.avro")
	require.NoError(t, os.WriteFile(path, []byte("local"), 0600))

	client := &fakeS3{objects: map[string][]byte{"b/remote.avro": []byte("remote")}}
	store := NewDefaultStorage(newTestS3(client, 0, 0), 0)

	obj, err := store.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("local"), obj.Data)

	obj, err = store.Fetch(context.Background(), "s3://b/remote.avro")
	require.NoError(t, err)
	assert.Equal(t, []byte("remote"), obj.Data)

	_, err = NewDefaultStorage(nil, 0).Fetch(context.Background(), "s3://b/remote.avro")
	assert.ErrorIs(t, err, ErrNoS3)
}
