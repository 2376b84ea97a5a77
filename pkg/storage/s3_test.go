package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// apiError implements smithy.APIError for test assertions.
type apiError struct {
	code string
	msg  string
}

func (e *apiError) Error() string                 { return e.msg }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.msg }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

var (
	errNoSuchKey = &apiError{code: "NoSuchKey", msg: "no such key"}
	errNotFound  = &apiError{code: "NotFound", msg: "not found"}
)

// mockS3 is an in-memory bucket.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte

	getErr error
	putErr error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte)}
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, errNoSuchKey
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[*in.Key]; !ok {
		return nil, errNotFound
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3PutAndRead(t *testing.T) {
	mock := newMockS3()
	store := NewS3(mock, "dumps", "/vsound/")
	ctx := context.Background()

	pcm := bytes.Repeat([]byte{1, 2, 3, 4}, 480)
	n, err := Put(ctx, store, "dev/playback.pcm", bytes.NewReader(pcm))
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len(pcm)) {
		t.Errorf("n=%d", n)
	}

	mock.mu.Lock()
	_, ok := mock.objects["vsound/dev/playback.pcm"]
	mock.mu.Unlock()
	if !ok {
		t.Fatal("object not stored under trimmed prefix")
	}

	r, err := store.Read(ctx, "dev/playback.pcm")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if !bytes.Equal(got, pcm) {
		t.Error("read back differs")
	}

	if ok, err := store.Exists(ctx, "dev/playback.pcm"); !ok || err != nil {
		t.Errorf("Exists=%v, %v", ok, err)
	}
	if err := store.Delete(ctx, "dev/playback.pcm"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := store.Exists(ctx, "dev/playback.pcm"); ok {
		t.Error("still exists after Delete")
	}
}

func TestS3ReadNotExist(t *testing.T) {
	store := NewS3(newMockS3(), "dumps", "")
	_, err := store.Read(context.Background(), "missing")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err=%v, want os.ErrNotExist", err)
	}
}

func TestS3ReadOtherError(t *testing.T) {
	mock := newMockS3()
	mock.getErr = &apiError{code: "AccessDenied", msg: "denied"}
	store := NewS3(mock, "dumps", "")
	_, err := store.Read(context.Background(), "x")
	if err == nil || errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err=%v", err)
	}
}

func TestS3UploadError(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("upload failed")
	store := NewS3(mock, "dumps", "")

	_, err := Put(context.Background(), store, "obj", strings.NewReader("data"))
	if err == nil || !strings.Contains(err.Error(), "upload failed") {
		t.Fatalf("err=%v", err)
	}
}

func TestIsS3NotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"NoSuchKey", errNoSuchKey, true},
		{"NotFound", errNotFound, true},
		{"other api error", &apiError{code: "AccessDenied", msg: "denied"}, false},
		{"plain error", errors.New("timeout"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isS3NotFound(tt.err); got != tt.want {
				t.Fatalf("isS3NotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNewS3Client(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	c := NewS3Client(S3Config{Endpoint: "http://127.0.0.1:9000", PathStyle: true})
	o := c.Options()
	if o.Region != "us-east-1" && o.Region != os.Getenv("AWS_REGION") {
		t.Errorf("region=%q", o.Region)
	}
	if o.BaseEndpoint == nil || *o.BaseEndpoint != "http://127.0.0.1:9000" {
		t.Errorf("endpoint=%v", o.BaseEndpoint)
	}
	creds, err := o.Credentials.Retrieve(context.Background())
	if err != nil || creds.AccessKeyID != "AKID" {
		t.Errorf("creds=%+v, %v", creds, err)
	}
}
