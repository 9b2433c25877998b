package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

type fakeObjectClient struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeObjectClient() *fakeObjectClient {
	return &fakeObjectClient{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

type fakeAPIError struct {
	code string
}

func (e *fakeAPIError) Error() string                 { return e.code }
func (e *fakeAPIError) ErrorCode() string             { return e.code }
func (e *fakeAPIError) ErrorMessage() string          { return e.code }
func (e *fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

func (f *fakeObjectClient) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Key] = data
	if params.ContentType != nil {
		f.types[*params.Key] = *params.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectClient) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, &fakeAPIError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjectClient) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if _, ok := f.objects[*params.Key]; !ok {
		return nil, &fakeAPIError{code: "NoSuchKey"}
	}
	delete(f.objects, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeObjectClient) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeObjectClient) CreateBucket(context.Context, *s3.CreateBucketInput, ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	return &s3.CreateBucketOutput{}, nil
}

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (string, error) {
	return "https://signed.example/" + *params.Key, nil
}

func newTestGateway(client *fakeObjectClient) *Gateway {
	return newGatewayWithClient(client, fakePresigner{}, "lifelog-videos", time.Hour, nil)
}

func TestPutAndFetchRoundTrip(t *testing.T) {
	client := newFakeObjectClient()
	gw := newTestGateway(client)
	ctx := context.Background()

	payload := []byte("video bytes")
	if err := gw.Put(ctx, "entries/1/abc.mp4", bytes.NewReader(payload), int64(len(payload)), "video/mp4"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if client.types["entries/1/abc.mp4"] != "video/mp4" {
		t.Fatalf("content type not recorded: %v", client.types)
	}

	local, err := gw.FetchToLocal(ctx, "entries/1/abc.mp4", t.TempDir())
	if err != nil {
		t.Fatalf("FetchToLocal failed: %v", err)
	}
	if filepath.Ext(local) != ".mp4" {
		t.Fatalf("expected extension preserved, got %s", local)
	}
	data, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf("read local file: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("round trip mismatch: %q", data)
	}
}

func TestPutRejectsEmptyKey(t *testing.T) {
	gw := newTestGateway(newFakeObjectClient())
	err := gw.Put(context.Background(), "  ", strings.NewReader("x"), 1, "")
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestFetchMissingKeyIsNotFound(t *testing.T) {
	gw := newTestGateway(newFakeObjectClient())
	_, err := gw.FetchToLocal(context.Background(), "entries/1/missing.mp4", t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing key")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}

func TestDeleteToleratesAbsentKey(t *testing.T) {
	client := newFakeObjectClient()
	gw := newTestGateway(client)
	ctx := context.Background()

	if err := gw.Put(ctx, "thumbnails/1/abc.jpg", strings.NewReader("jpg"), 3, "image/jpeg"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	removed, err := gw.Delete(ctx, "thumbnails/1/abc.jpg")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !removed {
		t.Fatal("expected existing blob to be removed")
	}

	removed, err = gw.Delete(ctx, "thumbnails/1/abc.jpg")
	if err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if removed {
		t.Fatal("absent blob should report false without error")
	}

	removed, err = gw.Delete(ctx, "")
	if err != nil || removed {
		t.Fatalf("empty key should be a no-op, got removed=%v err=%v", removed, err)
	}
}

func TestPutErrorIsTransient(t *testing.T) {
	client := newFakeObjectClient()
	client.putErr = errors.New("connection refused")
	gw := newTestGateway(client)

	err := gw.Put(context.Background(), "entries/1/a.mp4", strings.NewReader("x"), 1, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "transient") {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

func TestPresignGet(t *testing.T) {
	gw := newTestGateway(newFakeObjectClient())
	url, err := gw.PresignGet(context.Background(), "entries/1/abc.mp4")
	if err != nil {
		t.Fatalf("PresignGet failed: %v", err)
	}
	if url != "https://signed.example/entries/1/abc.mp4" {
		t.Fatalf("unexpected url: %s", url)
	}
}

func TestKeyHelpers(t *testing.T) {
	key := NewEntryKey(42, "Clip.MOV")
	if !strings.HasPrefix(key, "entries/42/") || !strings.HasSuffix(key, ".mov") {
		t.Fatalf("unexpected entry key: %s", key)
	}

	owner, err := OwnerFromKey(key)
	if err != nil {
		t.Fatalf("OwnerFromKey failed: %v", err)
	}
	if owner != 42 {
		t.Fatalf("expected owner 42, got %d", owner)
	}

	thumb := ThumbnailKeyFor("entries/42/deadbeef.mp4")
	if thumb != "thumbnails/42/deadbeef.jpg" {
		t.Fatalf("unexpected thumbnail key: %s", thumb)
	}

	if _, err := OwnerFromKey("loose.mp4"); err == nil {
		t.Fatal("expected error for key without owner segment")
	}
}
