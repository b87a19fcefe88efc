// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

type fakeAPI struct {
	buckets map[string]bool
	objects map[string][]byte
	types   map[string]string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{buckets: map[string]bool{}, objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeAPI) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeAPI) MakeBucket(_ context.Context, bucket, _ string) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeAPI) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, contentType string) error {
	if !f.buckets[bucket] {
		return errors.New("no such bucket")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeAPI) GetObject(_ context.Context, _, key string) (*Object, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &Object{ReadCloser: io.NopCloser(bytes.NewReader(data)), Size: int64(len(data)), ContentType: f.types[key]}, nil
}

func (f *fakeAPI) RemoveObject(_ context.Context, _, key string) error {
	delete(f.objects, key)
	delete(f.types, key)
	return nil
}

func TestArchiveDelete(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.buckets["vault"] = true
	a := &Archive{api: api, bucket: "vault"}

	url, err := a.Put(context.Background(), "user-1", "report.pdf", strings.NewReader("%PDF"), 4)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := a.Delete(context.Background(), "user-2", url); !errors.Is(err, ErrForeignObject) {
		t.Fatalf("expected ErrForeignObject, got %v", err)
	}

	if err := a.Delete(context.Background(), "user-1", "s3://other/users/user-1/x.pdf"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}

	if err := a.Delete(context.Background(), "user-1", url); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if len(api.objects) != 0 {
		t.Fatalf("expected the object to be removed, got %v", api.objects)
	}

	var disabled *Archive
	if err := disabled.Delete(context.Background(), "user-1", url); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	a := &Archive{api: api, bucket: "vault"}

	if err := a.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("EnsureBucket failed: %v", err)
	}

	if !api.buckets["vault"] {
		t.Fatal("expected bucket to be created")
	}

	pdf := []byte("%PDF-1.7 report")

	url, err := a.Put(context.Background(), "user-1", "../March labs.pdf", bytes.NewReader(pdf), int64(len(pdf)))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if !strings.HasPrefix(url, "s3://vault/users/user-1/") || !strings.HasSuffix(url, "-March_labs.pdf") {
		t.Fatalf("unexpected url %q", url)
	}

	obj, err := a.Get(context.Background(), "user-1", url)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer obj.Close()

	got, _ := io.ReadAll(obj)
	if !bytes.Equal(got, pdf) || obj.ContentType != "application/pdf" {
		t.Fatalf("unexpected object %q (%s)", got, obj.ContentType)
	}

	if _, err := a.Get(context.Background(), "user-2", url); !errors.Is(err, ErrForeignObject) {
		t.Fatalf("expected ErrForeignObject, got %v", err)
	}

	if _, err := a.Get(context.Background(), "user-1", "s3://other/users/user-1/x.pdf"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}

	if _, err := a.Get(context.Background(), "user-1", "s3://vault/users/user-1/../user-2/x.pdf"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL for traversal, got %v", err)
	}
}

func TestNilArchiveIsDisabled(t *testing.T) {
	t.Parallel()

	var a *Archive

	if _, err := a.Put(context.Background(), "u", "x.pdf", strings.NewReader("x"), 1); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}

	if _, err := a.Get(context.Background(), "u", "s3://vault/users/u/x.pdf"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}

	if _, err := New(Config{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled without endpoint, got %v", err)
	}
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"report.pdf":         "report.pdf",
		`C:\scans\labs.pdf`:  "labs.pdf",
		"../../etc/passwd":   "passwd",
		"":                   "report.pdf",
		"...":                "report.pdf",
		"blood test (1).pdf": "blood_test_1_.pdf",
	}

	for in, want := range tests {
		if got := sanitizeName(in); got != want {
			t.Fatalf("sanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
