package gcs

import (
	"context"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

func TestNewValidatesInput(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, Config{Bucket: "b"}); err == nil {
		t.Fatal("expected error for nil client")
	}

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer func() { _ = client.Close() }()

	if _, err := New(client, Config{}); err == nil {
		t.Fatal("expected error for empty bucket")
	}

	u, err := New(client, Config{Bucket: "exports"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := u.Upload(context.Background(), "  / ", "text/csv", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for blank object name")
	}
}
