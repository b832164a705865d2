package publisher

import (
	"context"
	"strings"
	"testing"

	"github.com/ntphong404/rasa-control/internal/config"
)

// Without configured backends the publisher must degrade to recorded
// failures, never abort the run that called it.

func TestPublishWithoutObjectStore(t *testing.T) {
	p := New(config.MinioConfig{}, config.MongoConfig{})
	res := p.Publish(context.Background(), "/tmp/model-x.tar.gz")
	if res.Success {
		t.Fatal("publish must fail without object storage")
	}
	if res.Filename != "model-x.tar.gz" {
		t.Fatalf("filename should still be derived: %+v", res)
	}
	if !strings.Contains(res.Error, "not configured") {
		t.Fatalf("unexpected error: %q", res.Error)
	}
}

func TestRecordModelURLWithoutDocumentStore(t *testing.T) {
	p := New(config.MinioConfig{}, config.MongoConfig{})
	res := p.RecordModelURL(context.Background(), "v1", "model-x.tar.gz")
	if res.Success {
		t.Fatal("record must fail without document store")
	}
	if res.ModelName != "v1" {
		t.Fatalf("model name should be echoed: %+v", res)
	}
}

func TestListModelsWithoutObjectStore(t *testing.T) {
	p := New(config.MinioConfig{}, config.MongoConfig{})
	if _, err := p.ListModels(context.Background()); err == nil {
		t.Fatal("expected error without object storage")
	}
}

func TestCheckConnectionsWithoutBackends(t *testing.T) {
	p := New(config.MinioConfig{}, config.MongoConfig{})
	// log-only, must not panic
	p.CheckConnections(context.Background())
	p.Close(context.Background())
}
