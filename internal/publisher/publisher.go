// Package publisher ships finished model artifacts to object storage and
// records their location in the document store. Both sides are best-effort:
// a failure is returned as a result record, never as an abort of the
// training run that produced the artifact.
package publisher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/ntphong404/rasa-control/internal/config"
	"github.com/ntphong404/rasa-control/internal/metrics"
)

// UploadResult is the terminal outcome of one artifact upload attempt.
// Produced once per run, never mutated afterward.
type UploadResult struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename,omitempty"`
	Bucket   string `json:"bucket,omitempty"`
	ETag     string `json:"etag,omitempty"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// MetadataUpdateResult is the terminal outcome of one document-store update.
type MetadataUpdateResult struct {
	Success       bool   `json:"success"`
	MatchedCount  int64  `json:"matched_count"`
	ModifiedCount int64  `json:"modified_count,omitempty"`
	ModelName     string `json:"model_name,omitempty"`
	ModelURL      string `json:"model_url,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ObjectInfo describes one published model in the bucket.
type ObjectInfo struct {
	Filename     string    `json:"filename"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag"`
	URL          string    `json:"url"`
}

// Listing is the bucket inventory returned for the published-models query.
type Listing struct {
	Bucket       string       `json:"bucket"`
	BucketExists bool         `json:"bucket_exists"`
	Models       []ObjectInfo `json:"models"`
}

// Publisher combines the object-storage and document-store clients.
// Either side may be unconfigured; operations against a missing client
// degrade to recorded failures.
type Publisher struct {
	objects *objectStore
	records *modelRecordStore
}

func New(minioCfg config.MinioConfig, mongoCfg config.MongoConfig) *Publisher {
	p := &Publisher{}
	if minioCfg.Endpoint != "" {
		os, err := newObjectStore(minioCfg)
		if err != nil {
			slog.Warn("object storage client unavailable", "error", err)
		} else {
			p.objects = os
		}
	}
	if mongoCfg.URI != "" {
		rs, err := newModelRecordStore(mongoCfg)
		if err != nil {
			slog.Warn("document store client unavailable", "error", err)
		} else {
			p.records = rs
		}
	}
	return p
}

// Publish uploads the artifact at modelPath keyed by its base name.
// Single attempt, no retry; the caller decides what a failure means.
func (p *Publisher) Publish(ctx context.Context, modelPath string) UploadResult {
	filename := filepath.Base(modelPath)
	if p.objects == nil {
		metrics.IncModelUpload(false)
		return UploadResult{Success: false, Filename: filename, Error: "object storage not configured"}
	}
	res := p.objects.upload(ctx, modelPath, filename)
	metrics.IncModelUpload(res.Success)
	if res.Success {
		slog.Info("model uploaded", "filename", res.Filename, "bucket", res.Bucket)
	} else {
		slog.Error("model upload failed", "filename", filename, "error", res.Error)
	}
	return res
}

// RecordModelURL updates the existing document-store record matched by
// modelName, setting its URL field and an update timestamp. It never creates
// a new record; zero matches is reported as a failure naming the model.
func (p *Publisher) RecordModelURL(ctx context.Context, modelName, modelURL string) MetadataUpdateResult {
	if p.records == nil {
		return MetadataUpdateResult{Success: false, ModelName: modelName, Error: "document store not configured"}
	}
	res := p.records.setURL(ctx, modelName, modelURL)
	if res.Success {
		slog.Info("model record updated", "model_name", modelName)
	} else {
		slog.Warn("model record update failed", "model_name", modelName, "error", res.Error)
	}
	return res
}

// ListModels returns the bucket inventory. A missing bucket is not an error.
func (p *Publisher) ListModels(ctx context.Context) (Listing, error) {
	if p.objects == nil {
		return Listing{}, errDependencyUnavailable("object storage not configured")
	}
	return p.objects.list(ctx)
}

// CheckConnections probes both backends at daemon start. Failures are logged
// only; the control plane still serves with uploads/updates degraded.
func (p *Publisher) CheckConnections(ctx context.Context) {
	if p.objects != nil {
		if err := p.objects.ping(ctx); err != nil {
			slog.Warn("object storage connection failed", "error", err)
		} else {
			slog.Info("object storage connected", "endpoint", p.objects.endpoint)
		}
	} else {
		slog.Warn("object storage not configured; model upload disabled")
	}
	if p.records != nil {
		if err := p.records.ping(ctx); err != nil {
			slog.Warn("document store connection failed", "error", err)
		} else {
			slog.Info("document store connected", "database", p.records.database)
		}
	} else {
		slog.Warn("document store not configured; model record updates disabled")
	}
}

// Close releases the document-store connection.
func (p *Publisher) Close(ctx context.Context) {
	if p.records != nil {
		p.records.close(ctx)
	}
}

type errDependencyUnavailable string

func (e errDependencyUnavailable) Error() string { return string(e) }
