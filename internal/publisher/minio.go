package publisher

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ntphong404/rasa-control/internal/config"
)

// objectStore wraps the MinIO client with the narrow operations the control
// plane needs: ping, ensure-bucket, put-object, list-objects.
type objectStore struct {
	client   *minio.Client
	endpoint string
	bucket   string
	secure   bool
}

func newObjectStore(cfg config.MinioConfig) (*objectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}
	return &objectStore{
		client:   client,
		endpoint: cfg.Endpoint,
		bucket:   cfg.Bucket,
		secure:   cfg.Secure,
	}, nil
}

func (o *objectStore) ping(ctx context.Context) error {
	_, err := o.client.BucketExists(ctx, o.bucket)
	return err
}

func (o *objectStore) objectURL(name string) string {
	scheme := "http"
	if o.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, o.endpoint, o.bucket, name)
}

func (o *objectStore) upload(ctx context.Context, path, name string) UploadResult {
	exists, err := o.client.BucketExists(ctx, o.bucket)
	if err != nil {
		return UploadResult{Success: false, Filename: name, Error: err.Error()}
	}
	if !exists {
		if err := o.client.MakeBucket(ctx, o.bucket, minio.MakeBucketOptions{}); err != nil {
			return UploadResult{Success: false, Filename: name, Error: err.Error()}
		}
	}
	info, err := o.client.FPutObject(ctx, o.bucket, name, path, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return UploadResult{Success: false, Filename: name, Error: err.Error()}
	}
	return UploadResult{
		Success:  true,
		Filename: name,
		Bucket:   o.bucket,
		ETag:     info.ETag,
		URL:      o.objectURL(name),
	}
}

func (o *objectStore) list(ctx context.Context) (Listing, error) {
	exists, err := o.client.BucketExists(ctx, o.bucket)
	if err != nil {
		return Listing{}, err
	}
	out := Listing{Bucket: o.bucket, BucketExists: exists, Models: []ObjectInfo{}}
	if !exists {
		return out, nil
	}
	for obj := range o.client.ListObjects(ctx, o.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return Listing{}, obj.Err
		}
		out.Models = append(out.Models, ObjectInfo{
			Filename:     obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ETag:         obj.ETag,
			URL:          o.objectURL(obj.Key),
		})
	}
	return out, nil
}
