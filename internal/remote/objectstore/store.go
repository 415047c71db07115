// Package objectstore keeps photo renditions under string keys and maps
// each key to a public URL. Implementations: S3 (aws-sdk-go-v2), MinIO
// (minio-go) and an in-process MemoryStore.
package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	sc "github.com/dmitrijs2005/moments/internal/config"
)

// Store is safe for concurrent use.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns common.ErrorNotFound for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete succeeds for a missing key.
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Rendition names used as the last key segment.
const (
	RenditionOriginal  = "original"
	RenditionPreview   = "preview"
	RenditionThumbnail = "thumbnail"
)

// PhotoKey builds "<owner>/<memory>/<photo>/<rendition>.<ext>".
func PhotoKey(ownerID, memoryID, photoID, rendition, mimeType string) string {
	return fmt.Sprintf("%s/%s/%s/%s.%s", ownerID, memoryID, photoID, rendition, ExtForMime(mimeType))
}

// ExtForMime maps common image types to a file extension.
func ExtForMime(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/heic":
		return "heic"
	default:
		return "bin"
	}
}

func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

// New builds the store selected by cfg.ObjectStore.
func New(ctx context.Context, cfg *sc.Config) (Store, error) {
	switch cfg.ObjectStore {
	case sc.ObjectStoreS3:
		return NewS3Store(ctx, S3Config{
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3RootUser,
			SecretKey:     cfg.S3RootPassword,
			BaseEndpoint:  cfg.S3BaseEndpoint,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
	case sc.ObjectStoreMinio:
		endpoint, secure := minioEndpoint(cfg.S3BaseEndpoint)
		return NewMinioStore(ctx, MinioConfig{
			Endpoint:        endpoint,
			AccessKeyID:     cfg.S3RootUser,
			SecretAccessKey: cfg.S3RootPassword,
			UseSSL:          secure || cfg.S3UseSSL,
			BucketName:      cfg.S3Bucket,
			Region:          cfg.S3Region,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
	case sc.ObjectStoreMemory:
		return NewMemoryStore(cfg.S3PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown object store %q", cfg.ObjectStore)
	}
}

// minioEndpoint turns "http://host:9000/" into "host:9000".
func minioEndpoint(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/"), false
	}
	return u.Host, u.Scheme == "https"
}
