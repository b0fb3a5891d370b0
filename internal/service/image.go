package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/logging"
)

const maxImageSize = 10 << 20

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// ImageStore persists recipe images and returns the URL they are served from.
type ImageStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Image is a decoded recipe image upload.
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// DecodeImage parses a "data:image/<type>;base64,<payload>" URI. The declared
// type must match what the payload actually contains.
func DecodeImage(dataURI string) (*Image, error) {
	header, payload, ok := strings.Cut(dataURI, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, newError(ErrValidation, "Image must be a base64 encoded data URI.")
	}
	declared := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, newError(ErrValidation, "Image must be a base64 encoded data URI.")
	}
	if len(data) == 0 {
		return nil, newError(ErrValidation, "Image is empty.")
	}
	if len(data) > maxImageSize {
		return nil, newError(ErrValidation, "Image is too large.")
	}

	detected := http.DetectContentType(data)
	ext, supported := imageExtensions[detected]
	if !supported || (declared != detected && !(declared == "image/jpg" && detected == "image/jpeg")) {
		return nil, newError(ErrValidation, "Unsupported image type.")
	}

	return &Image{Data: data, ContentType: detected, Extension: ext}, nil
}

// imageKey places images under the author's prefix.
func imageKey(authorID uuid.UUID, ext string) string {
	return path.Join("recipes", authorID.String(), uuid.New().String()+"."+ext)
}

// S3ImageStore uploads images to a public-read S3 bucket.
type S3ImageStore struct {
	s3Config *config.S3Config
}

func NewS3ImageStore(s3Config *config.S3Config) *S3ImageStore {
	return &S3ImageStore{s3Config: s3Config}
}

func (s *S3ImageStore) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	publicURL := s.s3Config.PublicURL(key)
	logging.Ctx(ctx).Debug().Str("url", publicURL).Msg("uploaded image to S3")
	return publicURL, nil
}

func (s *S3ImageStore) Delete(ctx context.Context, url string) error {
	key := strings.TrimPrefix(url, s.s3Config.PublicURL(""))
	if key == url {
		return nil
	}
	_, err := s.s3Config.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.s3Config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// LocalImageStore writes images below root and serves them from baseURL.
type LocalImageStore struct {
	root    string
	baseURL string
}

func NewLocalImageStore(root, baseURL string) *LocalImageStore {
	return &LocalImageStore{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *LocalImageStore) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalImageStore) Delete(ctx context.Context, url string) error {
	key := strings.TrimPrefix(url, s.baseURL+"/")
	if key == url || strings.Contains(key, "..") {
		return nil
	}
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
