package photos

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

const MaxPhotoBytes = 5 << 20

var (
	ErrDisabled        = errors.New("photo storage is not configured")
	ErrUnsupportedType = errors.New("unsupported photo type")
	ErrTooLarge        = errors.New("photo exceeds the size limit")

	allowedTypes = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/webp": true,
	}
)

// Photo is an uploaded client photo as received from a multipart form.
type Photo struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

func (p *Photo) Validate() error {
	if !allowedTypes[p.ContentType] {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, p.ContentType)
	}
	if p.Size > MaxPhotoBytes {
		return ErrTooLarge
	}
	return nil
}

// Uploader stores a photo and returns a reference to persist on the client.
type Uploader interface {
	Upload(ctx context.Context, photo *Photo) (string, error)
}

type cloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryUploader(cloudinaryURL, folder string) (Uploader, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	return &cloudinaryUploader{cld: cld, folder: folder}, nil
}

func (u *cloudinaryUploader) Upload(ctx context.Context, photo *Photo) (string, error) {
	if err := photo.Validate(); err != nil {
		return "", err
	}

	result, err := u.cld.Upload.Upload(ctx, photo.Content, uploader.UploadParams{
		Folder:   u.folder,
		PublicID: uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload photo: %s", result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", errors.New("failed to upload photo: no url returned")
	}
	return result.SecureURL, nil
}

type disabledUploader struct{}

// NewDisabledUploader is used when no photo storage is configured.
func NewDisabledUploader() Uploader {
	return disabledUploader{}
}

func (disabledUploader) Upload(_ context.Context, photo *Photo) (string, error) {
	if err := photo.Validate(); err != nil {
		return "", err
	}
	return "", ErrDisabled
}
