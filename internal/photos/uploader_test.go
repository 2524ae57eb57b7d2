package photos

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestPhotoValidate(t *testing.T) {
	tests := []struct {
		name  string
		photo Photo
		want  error
	}{
		{"jpeg", Photo{ContentType: "image/jpeg", Size: 1024}, nil},
		{"webp", Photo{ContentType: "image/webp", Size: MaxPhotoBytes}, nil},
		{"pdf", Photo{ContentType: "application/pdf", Size: 10}, ErrUnsupportedType},
		{"too large", Photo{ContentType: "image/png", Size: MaxPhotoBytes + 1}, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.photo.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDisabledUploader(t *testing.T) {
	u := NewDisabledUploader()
	_, err := u.Upload(context.Background(), &Photo{ContentType: "image/jpeg", Size: 3, Content: strings.NewReader("abc")})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestNewCloudinaryUploader_RequiresURL(t *testing.T) {
	if _, err := NewCloudinaryUploader("", "stylo"); err == nil {
		t.Fatal("expected error for empty url")
	}
}
