// Package media stores user uploads under the media root.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/disintegration/imaging"
)

const (
	// MaxUploadBytes caps avatar uploads.
	MaxUploadBytes = 5 << 20

	// AvatarSize is the bound both sides of a stored avatar fit within.
	AvatarSize = 300

	maxPixels  = 40_000_000
	avatarsDir = "profile_pics"
)

var (
	ErrTooLarge    = errors.New("media: upload too large")
	ErrUnsupported = errors.New("media: unsupported image format")
	ErrUndecodable = errors.New("media: image could not be decoded")
)

var (
	allowedFormats   = map[string]bool{"jpeg": true, "png": true, "gif": true}
	placeholderColor = color.NRGBA{R: 0xd8, G: 0xdc, B: 0xe3, A: 0xff}
)

type Store struct {
	Root string
}

// AvatarPath is the media-root relative path of userID's avatar.
func AvatarPath(userID string) string {
	return path.Join(avatarsDir, userID+".jpeg")
}

// SaveAvatar decodes r with DecodeAvatar and writes the result with
// WriteAvatar. It returns the path relative to the media root.
func (s *Store) SaveAvatar(userID string, r io.Reader) (string, error) {
	img, err := DecodeAvatar(r)
	if err != nil {
		return "", err
	}
	return s.WriteAvatar(userID, img)
}

// DecodeAvatar reads an upload, checks its size and format, and returns it
// cropped and scaled. Nothing is written.
//
// Images wider or taller than AvatarSize are cropped to the top-left square
// of side min(w, h) and then scaled to fit AvatarSize x AvatarSize.
func DecodeAvatar(r io.Reader) (image.Image, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrUndecodable
	}
	if !allowedFormats[format] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, format)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, ErrTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrUndecodable
	}
	return Thumbnail(img), nil
}

// WriteAvatar stores img as userID's avatar JPEG, replacing any previous one
// atomically.
func (s *Store) WriteAvatar(userID string, img image.Image) (string, error) {
	rel := AvatarPath(userID)
	dst := filepath.Join(s.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if err := imaging.Encode(tmp, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return rel, nil
}

// Thumbnail applies the avatar crop-and-fit rule.
func Thumbnail(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= AvatarSize && h <= AvatarSize {
		return img
	}
	side := min(w, h)
	square := imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y, b.Min.X+side, b.Min.Y+side))
	return imaging.Fit(square, AvatarSize, AvatarSize, imaging.Lanczos)
}

// EnsureDefault writes a plain placeholder avatar when the media root has none.
func (s *Store) EnsureDefault(name string) error {
	dst := filepath.Join(s.Root, name)
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	if err := os.MkdirAll(s.Root, 0750); err != nil {
		return err
	}
	img := imaging.New(AvatarSize, AvatarSize, placeholderColor)
	return imaging.Save(img, dst, imaging.JPEGQuality(90))
}
