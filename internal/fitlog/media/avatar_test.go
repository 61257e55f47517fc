package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestThumbnail(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		wantW int
		wantH int
	}{
		{"small image untouched", 120, 80, 120, 80},
		{"exact bound untouched", 300, 300, 300, 300},
		{"wide image cropped to square", 900, 600, 300, 300},
		{"tall image cropped to square", 400, 1000, 300, 300},
		{"one side over is cropped, never upscaled", 320, 200, 200, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Thumbnail(image.NewNRGBA(image.Rect(0, 0, tt.w, tt.h)))
			require.Equal(t, tt.wantW, out.Bounds().Dx())
			require.Equal(t, tt.wantH, out.Bounds().Dy())
		})
	}
}

func TestSaveAvatar(t *testing.T) {
	root := t.TempDir()
	s := &Store{Root: root}

	rel, err := s.SaveAvatar("user1", bytes.NewReader(encodePNG(t, 800, 500)))
	require.NoError(t, err)
	require.Equal(t, "profile_pics/user1.jpeg", rel)

	img, err := imaging.Open(filepath.Join(root, "profile_pics", "user1.jpeg"))
	require.NoError(t, err)
	require.Equal(t, 300, img.Bounds().Dx())
	require.Equal(t, 300, img.Bounds().Dy())

	entries, err := os.ReadDir(filepath.Join(root, "profile_pics"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary upload files are cleaned up")
}

func TestSaveAvatarRejects(t *testing.T) {
	s := &Store{Root: t.TempDir()}

	_, err := s.SaveAvatar("u", bytes.NewReader([]byte("definitely not an image")))
	require.ErrorIs(t, err, ErrUndecodable)

	big := bytes.Repeat([]byte{0}, MaxUploadBytes+1)
	_, err = s.SaveAvatar("u", bytes.NewReader(big))
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestDecodeAvatar(t *testing.T) {
	img, err := DecodeAvatar(bytes.NewReader(encodePNG(t, 100, 700)))
	require.NoError(t, err)
	require.Equal(t, 100, img.Bounds().Dx())
	require.Equal(t, 100, img.Bounds().Dy())

	_, err = DecodeAvatar(bytes.NewReader([]byte("not an image")))
	require.ErrorIs(t, err, ErrUndecodable)
}

func TestEnsureDefault(t *testing.T) {
	s := &Store{Root: t.TempDir()}
	require.NoError(t, s.EnsureDefault("default.jpeg"))
	img, err := imaging.Open(filepath.Join(s.Root, "default.jpeg"))
	require.NoError(t, err)
	require.Equal(t, AvatarSize, img.Bounds().Dx())
	require.NoError(t, s.EnsureDefault("default.jpeg"))
}
