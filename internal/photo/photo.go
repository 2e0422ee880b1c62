package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"

	_ "image/png"
)

// maxEdge bounds the longest side of a stored photo. Uploads within the
// bound are written byte-for-byte; anything larger is downscaled and
// re-encoded as JPEG before hitting disk.
const maxEdge = 2048

var ErrUnsupportedImage = errors.New("photo must be png, jpeg, or webp")

// Store writes visit photos into a flat directory. Files are write-once and
// never read back by the application.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

// Save stores imageBytes under "{owner}_{YYYYMMDDHHMMSS}.jpg" derived from
// capturedAt and returns the generated filename. An empty upload is not an
// error: the returned filename is "" and nothing is written, which is how a
// visit row marks "no photo".
func (s *Store) Save(owner string, imageBytes []byte, capturedAt time.Time) (string, error) {
	if len(imageBytes) == 0 {
		return "", nil
	}

	mime := http.DetectContentType(imageBytes)
	switch mime {
	case "image/png", "image/jpeg", "image/webp":
	default:
		return "", ErrUnsupportedImage
	}

	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		decoded, decodeErr := webp.Decode(bytes.NewReader(imageBytes))
		if decodeErr != nil {
			return "", fmt.Errorf("decode photo: %w", err)
		}
		img = decoded
	}

	if oversized(img) || mime != "image/jpeg" {
		imageBytes, err = encodeScaledJPEG(img)
		if err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.jpg", sanitizeOwner(owner), capturedAt.Format("20060102150405"))
	if err := os.WriteFile(filepath.Join(s.dir, filename), imageBytes, 0o644); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	return filename, nil
}

func oversized(img image.Image) bool {
	bounds := img.Bounds()
	return bounds.Dx() > maxEdge || bounds.Dy() > maxEdge
}

func encodeScaledJPEG(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, errors.New("invalid image dimensions")
	}

	if width > maxEdge || height > maxEdge {
		scale := float64(maxEdge) / float64(width)
		if height > width {
			scale = float64(maxEdge) / float64(height)
		}
		dst := image.NewRGBA(image.Rect(0, 0, int(float64(width)*scale), int(float64(height)*scale)))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
		img = dst
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode photo: %w", err)
	}
	return out.Bytes(), nil
}

// sanitizeOwner keeps photo filenames filesystem-safe without losing the
// username prefix convention.
func sanitizeOwner(owner string) string {
	owner = strings.TrimSpace(owner)
	var b strings.Builder
	for _, r := range owner {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
