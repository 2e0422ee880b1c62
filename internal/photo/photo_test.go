package photo

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"
)

var filenamePattern = regexp.MustCompile(`^alice_\d{14}\.jpg$`)

func testImageBytes(t *testing.T, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 10), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestSaveEmptyUploadYieldsEmptyFilename(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	filename, err := s.Save("alice", nil, time.Now())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filename != "" {
		t.Fatalf("expected empty filename, got %q", filename)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files written, found %d", len(entries))
	}
}

func TestSaveJPEGWritesVerbatimBytes(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	raw := testImageBytes(t, func(buf *bytes.Buffer, img image.Image) error {
		return jpeg.Encode(buf, img, nil)
	})

	capturedAt := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	filename, err := s.Save("alice", raw, capturedAt)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filename != "alice_20240101091500.jpg" {
		t.Fatalf("unexpected filename %q", filename)
	}
	if !filenamePattern.MatchString(filename) {
		t.Fatalf("filename %q does not match the naming convention", filename)
	}

	stored, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("read stored photo: %v", err)
	}
	if !bytes.Equal(stored, raw) {
		t.Fatalf("stored bytes differ from upload")
	}
}

func TestSavePNGIsReencodedAsJPEG(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	raw := testImageBytes(t, func(buf *bytes.Buffer, img image.Image) error {
		return png.Encode(buf, img)
	})

	filename, err := s.Save("alice", raw, time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	stored, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("read stored photo: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(stored)); err != nil {
		t.Fatalf("stored photo is not a decodable jpeg: %v", err)
	}
}

func TestSaveRejectsNonImagePayload(t *testing.T) {
	s := NewStore(t.TempDir())
	if _, err := s.Save("alice", []byte("definitely not an image"), time.Now()); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
}

func TestSaveSanitizesOwnerName(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	raw := testImageBytes(t, func(buf *bytes.Buffer, img image.Image) error {
		return jpeg.Encode(buf, img, nil)
	})

	filename, err := s.Save("al/ic e", raw, time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filename != "al-ic-e_20240101091500.jpg" {
		t.Fatalf("unexpected sanitized filename %q", filename)
	}
	if _, err := os.Stat(filepath.Join(dir, filename)); err != nil {
		t.Fatalf("stored photo missing: %v", err)
	}
}
