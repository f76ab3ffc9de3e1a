package content

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// SquareResult reports one map image handled by SquareMaps
type SquareResult struct {
	File   string `json:"file"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Padded bool   `json:"padded"`
}

// SquareMaps pads every PNG and JPEG in dir to a square canvas, centring the
// original. Images that are already square are left alone.
func SquareMaps(dir string) ([]SquareResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var results []SquareResult
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".png" && ext != ".jpg" && ext != ".jpeg") {
			continue
		}

		result, err := PadSquare(filepath.Join(dir, entry.Name()))
		if err != nil {
			return results, err
		}
		results = append(results, *result)
	}
	return results, nil
}

// PadSquare pads a single image in place. PNGs get a transparent border;
// JPEGs, which have no alpha channel, get a black one.
func PadSquare(path string) (*SquareResult, error) {
	src, format, err := decodeImage(path)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	result := &SquareResult{File: filepath.Base(path), Width: b.Dx(), Height: b.Dy()}
	if b.Dx() == b.Dy() {
		logger().Info().Str("file", result.File).Msgf("already square (%dx%d)", b.Dx(), b.Dy())
		return result, nil
	}

	dst := padToSquare(src, format == "png")
	if err := encodeImage(path, format, dst); err != nil {
		return nil, err
	}

	result.Padded = true
	logger().Info().Str("file", result.File).Msgf("padded to %dx%d", dst.Bounds().Dx(), dst.Bounds().Dy())
	return result, nil
}

// padToSquare draws src centred on a max(w, h) square canvas
func padToSquare(src image.Image, transparent bool) *image.RGBA {
	b := src.Bounds()
	size := max(b.Dx(), b.Dy())

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	if !transparent {
		draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	}

	offset := image.Pt((size-b.Dx())/2, (size-b.Dy())/2)
	draw.Draw(dst, image.Rectangle{Min: offset, Max: offset.Add(b.Size())}, src, b.Min, draw.Over)
	return dst
}

func decodeImage(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return img, format, nil
}

// encodeImage writes img through a temp file so a failed encode never
// truncates the original.
func encodeImage(path, format string, img image.Image) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	switch format {
	case "png":
		err = png.Encode(f, img)
	case "jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}
