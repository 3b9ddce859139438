// Package preview generates the small gallery thumbnails uploaded next to
// each original.
package preview

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	_ "image/gif"
	_ "image/png"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/common"
	"github.com/dmitrijs2005/pixelvault/internal/filex"
)

const (
	previewSize   = 128
	PreviewFormat = "jpg"
)

// Generator produces a preview for one resolved local media file and writes
// it into the configured temp directory.
type Generator interface {
	Generate(ctx context.Context, srcPath string) (*models.Preview, error)
}

// ImageResizer is a stdlib nearest-neighbour thumbnailer. Videos and formats
// the image package cannot decode get no preview (an empty preview id is
// legal on the catalog side).
type ImageResizer struct {
	tmpDir string
}

func NewImageResizer(tmpDir string) *ImageResizer {
	return &ImageResizer{tmpDir: tmpDir}
}

func (g *ImageResizer) Generate(ctx context.Context, srcPath string) (*models.Preview, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrAborted, err)
	}

	f, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrIO, srcPath, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", srcPath, err)
	}

	thumb := resizeCover(src, previewSize, previewSize)

	outPath := filex.TempPath(g.tmpDir, PreviewFormat)
	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", common.ErrIO, outPath, err)
	}
	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: 85}); err != nil {
		out.Close()
		return nil, fmt.Errorf("%w: encode %s: %v", common.ErrIO, outPath, err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("%w: close %s: %v", common.ErrIO, outPath, err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", common.ErrIO, outPath, err)
	}

	return &models.Preview{
		Path:      outPath,
		Width:     previewSize,
		Height:    previewSize,
		SizeBytes: info.Size(),
		Format:    PreviewFormat,
	}, nil
}

// resizeCover scales src to fill w x h, cropping the overflow (center crop).
func resizeCover(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW == 0 || srcH == 0 {
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}

	// scale preserving aspect ratio so the shorter side fills the target
	scale := float64(w) / float64(srcW)
	if s := float64(h) / float64(srcH); s > scale {
		scale = s
	}
	scaledW := int(float64(srcW) * scale)
	scaledH := int(float64(srcH) * scale)
	offX := (scaledW - w) / 2
	offY := (scaledH - h) / 2

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			srcX := b.Min.X + int(float64(x+offX)/scale)
			srcY := b.Min.Y + int(float64(y+offY)/scale)
			if srcX >= b.Max.X {
				srcX = b.Max.X - 1
			}
			if srcY >= b.Max.Y {
				srcY = b.Max.Y - 1
			}
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
	return dst
}
