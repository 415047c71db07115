package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"

	_ "image/gif"
	_ "image/png"

	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/dmitrijs2005/moments/internal/logging"
	"github.com/dmitrijs2005/moments/internal/models"
	"github.com/nfnt/resize"
	"github.com/sourcegraph/conc"
	_ "golang.org/x/image/webp"
)

// Generator produces preview and thumbnail renditions.
type Generator struct {
	preview   Options
	thumbnail Options
	logger    logging.Logger
}

func NewGenerator(preview, thumbnail Options, logger logging.Logger) *Generator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Generator{preview: preview, thumbnail: thumbnail, logger: logger}
}

// NewDefaultGenerator uses DefaultPreviewOptions and DefaultThumbnailOptions.
func NewDefaultGenerator(logger logging.Logger) *Generator {
	return NewGenerator(DefaultPreviewOptions, DefaultThumbnailOptions, logger)
}

// Generate decodes original once and renders both derivatives in parallel.
func (g *Generator) Generate(ctx context.Context, original []byte) (*models.Derivatives, error) {
	if len(original) == 0 {
		return nil, fmt.Errorf("%w: empty image", common.ErrorValidation)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d := &models.Derivatives{
		Original: original,
		MimeType: http.DetectContentType(original),
	}

	img, format, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		g.logger.Warn(ctx, "image decode failed, using original for derivatives", "error", err)
		d.Preview = original
		d.Thumbnail = original
		return d, nil
	}
	d.Width, d.Height = img.Bounds().Dx(), img.Bounds().Dy()

	var (
		wg                   conc.WaitGroup
		preview, thumbnail   []byte
		previewErr, thumbErr error
	)

	wg.Go(func() {
		if g.preview.PassThroughBelow > 0 && len(original) < g.preview.PassThroughBelow {
			preview = original
			return
		}
		preview, previewErr = fit(img, g.preview)
	})
	wg.Go(func() {
		thumbnail, thumbErr = fit(img, g.thumbnail)
	})

	if r := wg.WaitAndRecover(); r != nil {
		g.logger.Error(ctx, "derivative rendering panicked", "format", format, "panic", r.String())
	}

	if previewErr != nil || preview == nil {
		g.logger.Warn(ctx, "preview failed, falling back to original", "format", format, "error", previewErr)
		preview = original
	}
	if thumbErr != nil || thumbnail == nil {
		g.logger.Warn(ctx, "thumbnail failed, falling back to preview", "format", format, "error", thumbErr)
		thumbnail = preview
	}

	d.Preview = preview
	d.Thumbnail = thumbnail
	return d, nil
}

// fit scales img into opts.MaxDimension and re-encodes it, lowering quality
// and then halving dimensions until the result meets opts.MaxBytes or the
// floor is reached.
func fit(img image.Image, opts Options) ([]byte, error) {
	if opts.MaxDimension <= 0 || opts.Quality <= 0 {
		return nil, errors.New("invalid rendition options")
	}

	scaled := img
	b := img.Bounds()
	if b.Dx() > opts.MaxDimension || b.Dy() > opts.MaxDimension {
		scaled = resize.Thumbnail(uint(opts.MaxDimension), uint(opts.MaxDimension), img, resize.Lanczos3)
	}

	quality := opts.Quality
	for {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
		if opts.MaxBytes <= 0 || buf.Len() <= opts.MaxBytes {
			return buf.Bytes(), nil
		}

		if quality > minQuality {
			quality = max(quality-qualityStep, minQuality)
			continue
		}

		sb := scaled.Bounds()
		if sb.Dx()/2 < minDimension || sb.Dy()/2 < minDimension {
			return buf.Bytes(), nil
		}
		scaled = resize.Resize(uint(sb.Dx()/2), uint(sb.Dy()/2), scaled, resize.Lanczos3)
		quality = opts.Quality
	}
}
