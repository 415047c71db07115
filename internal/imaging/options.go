package imaging

// Options bound one rendition.
type Options struct {
	// MaxDimension caps the longer side in pixels.
	MaxDimension int
	// MaxBytes is the size budget of the encoded rendition.
	MaxBytes int
	// Quality is the starting JPEG quality (1-100).
	Quality int
	// PassThroughBelow returns inputs smaller than this many bytes unchanged.
	// Zero disables the fast path.
	PassThroughBelow int
}

var (
	DefaultPreviewOptions = Options{
		MaxDimension:     1920,
		MaxBytes:         300 * 1024,
		Quality:          85,
		PassThroughBelow: 200 * 1024,
	}

	DefaultThumbnailOptions = Options{
		MaxDimension: 200,
		MaxBytes:     20 * 1024,
		Quality:      60,
	}
)

const (
	qualityStep  = 10
	minQuality   = 10
	minDimension = 16
)
