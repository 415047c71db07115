package models

// Photo belongs to exactly one memory. Its bytes live either in the local
// store (LocalBlob) or behind three public URLs in the object store
// (RemoteDerivatives).
type Photo struct {
	ID           string
	MemoryID     string
	MimeType     string
	CreatedAt    int64
	DisplayOrder int
	Width        int
	Height       int
	FileSize     int64

	Payload Payload
}

// Payload is the sealed variant of where a photo's bytes live.
// Consumers switch on the concrete type:
//
//	switch p := photo.Payload.(type) {
//	case models.LocalBlob:
//	case models.RemoteDerivatives:
//	}
type Payload interface {
	isPayload()
}

// LocalBlob holds the photo bytes directly.
type LocalBlob struct {
	Data []byte
}

func (LocalBlob) isPayload() {}

// RemoteDerivatives points at the three stored renditions of a photo.
type RemoteDerivatives struct {
	OriginalURL  string
	PreviewURL   string
	ThumbnailURL string
	Paths        StoragePaths
}

func (RemoteDerivatives) isPayload() {}

// StoragePaths are the object-store keys of the three renditions.
type StoragePaths struct {
	Original  string
	Preview   string
	Thumbnail string
}

// Keys lists the non-empty keys.
func (p StoragePaths) Keys() []string {
	keys := make([]string, 0, 3)
	for _, k := range []string{p.Original, p.Preview, p.Thumbnail} {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Derivatives is a source image with its generated renditions.
type Derivatives struct {
	Original  []byte
	Preview   []byte
	Thumbnail []byte
	MimeType  string
	Width     int
	Height    int
}

// NewPhoto is what the lifecycle manager hands to a backend for one file:
// the id and display order assigned at submission plus the derivatives.
type NewPhoto struct {
	ID           string
	MemoryID     string
	DisplayOrder int
	CreatedAt    int64
	Derivatives  *Derivatives
}
