// Package transfer reads and writes the whole local collection as one JSON
// document with every photo inlined as a data URI.
package transfer

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/dmitrijs2005/moments/internal/models"
)

const FormatVersion = "1.0"

type Document struct {
	Version    string         `json:"version"`
	ExportedAt int64          `json:"exportedAt"`
	Memories   []MemoryRecord `json:"memories"`
	Photos     []PhotoRecord  `json:"photos"`
}

type MemoryRecord struct {
	ID        string   `json:"id"`
	Date      string   `json:"date"`
	Note      string   `json:"note"`
	PhotoIDs  []string `json:"photoIds"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}

type PhotoRecord struct {
	ID           string `json:"id"`
	MemoryID     string `json:"memoryId"`
	MimeType     string `json:"mimeType"`
	CreatedAt    int64  `json:"createdAt"`
	DisplayOrder int    `json:"displayOrder"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Blob         string `json:"blob"`
}

func fromMemory(m models.Memory) MemoryRecord {
	ids := m.PhotoIDs
	if ids == nil {
		ids = []string{}
	}
	return MemoryRecord{ID: m.ID, Date: m.Date, Note: m.Note, PhotoIDs: ids, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (r MemoryRecord) toMemory() models.Memory {
	ids := r.PhotoIDs
	if ids == nil {
		ids = []string{}
	}
	return models.Memory{ID: r.ID, Date: r.Date, Note: r.Note, PhotoIDs: ids, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func fromPhoto(p models.Photo) (PhotoRecord, error) {
	blob, ok := p.Payload.(models.LocalBlob)
	if !ok {
		return PhotoRecord{}, fmt.Errorf("%w: photo %s has no local bytes", common.ErrUnsupported, p.ID)
	}
	return PhotoRecord{
		ID:           p.ID,
		MemoryID:     p.MemoryID,
		MimeType:     p.MimeType,
		CreatedAt:    p.CreatedAt,
		DisplayOrder: p.DisplayOrder,
		Width:        p.Width,
		Height:       p.Height,
		Blob:         EncodeDataURI(p.MimeType, blob.Data),
	}, nil
}

func (r PhotoRecord) toPhoto() (models.Photo, error) {
	mime, data, err := DecodeDataURI(r.Blob)
	if err != nil {
		return models.Photo{}, fmt.Errorf("photo %s: %w", r.ID, err)
	}
	if r.MimeType == "" {
		r.MimeType = mime
	}
	return models.Photo{
		ID:           r.ID,
		MemoryID:     r.MemoryID,
		MimeType:     r.MimeType,
		CreatedAt:    r.CreatedAt,
		DisplayOrder: r.DisplayOrder,
		Width:        r.Width,
		Height:       r.Height,
		FileSize:     int64(len(data)),
		Payload:      models.LocalBlob{Data: data},
	}, nil
}

// EncodeDataURI renders data as data:<mime>;base64,<payload>.
func EncodeDataURI(mime string, data []byte) string {
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI is the inverse of EncodeDataURI. Failures wrap
// common.ErrDecode.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: not a data uri", common.ErrDecode)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: data uri without payload", common.ErrDecode)
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: data uri is not base64", common.ErrDecode)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", common.ErrDecode, err)
	}
	return mime, data, nil
}
