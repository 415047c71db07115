package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/dmitrijs2005/moments/internal/logging"
	"github.com/dmitrijs2005/moments/internal/models"
	"github.com/dmitrijs2005/moments/internal/timex"
	"github.com/tidwall/gjson"
)

// Store is the part of the local store the codec needs.
type Store interface {
	Snapshot(ctx context.Context) ([]models.Memory, []models.Photo, error)
	ReplaceAll(ctx context.Context, ms []models.Memory, ps []models.Photo) error
}

type Codec struct {
	store  Store
	logger logging.Logger
	now    func() int64
}

func NewCodec(store Store, logger logging.Logger) *Codec {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Codec{store: store, logger: logger, now: timex.NowMillis}
}

// Build reads one consistent snapshot of the store into a Document.
func (c *Codec) Build(ctx context.Context) (*Document, error) {
	ms, ps, err := c.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Version:    FormatVersion,
		ExportedAt: c.now(),
		Memories:   make([]MemoryRecord, 0, len(ms)),
		Photos:     make([]PhotoRecord, 0, len(ps)),
	}
	for _, m := range ms {
		doc.Memories = append(doc.Memories, fromMemory(m))
	}
	for _, p := range ps {
		rec, err := fromPhoto(p)
		if err != nil {
			return nil, err
		}
		doc.Photos = append(doc.Photos, rec)
	}
	return doc, nil
}

// Export writes the collection to w as indented JSON.
func (c *Codec) Export(ctx context.Context, w io.Writer) error {
	doc, err := c.Build(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	c.logger.Info(ctx, "collection exported", "memories", len(doc.Memories), "photos", len(doc.Photos))
	return nil
}

// Import replaces the whole collection with the document read from r. The
// document is decoded completely before the store is touched; any problem
// with it is reported as common.ErrDecode and leaves the store unchanged.
func (c *Codec) Import(ctx context.Context, r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrDecode, err)
	}

	ms, ps, err := Decode(raw)
	if err != nil {
		return err
	}

	if err := c.store.ReplaceAll(ctx, ms, ps); err != nil {
		return err
	}
	c.logger.Info(ctx, "collection imported", "memories", len(ms), "photos", len(ps))
	return nil
}

// Decode checks the shape of raw and converts it to store rows.
func Decode(raw []byte) ([]models.Memory, []models.Photo, error) {
	if !gjson.ValidBytes(raw) {
		return nil, nil, fmt.Errorf("%w: document is not valid json", common.ErrDecode)
	}
	fields := gjson.GetManyBytes(raw, "version", "memories", "photos")
	if fields[0].Type != gjson.String {
		return nil, nil, fmt.Errorf("%w: version missing", common.ErrDecode)
	}
	for i, name := range []string{"memories", "photos"} {
		if !fields[i+1].IsArray() {
			return nil, nil, fmt.Errorf("%w: %s must be an array", common.ErrDecode, name)
		}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", common.ErrDecode, err)
	}

	ms := make([]models.Memory, 0, len(doc.Memories))
	positions := make(map[string]int)
	for _, rec := range doc.Memories {
		if rec.ID == "" {
			return nil, nil, fmt.Errorf("%w: memory without id", common.ErrDecode)
		}
		if _, err := models.ParseDate(rec.Date); err != nil {
			return nil, nil, fmt.Errorf("%w: memory %s: %v", common.ErrDecode, rec.ID, err)
		}
		for i, pid := range rec.PhotoIDs {
			positions[rec.ID+"/"+pid] = i
		}
		ms = append(ms, rec.toMemory())
	}

	// documents written before display order existed carry the order only
	// in photoIds
	photoFields := fields[2].Array()
	ps := make([]models.Photo, 0, len(doc.Photos))
	for i, rec := range doc.Photos {
		if rec.ID == "" || rec.MemoryID == "" {
			return nil, nil, fmt.Errorf("%w: photo without id or memory id", common.ErrDecode)
		}
		p, err := rec.toPhoto()
		if err != nil {
			return nil, nil, err
		}
		if !photoFields[i].Get("displayOrder").Exists() {
			p.DisplayOrder = positions[rec.MemoryID+"/"+rec.ID]
		}
		ps = append(ps, p)
	}
	return ms, ps, nil
}
