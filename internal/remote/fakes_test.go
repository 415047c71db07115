package remote

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/dmitrijs2005/moments/internal/dbx"
	"github.com/dmitrijs2005/moments/internal/models"
	rmodels "github.com/dmitrijs2005/moments/internal/remote/models"
	"github.com/dmitrijs2005/moments/internal/remote/repositories/memories"
	"github.com/dmitrijs2005/moments/internal/remote/repositories/photos"
	"github.com/dmitrijs2005/moments/internal/remote/repositories/users"
)

// -------- in-memory fakes shared by the service tests --------

type fakeState struct {
	mu       sync.Mutex
	users    map[string]string // email -> id
	memories map[string]models.Memory
	owners   map[string]string // memory id -> user id
	photos   map[string]models.Photo

	insertPhotoErr error
	getAllErr      error
}

func newFakeState() *fakeState {
	return &fakeState{
		users:    map[string]string{},
		memories: map[string]models.Memory{},
		owners:   map[string]string{},
		photos:   map[string]models.Photo{},
	}
}

type fakeRepoMgr struct{ st *fakeState }

func (f *fakeRepoMgr) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoMgr) Users(dbx.DBTX) users.Repository              { return &fakeUsers{f.st} }
func (f *fakeRepoMgr) Memories(dbx.DBTX) memories.Repository        { return &fakeMemories{f.st} }
func (f *fakeRepoMgr) Photos(dbx.DBTX) photos.Repository            { return &fakePhotos{f.st} }

type fakeUsers struct{ st *fakeState }

func (r *fakeUsers) Create(ctx context.Context, email string) (*rmodels.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	id := "user-" + email
	r.st.users[email] = id
	return &rmodels.User{ID: id, Email: email}, nil
}

func (r *fakeUsers) GetByEmail(ctx context.Context, email string) (*rmodels.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	id, ok := r.st.users[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rmodels.User{ID: id, Email: email}, nil
}

type fakeMemories struct{ st *fakeState }

func (r *fakeMemories) Insert(ctx context.Context, userID string, m *models.Memory) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.memories[m.ID] = m.Clone()
	r.st.owners[m.ID] = userID
	return nil
}

func (r *fakeMemories) Update(ctx context.Context, m *models.Memory) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cur, ok := r.st.memories[m.ID]
	if !ok {
		return common.ErrorNotFound
	}
	cur.Date, cur.Note, cur.UpdatedAt = m.Date, m.Note, m.UpdatedAt
	r.st.memories[m.ID] = cur
	return nil
}

func (r *fakeMemories) DeleteByID(ctx context.Context, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.memories[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.st.memories, id)
	return nil
}

func (r *fakeMemories) GetByID(ctx context.Context, id string) (*models.Memory, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	m, ok := r.st.memories[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := m.Clone()
	return &c, nil
}

func (r *fakeMemories) GetByDate(ctx context.Context, userID, date string) (*models.Memory, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for id, m := range r.st.memories {
		if m.Date == date && r.st.owners[id] == userID {
			c := m.Clone()
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeMemories) GetAll(ctx context.Context, userID string) ([]models.Memory, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.getAllErr != nil {
		return nil, r.st.getAllErr
	}
	out := make([]models.Memory, 0)
	for id, m := range r.st.memories {
		if r.st.owners[id] == userID {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (r *fakeMemories) AdjustPhotoCount(ctx context.Context, id string, delta int) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	m, ok := r.st.memories[id]
	if !ok {
		return common.ErrorNotFound
	}
	m.PhotoCount = max(m.PhotoCount+delta, 0)
	r.st.memories[id] = m
	return nil
}

type fakePhotos struct{ st *fakeState }

func (r *fakePhotos) Insert(ctx context.Context, userID string, p *models.Photo) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.insertPhotoErr != nil {
		return r.st.insertPhotoErr
	}
	r.st.photos[p.ID] = *p
	return nil
}

func (r *fakePhotos) DeleteByID(ctx context.Context, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.photos[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.st.photos, id)
	return nil
}

func (r *fakePhotos) DeleteByMemoryID(ctx context.Context, memoryID string) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var n int64
	for id, p := range r.st.photos {
		if p.MemoryID == memoryID {
			delete(r.st.photos, id)
			n++
		}
	}
	return n, nil
}

func (r *fakePhotos) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	p, ok := r.st.photos[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

func (r *fakePhotos) GetByMemoryID(ctx context.Context, memoryID string) ([]models.Photo, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := make([]models.Photo, 0)
	for _, p := range r.st.photos {
		if p.MemoryID == memoryID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (r *fakePhotos) IDsByUser(ctx context.Context, userID string) (map[string][]string, error) {
	r.st.mu.Lock()
	mids := make([]string, 0)
	for id := range r.st.memories {
		if r.st.owners[id] == userID {
			mids = append(mids, id)
		}
	}
	r.st.mu.Unlock()

	out := map[string][]string{}
	for _, mid := range mids {
		ps, _ := r.GetByMemoryID(ctx, mid)
		for _, p := range ps {
			out[mid] = append(out[mid], p.ID)
		}
	}
	return out, nil
}
