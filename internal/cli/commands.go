package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/moments/internal/auth"
	"github.com/dmitrijs2005/moments/internal/common"
	"github.com/dmitrijs2005/moments/internal/filex"
	"github.com/dmitrijs2005/moments/internal/memories"
	"github.com/dmitrijs2005/moments/internal/migrate"
	"github.com/dmitrijs2005/moments/internal/models"
	"github.com/dmitrijs2005/moments/internal/netx"
	"github.com/dmitrijs2005/moments/internal/previews"
	"github.com/dmitrijs2005/moments/internal/timex"
)

// access returns the mode of the current session. Until passwords are set
// everything is allowed.
func (a *App) access(ctx context.Context) (auth.Mode, error) {
	configured, err := a.gate.IsConfigured(ctx)
	if err != nil {
		return "", err
	}
	if !configured {
		return auth.ModeEdit, nil
	}
	if a.token == "" {
		return "", fmt.Errorf("%w: unlock first", common.ErrorUnauthorized)
	}
	mode, err := a.gate.Mode(a.token)
	if err != nil {
		a.token = ""
		return "", fmt.Errorf("%w: session ended, unlock again", common.ErrorUnauthorized)
	}
	return mode, nil
}

func (a *App) requireEdit(ctx context.Context) error {
	mode, err := a.access(ctx)
	if err != nil {
		return err
	}
	if mode != auth.ModeEdit {
		return fmt.Errorf("%w: this command needs an edit session", common.ErrorUnauthorized)
	}
	return nil
}

// visible is the cached list as the current session may see it: all of it
// for edit sessions, the shared part for view sessions.
func (a *App) visible(ctx context.Context) ([]models.Memory, error) {
	mode, err := a.access(ctx)
	if err != nil {
		return nil, err
	}
	ms := a.manager.Memories()
	if mode == auth.ModeEdit {
		return ms, nil
	}
	return a.share.Visible(ctx, ms)
}

func (a *App) findVisible(ctx context.Context, id string) (*models.Memory, error) {
	ms, err := a.visible(ctx)
	if err != nil {
		return nil, err
	}
	for i := range ms {
		if ms[i].ID == id {
			return &ms[i], nil
		}
	}
	return nil, fmt.Errorf("memory %s: %w", id, common.ErrorNotFound)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func (a *App) List(ctx context.Context) error {
	ms, err := a.visible(ctx)
	if err != nil {
		return err
	}
	if len(ms) == 0 {
		fmt.Fprintln(a.out, "No memories yet.")
		return nil
	}
	for _, m := range ms {
		fmt.Fprintf(a.out, "%s  %s  %d photo(s)  %s\n", m.ID, m.Date, len(m.PhotoIDs), firstLine(m.Note))
	}
	if st := a.manager.State(); st.Err != "" {
		fmt.Fprintln(a.out, "Last error:", st.Err)
	}
	return nil
}

func (a *App) Show(ctx context.Context, id string) error {
	m, err := a.findVisible(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Date: %s\n", m.Date)
	if m.Note != "" {
		fmt.Fprintf(a.out, "Note:\n%s\n", m.Note)
	}
	fmt.Fprintf(a.out, "Photos: %s\n", strings.Join(m.PhotoIDs, ", "))
	fmt.Fprintf(a.out, "Updated: %s\n", time.UnixMilli(m.UpdatedAt).Format(time.DateTime))
	return nil
}

// Photos lists the photos of a memory with display handles. Handles from a
// previous listing are released first.
func (a *App) Photos(ctx context.Context, id string) error {
	if _, err := a.findVisible(ctx, id); err != nil {
		return err
	}
	ps, err := a.manager.PhotosByMemoryID(ctx, id)
	if err != nil {
		return err
	}

	if a.scope != nil {
		a.scope.Close()
	}
	a.scope = a.manager.Previews().NewScope()
	clear(a.remotes)

	for i, p := range ps {
		handle, err := a.scope.Acquire(p)
		if err != nil {
			return err
		}
		if rd, ok := p.Payload.(models.RemoteDerivatives); ok {
			a.remotes[handle] = rd.Paths.Preview
		}
		fmt.Fprintf(a.out, "#%d %s %s %dx%d %d bytes\n    %s\n", i+1, p.ID, p.MimeType, p.Width, p.Height, p.FileSize, handle)
	}
	return nil
}

// Save writes the bytes behind a handle printed by Photos to path. Remote
// photos are read through the object store when possible and downloaded by
// URL otherwise.
func (a *App) Save(ctx context.Context, handle, path string) error {
	var data []byte
	if previews.IsLocalHandle(handle) {
		b, _, ok := a.manager.Previews().Resolve(handle)
		if !ok {
			return fmt.Errorf("handle %s: %w", handle, common.ErrorNotFound)
		}
		data = b
	} else if key, ok := a.remotes[handle]; ok && a.fetcher != nil {
		b, err := a.fetcher.Fetch(ctx, key)
		if err != nil {
			return err
		}
		data = b
	} else if strings.HasPrefix(handle, "http://") || strings.HasPrefix(handle, "https://") {
		b, err := netx.Download(ctx, nil, handle)
		if err != nil {
			return err
		}
		data = b
	} else {
		return fmt.Errorf("handle %s: %w", handle, common.ErrorNotFound)
	}
	if err := filex.WriteFile(path, data); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %d bytes to %s\n", len(data), path)
	return nil
}

func readFiles(paths []string) ([]memories.File, error) {
	files := make([]memories.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, memories.File{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}

func (a *App) Add(ctx context.Context) error {
	if err := a.requireEdit(ctx); err != nil {
		return err
	}

	date, err := GetSimpleText(a.reader, "Date (YYYY-MM-DD, empty for today)", a.out)
	if err != nil {
		return err
	}
	if date == "" {
		date = timex.Today()
	}
	note, err := GetMultiline(a.reader, "Note", a.out)
	if err != nil {
		return err
	}
	paths, err := GetList(a.reader, "Photo files", a.out)
	if err != nil {
		return err
	}
	files, err := readFiles(paths)
	if err != nil {
		return err
	}

	mem, err := a.manager.Create(ctx, date, note, files)
	if mem != nil {
		fmt.Fprintf(a.out, "Saved memory %s (%s) with %d photo(s)\n", mem.ID, mem.Date, len(mem.PhotoIDs))
	}
	return err
}

func (a *App) Edit(ctx context.Context, id string) error {
	if err := a.requireEdit(ctx); err != nil {
		return err
	}
	cur, err := a.findVisible(ctx, id)
	if err != nil {
		return err
	}

	date, err := GetSimpleText(a.reader, fmt.Sprintf("Date [%s]", cur.Date), a.out)
	if err != nil {
		return err
	}
	if date == "" {
		date = cur.Date
	}
	note, err := GetMultiline(a.reader, "Note (empty keeps the current one, '-' clears it)", a.out)
	if err != nil {
		return err
	}
	switch note {
	case "":
		note = cur.Note
	case "-":
		note = ""
	}
	paths, err := GetList(a.reader, "Photo files to add", a.out)
	if err != nil {
		return err
	}
	removed, err := GetList(a.reader, "Photo ids to remove", a.out)
	if err != nil {
		return err
	}
	files, err := readFiles(paths)
	if err != nil {
		return err
	}

	mem, err := a.manager.Update(ctx, id, date, note, files, removed)
	if mem != nil {
		fmt.Fprintf(a.out, "Updated memory %s (%s), %d photo(s)\n", mem.ID, mem.Date, len(mem.PhotoIDs))
	}
	return err
}

func (a *App) Delete(ctx context.Context, id string) error {
	if err := a.requireEdit(ctx); err != nil {
		return err
	}
	cur, err := a.findVisible(ctx, id)
	if err != nil {
		return err
	}
	answer, err := GetSimpleText(a.reader, fmt.Sprintf("Delete memory of %s with %d photo(s)? (y/N)", cur.Date, len(cur.PhotoIDs)), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	if err := a.manager.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted", id)
	return nil
}

// Export writes the collection to path, or to a dated file in the export
// directory when path is empty.
func (a *App) Export(ctx context.Context, path string) error {
	if err := a.requireEdit(ctx); err != nil {
		return err
	}
	if path == "" {
		dir, err := filex.EnsureDir(a.config.ExportDir)
		if err != nil {
			return err
		}
		path = filepath.Join(dir, filex.ExportFileName(time.Now()))
	}

	var buf bytes.Buffer
	if err := a.manager.ExportAll(ctx, &buf); err != nil {
		return err
	}
	if err := filex.WriteFile(path, buf.Bytes()); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Exported to", path)
	return nil
}

func (a *App) Import(ctx context.Context, path string) error {
	if err := a.requireEdit(ctx); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := a.manager.ImportAll(ctx, f); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported %d memories\n", len(a.manager.Memories()))
	return nil
}

func (a *App) Share(ctx context.Context) error {
	if err := a.requireEdit(ctx); err != nil {
		return err
	}
	cur, err := a.share.Get(ctx)
	if err != nil {
		return err
	}

	mode, err := GetSimpleText(a.reader, fmt.Sprintf("Share mode (unlimited/range) [%s]", cur.Mode), a.out)
	if err != nil {
		return err
	}
	cfg := models.ShareConfig{Mode: cur.Mode}
	if mode != "" {
		cfg.Mode = models.ShareMode(mode)
	}
	if cfg.Mode == models.ShareRange {
		if cfg.StartDate, err = GetSimpleText(a.reader, "Start date (YYYY-MM-DD)", a.out); err != nil {
			return err
		}
		if cfg.EndDate, err = GetSimpleText(a.reader, "End date (YYYY-MM-DD)", a.out); err != nil {
			return err
		}
	}

	saved, err := a.share.Set(ctx, cfg, a.manager.Memories())
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Sharing:", describeShare(saved))
	return nil
}

func describeShare(cfg models.ShareConfig) string {
	if cfg.Mode == models.ShareRange {
		return fmt.Sprintf("%s to %s", cfg.StartDate, cfg.EndDate)
	}
	return "everything"
}

func (a *App) Shared(ctx context.Context) error {
	if _, err := a.access(ctx); err != nil {
		return err
	}
	cfg, err := a.share.Get(ctx)
	if err != nil {
		return err
	}
	ms, err := a.share.Visible(ctx, a.manager.Memories())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Sharing %s: %d memories\n", describeShare(cfg), len(ms))
	for _, m := range ms {
		fmt.Fprintf(a.out, "%s  %s\n", m.Date, firstLine(m.Note))
	}
	return nil
}

func (a *App) Unlock(ctx context.Context) error {
	configured, err := a.gate.IsConfigured(ctx)
	if err != nil {
		return err
	}
	if !configured {
		fmt.Fprintln(a.out, "No passwords set, everything is open. Use 'password' to set them.")
		return nil
	}

	mode, err := GetSimpleText(a.reader, "Mode (view/edit)", a.out)
	if err != nil {
		return err
	}
	pw, err := GetPassword("Password", a.out)
	if err != nil {
		return err
	}
	token, err := a.gate.Unlock(ctx, pw, auth.Mode(mode))
	if err != nil {
		return err
	}
	a.token = token
	fmt.Fprintf(a.out, "Unlocked for %s\n", mode)
	return nil
}

func (a *App) Lock(ctx context.Context) error {
	a.token = ""
	if a.scope != nil {
		a.scope.Close()
		a.scope = nil
	}
	clear(a.remotes)
	fmt.Fprintln(a.out, "Locked")
	return nil
}

// Password sets the passwords on first run and changes them afterwards.
// A change ends the current session.
func (a *App) Password(ctx context.Context) error {
	configured, err := a.gate.IsConfigured(ctx)
	if err != nil {
		return err
	}

	current := ""
	if configured {
		if current, err = GetPassword("Current edit password", a.out); err != nil {
			return err
		}
	}
	view, err := GetPassword("New view password", a.out)
	if err != nil {
		return err
	}
	edit, err := GetPassword("New edit password", a.out)
	if err != nil {
		return err
	}

	if configured {
		err = a.gate.ChangePasswords(ctx, current, view, edit)
	} else {
		err = a.gate.SetPasswords(ctx, view, edit)
	}
	if err != nil {
		return err
	}
	a.token = ""
	fmt.Fprintln(a.out, "Passwords saved. Use 'unlock' to start a session.")
	return nil
}

// Push copies the local collection to the remote backend.
func (a *App) Push(ctx context.Context) error {
	if err := a.requireEdit(ctx); err != nil {
		return err
	}
	if a.migrator == nil {
		return fmt.Errorf("%w: push needs remote mode", common.ErrUnsupported)
	}

	stats, err := a.migrator.Run(ctx, func(p migrate.Progress) {
		fmt.Fprintf(a.out, "[%s %d/%d] %s\n", p.Stage, p.Current, p.Total, p.Message)
	})
	fmt.Fprintf(a.out, "Pushed %d memories, %d photos (%d bytes), %d failed\n", stats.Memories, stats.Photos, stats.Bytes, stats.Failed)
	if _, lerr := a.manager.LoadAll(ctx); lerr != nil && err == nil {
		err = lerr
	}
	return err
}
