package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/moments/internal/auth"
	"github.com/dmitrijs2005/moments/internal/config"
	"github.com/dmitrijs2005/moments/internal/imaging"
	"github.com/dmitrijs2005/moments/internal/local"
	"github.com/dmitrijs2005/moments/internal/logging"
	"github.com/dmitrijs2005/moments/internal/memories"
	"github.com/dmitrijs2005/moments/internal/migrate"
	"github.com/dmitrijs2005/moments/internal/previews"
	"github.com/dmitrijs2005/moments/internal/remote"
	"github.com/dmitrijs2005/moments/internal/share"
	"github.com/dmitrijs2005/moments/internal/transfer"
)

// Fetcher reads a stored rendition by its object key.
type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	local    *local.Store
	manager  *memories.Manager
	gate     *auth.Gate
	share    *share.Service
	migrator *migrate.Migrator
	fetcher  Fetcher

	reader *bufio.Reader
	out    io.Writer

	token   string
	scope   *previews.Scope
	remotes map[string]string // public url -> object key of displayed remote photos
	closers []func() error
}

// NewApp opens the local store and, in remote mode, the remote backend, and
// wires everything the REPL needs.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	store, err := local.Open(ctx, cfg.LocalDSN, logger.With("module", "local"))
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	gen := imaging.NewDefaultGenerator(logger.With("module", "imaging"))
	a := newApp(cfg, logger, store)
	a.closers = append(a.closers, store.Close)

	opts := []memories.Option{memories.WithUploadConcurrency(cfg.UploadConcurrency), memories.WithRegistry(previews.NewRegistry())}

	switch cfg.Mode {
	case config.ModeRemote:
		svc, err := remote.Open(ctx, cfg, logger.With("module", "remote"))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open remote backend: %w", err)
		}
		a.closers = append(a.closers, svc.Close)
		a.fetcher = svc
		a.migrator = migrate.New(store, svc, gen, logger.With("module", "migrate"))
		a.manager = memories.NewManager(svc, gen, logger.With("module", "memories"), opts...)
	default:
		opts = append(opts, memories.WithCodec(transfer.NewCodec(store, logger.With("module", "transfer"))))
		a.manager = memories.NewManager(store, gen, logger.With("module", "memories"), opts...)
	}

	return a, nil
}

func newApp(cfg *config.Config, logger logging.Logger, store *local.Store) *App {
	return &App{
		config:  cfg,
		logger:  logger,
		local:   store,
		gate:    auth.NewGate(store.Settings(), []byte(cfg.SecretKey), cfg.SessionValidityDuration, logger.With("module", "auth")),
		share:   share.NewService(store.Settings(), logger.With("module", "share")),
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		remotes: make(map[string]string),
	}
}

func (a *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run loads the collection and starts the REPL. It returns when the user
// exits, ctx is cancelled or the process receives a termination signal.
func (a *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer a.Close()

	a.initSignalHandler(cancelFunc)

	fmt.Fprintln(a.out, "Welcome to moments (type 'help' for commands)")
	if _, err := a.manager.LoadAll(ctx); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))
	}()

	// the scanner blocks on stdin, so a signal does not wait for it
	select {
	case <-done:
	case <-ctx.Done():
		fmt.Fprintln(a.out, "\nBye!")
	}
}

// Close releases display handles and closes the stores.
func (a *App) Close() {
	if a.scope != nil {
		a.scope.Close()
		a.scope = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) status() string {
	if a.token == "" {
		return fmt.Sprintf("(%s)", a.config.Mode)
	}
	mode, err := a.gate.Mode(a.token)
	if err != nil {
		return fmt.Sprintf("(%s expired)", a.config.Mode)
	}
	return fmt.Sprintf("(%s %s)", a.config.Mode, mode)
}
