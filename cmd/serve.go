/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/allbin/go-sdrtx"
	"github.com/allbin/go-sdrtx/internal/httpapi"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the transmitter over HTTP",
	Long: `Initialize the transmitter and expose it over HTTP:

  GET  /api/status      owned resources, tx delay and correction
  POST /api/transmit    {"codewords":[...]} or {"test_page":true}
  GET  /api/correction  {"ppm":0}
  PUT  /api/correction  {"ppm":1.5}
  POST /api/reload      re-read the config file and re-initialize

Changes to the config file re-initialize the transmitter automatically. A
failed initialization leaves the server running; transmit requests are
rejected until a later reload succeeds.

Example usage:
  sdrtx serve
  sdrtx serve --addr :8073`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Set(sdrtx.KeyHTTPAddr, addr)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tx := sdrtx.New(sdrtx.WithLogger(logger))
		r := &reloader{cfg: cfg, tx: tx, log: logger}
		if err := r.initialize(); err != nil {
			logger.Error("initial configuration failed", "error", err)
		}

		handler := httpapi.NewHandler(tx, r.reload, logger)
		addr := cfg.GetString(sdrtx.KeyHTTPAddr)

		g, ctx := errgroup.WithContext(ctx)
		if file := cfg.ConfigFileUsed(); file != "" {
			w, err := watchFile(file)
			if err != nil {
				logger.Warn("config file changes will not be picked up", "file", file, "error", err)
			} else {
				g.Go(func() error {
					defer w.Close()
					r.watch(ctx, w, file)
					return nil
				})
			}
		}
		g.Go(func() error {
			err := httpapi.ListenAndServe(ctx, handler, addr)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-ctx.Done()
			if err := r.shutdown(); err != nil {
				logger.Warn("shutdown completed with errors", "error", err)
			}
			return nil
		})

		return g.Wait()
	},
}

var errStopped = errors.New("transmitter is shutting down")

// reloader owns every read of the config after startup. Reloads from the
// API and the file watcher, and the final shutdown, are serialized on mu.
type reloader struct {
	mu      sync.Mutex
	cfg     *viper.Viper
	tx      *sdrtx.Controller
	log     *slog.Logger
	stopped bool
}

func (r *reloader) initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tx.Initialize(r.cfg)
}

// reload re-reads the config file, when there is one, and re-initializes
func (r *reloader) reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return errStopped
	}
	if r.cfg.ConfigFileUsed() != "" {
		if err := r.cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return r.tx.Initialize(r.cfg)
}

// shutdown releases the transmitter. Later reloads are refused.
func (r *reloader) shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	return r.tx.Shutdown()
}

// watchFile watches the directory of file, so editors that replace the
// file on save are seen too
func watchFile(file string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(file)); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// watch reloads on every change to file until ctx is done
func (r *reloader) watch(ctx context.Context, w *fsnotify.Watcher, file string) {
	file = filepath.Clean(file)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != file || !(e.Op.Has(fsnotify.Write) || e.Op.Has(fsnotify.Create)) {
				continue
			}
			drainEvents(w)
			if ctx.Err() != nil {
				return
			}
			r.log.Info("config file changed", "file", e.Name, "op", e.Op.String())
			if err := r.reload(); err != nil {
				r.log.Error("re-initialization failed", "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.log.Warn("config watcher error", "error", err)
		}
	}
}

func drainEvents(w *fsnotify.Watcher) {
	for {
		select {
		case <-w.Events:
		default:
			return
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default from http.addr)")
}
