package cmd

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/jeeftor/yamlsql/internal/config"
	"github.com/jeeftor/yamlsql/internal/host"
	"github.com/jeeftor/yamlsql/internal/logging"
	"github.com/jeeftor/yamlsql/internal/session"
)

var serveStdio bool

// serveCmd runs yamlsql as an editor sidecar
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as an editor sidecar speaking JSON-RPC over stdio",
	Long: `Run the regeneration pipeline for an editor extension.

The extension starts 'yamlsql serve --stdio', sends initialize with its
yamlSqlHighlight settings and forwards workspace/didChangeConfiguration.
Grammar swaps, reload prompts and messages are sent back over the same
connection. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !serveStdio {
			return errors.New("only --stdio transport is supported")
		}

		// stdout carries the protocol
		logging.SetOutput(os.Stderr)
		logging.SetUserOutput(os.Stderr)

		store, err := config.NewStore(viper.GetViper())
		if err != nil {
			return err
		}

		s := newSidecar(store)
		s.rpc = host.NewRPC(os.Stdin, os.Stdout, GetDisplayVersion(), s.callbacks())

		err = s.run(contextManager.GetContext())
		if shutdownErr := contextManager.Shutdown(); err == nil {
			err = shutdownErr
		}
		return err
	},
}

// sidecar connects the RPC reader to a session. The session starts once the
// editor has sent initialize.
type sidecar struct {
	store *config.Store
	rpc   *host.RPC

	ready     chan struct{}
	readyOnce sync.Once

	mu      sync.Mutex
	session *session.Session
}

func newSidecar(store *config.Store) *sidecar {
	return &sidecar{store: store, ready: make(chan struct{})}
}

func (s *sidecar) current() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// callbacks run on the reader goroutine. Anything that may wait on the
// session loop is started on its own goroutine, since the loop itself may be
// waiting for a response only the reader can deliver.
func (s *sidecar) callbacks() host.Callbacks {
	return host.Callbacks{
		OnInitialize: func(params host.InitializeParams) {
			if settings := params.InitializationOptions.Settings; len(settings) > 0 {
				if _, err := s.store.Apply(settings); err != nil {
					logging.Warn("Ignoring invalid initial settings", "error", err)
				}
			}
			s.readyOnce.Do(func() { close(s.ready) })
		},
		OnConfiguration: func(settings map[string]any) {
			keys, err := s.store.Apply(settings)
			if err != nil {
				logging.Warn("Ignoring invalid configuration", "error", err)
				return
			}
			if len(keys) == 0 {
				return
			}
			if sess := s.current(); sess != nil {
				go sess.Notify(keys)
			}
		},
		OnRegenerate: func() {
			if sess := s.current(); sess != nil {
				go sess.Regenerate()
			}
		},
		OnShutdown: func() {
			if sess := s.current(); sess != nil {
				go sess.Teardown()
			}
		},
	}
}

// run supervises the reader and the session until exit, EOF or ctx ends
func (s *sidecar) run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		errc := make(chan error, 1)
		go func() { errc <- s.rpc.Serve(gctx) }()
		select {
		case err := <-errc:
			return err
		case <-gctx.Done():
			// The reader stays blocked on stdin until the process exits
			return nil
		}
	})

	g.Go(func() error {
		select {
		case <-s.ready:
		case <-gctx.Done():
			return nil
		}

		sess, err := session.Init(gctx, session.Options{Source: s.store, Host: s.rpc})
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.session = sess
		s.mu.Unlock()

		<-gctx.Done()
		sess.Teardown()
		return nil
	})

	return g.Wait()
}

func init() {
	serveCmd.Flags().BoolVar(&serveStdio, "stdio", false, "communicate over stdin/stdout")
	rootCmd.AddCommand(serveCmd)
}
