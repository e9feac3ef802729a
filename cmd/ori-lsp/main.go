// Command ori-lsp is a Language Server Protocol server for ori files.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/urfave/cli/v3"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/rlch/ori"
	"github.com/rlch/ori/lsp"
	"github.com/rlch/ori/scope"
	"github.com/rlch/ori/watch"
)

var version = "dev"

func main() {
	app := &cli.Command{
		Name:    "ori-lsp",
		Version: version,
		Usage:   "Language server for ori files, speaking LSP over stdio",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("ORI_LSP_LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "watch workspace folders for file changes instead of relying on the editor",
			},
			&cli.StringFlag{
				Name:  "home",
				Usage: "folder the ~ key resolves to (default: the user's home)",
			},
		},
		Action: serve,
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	level, err := zapcore.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return err
	}

	// Logs go to stderr; stdout carries the protocol.
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		return err
	}

	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting ori-lsp server", zap.String("version", version))

	err = run(ctx, logger, options{watch: cmd.Bool("watch"), home: cmd.String("home")}, os.Stdin, os.Stdout)
	if err != nil {
		logger.Error("Server error", zap.Error(err))
	}

	return err
}

type options struct {
	watch bool
	home  string
}

func run(ctx context.Context, logger *zap.Logger, opts options, in io.Reader, out io.Writer) error {
	stream := jsonrpc2.NewStream(&readWriteCloser{in, out})
	conn := jsonrpc2.NewConn(stream)

	client := protocol.ClientDispatcher(conn, logger)

	sc := scope.New(osfs.New("/"), opts.home, logger.Named("scope"))
	server := lsp.NewServer(client, logger, sc)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if opts.watch {
		// Exclusions come from the config next to the working directory;
		// per-root configs only apply to completion.
		cfg, _ := ori.LoadConfig(".")

		w, err := watch.New(server.DidChangeWatchedFiles, logger.Named("watch"), cfg)
		if err != nil {
			return err
		}

		defer func() { _ = w.Close() }()

		server.SetWatcher(w)

		g.Go(func() error { return w.Run(ctx) })
	}

	conn.Go(ctx, protocol.ServerHandler(server, nil))

	g.Go(func() error {
		defer cancel()

		select {
		case <-conn.Done():
			return conn.Err()
		case <-ctx.Done():
			return nil
		}
	})

	return g.Wait()
}

// readWriteCloser wraps separate reader/writer into io.ReadWriteCloser.
type readWriteCloser struct {
	io.Reader
	io.Writer
}

func (rwc *readWriteCloser) Close() error {
	if c, ok := rwc.Writer.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
