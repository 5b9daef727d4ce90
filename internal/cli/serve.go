package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/server"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/store/sqlitestore"
)

const shutdownTimeout = 5 * time.Second

type collection interface {
	server.Collection
	io.Closer
}

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local task collection over HTTP",
		Long: strings.TrimSpace(`
Serve a task collection at /tasks for the TUI and the other commands to use.

The json driver keeps everything in one human-readable file; the sqlite
driver keeps it in a SQLite database.
`),
		Example: strings.TrimSpace(`
# JSON file in the working directory on :8000
tada serve

# SQLite on another port
tada serve --driver sqlite --data tasks.db --addr 127.0.0.1:9000
`),
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := app.cfg.Server
			coll, err := openCollection(cmd.Context(), sc.Driver, sc.Data)
			if err != nil {
				return err
			}
			defer coll.Close()

			ln, err := net.Listen("tcp", sc.Addr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "tada serving %s (%s) at http://%s/tasks\n", sc.Data, sc.Driver, ln.Addr())
			return serve(ctx, ln, server.New(coll, cmd.ErrOrStderr()).Handler())
		},
	}

	fs := cmd.Flags()
	fs.String("addr", "", "Bind address (default :8000)")
	fs.String("data", "", "Data file (default tasks.json)")
	fs.String("driver", "", "Storage driver: json|sqlite")
	bindFlag(app.v, "server.addr", fs.Lookup("addr"))
	bindFlag(app.v, "server.data", fs.Lookup("data"))
	bindFlag(app.v, "server.driver", fs.Lookup("driver"))
	return cmd
}

func openCollection(ctx context.Context, driver, path string) (collection, error) {
	switch driver {
	case "json":
		s, err := jsonstore.New(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := sqlitestore.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, usagef("unknown driver %q (want json or sqlite)", driver)
}

// serve runs until ctx is done, then drains in-flight requests.
func serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
