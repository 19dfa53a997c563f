// Command recordfilter serves record store tables over Arrow Flight and
// a REST API, selecting records with filter expressions.
//
// Usage:
//
//	recordfilter -config config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/hugr-lab/recordfilter"
	"github.com/hugr-lab/recordfilter/catalog"
	"github.com/hugr-lab/recordfilter/httpapi"
	"github.com/hugr-lab/recordfilter/internal/config"
	"github.com/hugr-lab/recordfilter/store"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, "recordfilter:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.Parse(nil)
	}
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	flightLis, err := net.Listen("tcp", cfg.Flight.Address)
	if err != nil {
		return fmt.Errorf("listen flight: %w", err)
	}
	var httpLis net.Listener
	if !cfg.HTTP.Disabled {
		httpLis, err = net.Listen("tcp", cfg.HTTP.Address)
		if err != nil {
			flightLis.Close()
			return fmt.Errorf("listen http: %w", err)
		}
	}

	return a.serve(ctx, flightLis, httpLis)
}

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	grpc   *grpc.Server
	http   *http.Server
}

// newApp opens the store and builds the catalog and both servers.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	st, err := store.Open(cfg.Store.Path, &store.Options{Sync: cfg.Store.Sync, Logger: logger})
	if err != nil {
		return nil, err
	}

	cat, err := buildCatalog(cfg, st)
	if err != nil {
		st.Close()
		return nil, err
	}

	var authenticator recordfilter.Authenticator
	if len(cfg.Auth.Tokens) > 0 {
		authenticator = recordfilter.StaticTokens(cfg.Auth.Tokens)
	}

	serverConfig := recordfilter.ServerConfig{
		Catalog:        cat,
		Auth:           authenticator,
		Logger:         logger,
		MaxMessageSize: cfg.Flight.MaxMessageSize,
		Address:        cfg.Flight.PublicAddress,
	}
	grpcServer := grpc.NewServer(recordfilter.ServerOptions(serverConfig)...)
	if err := recordfilter.NewServer(grpcServer, serverConfig); err != nil {
		st.Close()
		return nil, err
	}

	handler := httpapi.NewHandler(st, cfg.TableNames(), logger)
	return &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		grpc:   grpcServer,
		http:   &http.Server{Handler: httpapi.NewRouter(handler, authenticator)},
	}, nil
}

func buildCatalog(cfg *config.Config, st *store.Store) (catalog.Catalog, error) {
	builder := recordfilter.NewCatalogBuilder()
	schemas := make(map[string]*recordfilter.SchemaBuilder)
	for _, tc := range cfg.Tables {
		schema, err := tc.ArrowSchema()
		if err != nil {
			return nil, err
		}
		table, err := store.NewTable(st, tc.Name, tc.Comment, schema, nil)
		if err != nil {
			return nil, err
		}
		sb, ok := schemas[tc.Schema]
		if !ok {
			sb = builder.Schema(tc.Schema)
			schemas[tc.Schema] = sb
		}
		sb.Table(table)
	}
	return builder.Build()
}

// serve runs the servers until ctx is done or one of them fails, then
// shuts both down. A nil httpLis leaves the REST API off.
func (a *app) serve(ctx context.Context, flightLis, httpLis net.Listener) error {
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		a.logger.Info("Flight server listening", "address", flightLis.Addr().String())
		if err := a.grpc.Serve(flightLis); err != nil {
			return fmt.Errorf("flight server: %w", err)
		}
		return nil
	})

	if httpLis != nil {
		eg.Go(func() error {
			a.logger.Info("HTTP server listening", "address", httpLis.Addr().String())
			if err := a.http.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	eg.Go(func() error {
		<-egCtx.Done()
		a.logger.Info("Shutting down", "timeout", a.cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		stopped := make(chan struct{})
		go func() {
			a.grpc.GracefulStop()
			close(stopped)
		}()

		var err error
		if httpLis != nil {
			err = a.http.Shutdown(shutdownCtx)
		}
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			a.grpc.Stop()
		}
		return err
	})

	return eg.Wait()
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("Failed to close store", "error", err)
	}
}
