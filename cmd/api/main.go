package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"contratos.app/internal/artifact"
	"contratos.app/internal/auth"
	"contratos.app/internal/config"
	"contratos.app/internal/contract"
	"contratos.app/internal/httpapi"
	"contratos.app/internal/migrate"
	"contratos.app/internal/obs"
	"contratos.app/internal/store/pg"
	"contratos.app/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	root := &cobra.Command{
		Use:           "contratos-api",
		Short:         "Contract generation API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health listener",
		RunE:  runServe,
	}
	config.RegisterFlags(serve.Flags())
	root.AddCommand(serve)
	root.RunE = serve.RunE
	config.RegisterFlags(root.Flags())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "contratos-api:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, os.Getenv)
	if err != nil {
		return err
	}
	if err := config.ApplyFlags(cmd.Flags(), &cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := obs.Configure(cfg.LogLevel); err != nil {
		return err
	}
	obs.Init()
	obs.InitBuildInfo(version, commit)
	log := obs.Logger()
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := wire(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// Left unset so /v1/events can stay open; other routes carry the request timeout.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	errs := make(chan error, 2)
	go func() {
		log.Info("http_listen", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http listen: %w", err)
		}
	}()

	var gsrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		gsrv = httpapi.NewGRPCServer(app.ready)
		go func() {
			log.Info("grpc_listen", zap.String("addr", cfg.GRPCAddr))
			if err := gsrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errs <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown_started")
	case err := <-errs:
		log.Error("server_failed", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if gsrv != nil {
		gsrv.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_failed", zap.Error(err))
	}
	log.Info("stopped")
	return nil
}

type app struct {
	api    *httpapi.API
	ready  httpapi.ReadyProbe
	closer []func() error
}

func (a *app) close() {
	for i := len(a.closer) - 1; i >= 0; i-- {
		_ = a.closer[i]()
	}
}

type redisPinger struct{ c redis.UniversalClient }

func (p redisPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }

// wire picks PostgreSQL, Redis and S3 when configured and in-memory stores
// otherwise.
func wire(ctx context.Context, cfg config.Config) (*app, error) {
	log := obs.Logger()
	a := &app{}

	var (
		contracts contract.Store
		accounts  auth.AccountStore
		sessions  auth.SessionStore
	)
	if cfg.DatabaseDSN != "" {
		db, err := pg.Open(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		a.closer = append(a.closer, db.Close)
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err = migrate.NewManager(db.DB()).Up(mctx)
		cancel()
		if err != nil {
			a.close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		contracts, accounts = db.Contracts(), db.Accounts()
		a.ready.DB = db
	} else {
		log.Warn("storage_in_memory", zap.String("reason", "database dsn not set"))
		contracts, accounts = contract.NewInMemory(), auth.NewMemoryAccounts()
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closer = append(a.closer, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		sessions = auth.NewRedisSessions(client)
		a.ready.Redis = redisPinger{c: client}
	} else {
		sessions = auth.NewMemorySessions(nil)
	}

	var archive *artifact.Archive
	if cfg.S3.Bucket != "" {
		store, err := artifact.NewS3Store(ctx, artifact.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		archive = artifact.NewArchive(store, cfg.S3.ArtifactTTL)
	}

	tokens, err := auth.NewTokens(cfg.AuthSecret)
	if err != nil {
		a.close()
		return nil, err
	}
	svc, err := auth.NewService(accounts, sessions, contracts, tokens, auth.WithSessionTTL(cfg.SessionTTL))
	if err != nil {
		a.close()
		return nil, err
	}
	a.api, err = httpapi.New(httpapi.Deps{
		Auth:      svc,
		Contracts: contracts,
		Archive:   archive,
		Events:    stream.New(),
		Ready:     a.ready,
		Version:   version,
	},
		httpapi.WithRateLimit(cfg.RatePerSecond, cfg.RateBurst),
		httpapi.WithRequestTimeout(cfg.RequestTimeout),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
		httpapi.WithCORSOrigin(cfg.CORSOrigin),
	)
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}
