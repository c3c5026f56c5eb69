package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Meet/internal/adapters/http"
	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/auth"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/store"
	"github.com/dkeye/Meet/internal/version"
)

const shutdownTimeout = 10 * time.Second

func NewServeCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the meeting server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, cfg)
		},
	}
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Mode == "debug" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func serve(ctx context.Context, cfg *config.Config) error {
	setupLogger(cfg)

	stores, err := store.Open(cfg.Store, cfg.Mode == "debug")
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error().Err(err).Msg("store close")
		}
	}()

	verifier, err := auth.NewVerifier([]byte(cfg.JWT.Secret))
	if err != nil {
		return err
	}
	policy, err := app.PolicyByName(cfg.SlowConsumer)
	if err != nil {
		return err
	}
	authMW, err := auth.NewMiddleware(auth.MiddlewareConfig{
		Realm:    cfg.JWT.Realm,
		Secret:   []byte(cfg.JWT.Secret),
		TTL:      cfg.JWT.TTL,
		DevLogin: cfg.Mode == "debug",
	})
	if err != nil {
		return err
	}

	o := orch.New(orch.Options{
		Registry:      app.NewRegistry(),
		Rooms:         app.NewRoomManager(),
		Policy:        policy,
		Meetings:      app.NewMeetingService(stores.Meetings),
		Chat:          app.NewChatService(stores.Chat, cfg.Chat.HistoryLimit),
		Verifier:      verifier,
		StoreTimeout:  cfg.StoreTimeout,
		VerifyTimeout: cfg.VerifyTimeout,
	})

	// The loop outlives ctx so disconnect cleanup can finish during drain.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.SetupRouter(ctx, cfg, o, authMW),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.Run(loopCtx)
	})
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", version.Version).Msg("Meet server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		if err := o.Drain(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("drain incomplete")
		}
		stopLoop()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
