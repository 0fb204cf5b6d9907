// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/openroyale/royaled/internal/cache"
	"github.com/openroyale/royaled/internal/config"
	"github.com/openroyale/royaled/internal/database"
	"github.com/openroyale/royaled/internal/handlers"
	"github.com/openroyale/royaled/internal/levels"
	"github.com/openroyale/royaled/internal/middleware"
	"github.com/openroyale/royaled/internal/wordfilter"
)

type Config struct {
	configPath string
	listen     string
	levelsDir  string
	logLevel   string
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ROYALE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "royaled",
		Short:         "Real-time match server for browser battle-royale platforming.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.configPath, "config", "c", "server.cfg", "path to server config file (env: ROYALE_CONFIG)")
	fs.StringVarP(&cfg.listen, "listen", "l", "", "listen address, overrides the config ListenPort (env: ROYALE_LISTEN)")
	fs.StringVar(&cfg.levelsDir, "levels", "", "levels directory, overrides the config LevelsPath (env: ROYALE_LEVELS)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug, info, warn, error (env: ROYALE_LOG_LEVEL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}

func run(ctx context.Context, cfg *Config) error {
	logger := logrus.New()
	lvl, err := logrus.ParseLevel(cfg.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q", cfg.logLevel)
	}
	logger.SetLevel(lvl)

	set, err := config.Load(cfg.configPath)
	if err != nil {
		return err
	}
	live := config.NewLive(set)

	levelsDir := cfg.levelsDir
	if levelsDir == "" {
		levelsDir = set.LevelsPath
	}
	catalog := levels.NewCatalog(levelsDir)
	if catalog.Enabled() {
		if err := catalog.Reload(); err != nil {
			logger.Warnf("initial level load: %v", err)
		}
	} else {
		logger.Info("no levels directory, serving built-in worlds")
	}

	filter, err := wordfilter.Load(set.WordsPath)
	if err != nil {
		return err
	}

	if os.Getenv("DATABASE_URL") != "" || set.PostgresHost != "" {
		database.ConnectDB(set.PostgresDSN())
		if err := database.RunMigrations(ctx, set.PostgresDSN()); err != nil {
			return err
		}
	} else {
		logger.Warn("no database configured, accounts disabled")
	}

	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, match results will not be recorded: %v", err)
	}

	srv, err := handlers.NewServer(logger, live, cfg.configPath, catalog, filter)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/royale/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(srv.HandleWS)))

	addr := cfg.listen
	if addr == "" {
		addr = fmt.Sprintf(":%d", set.ListenPort)
	}
	httpSrv := &http.Server{Addr: addr, Handler: mux}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return srv.RunMaintenance(gctx) })
	g.Go(func() error { return srv.RunLeaderboard(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shCtx)
	})

	err = g.Wait()
	switch {
	case errors.Is(err, handlers.ErrDrained):
		logger.Info("drain complete, exiting")
		return nil
	case errors.Is(err, context.Canceled):
		return nil
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).ExecuteContext(ctx))
}
