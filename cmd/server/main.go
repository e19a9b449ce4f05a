package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/penosext/pentools/internal/api"
	"github.com/penosext/pentools/internal/chat"
	"github.com/penosext/pentools/internal/config"
	"github.com/penosext/pentools/internal/devicectl"
	"github.com/penosext/pentools/internal/deviceinfo"
	"github.com/penosext/pentools/internal/filemanager"
	"github.com/penosext/pentools/internal/logging"
	"github.com/penosext/pentools/internal/passwd"
	"github.com/penosext/pentools/internal/shell"
	"github.com/penosext/pentools/internal/store"
	"github.com/penosext/pentools/internal/terminal"
	"github.com/penosext/pentools/internal/toolshell"
	"github.com/penosext/pentools/internal/update"
	"go.uber.org/zap"
)

const shellRetryInterval = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()
	log := logging.Named("server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Fatal("failed to open state store", zap.Error(err))
	}
	defer st.Close()
	log.Info("state store opened", zap.String("data_dir", cfg.DataDir))

	timeout := time.Duration(cfg.ExecTimeoutSec) * time.Second
	sh := shell.NewRecorded(shell.NewLocal(cfg.ShellPath, timeout), st)

	scripts := toolshell.NewManager(sh, st, cfg.ToolshellDir)
	term := terminal.New(sh, terminal.Options{
		MaxLines:   cfg.MaxLines,
		MaxHistory: cfg.MaxHistory,
		Passwd:     passwd.NewChanger(sh, ""),
		Scripts:    scripts,
	})
	go initShell(ctx, term, log)

	checker := update.NewChecker(update.Config{
		APIURL:         cfg.GitHubAPIURL,
		Owner:          cfg.GitHubOwner,
		Repo:           cfg.GitHubRepo,
		CurrentVersion: cfg.CurrentVersion,
		DeviceModel:    cfg.DeviceModel,
		DownloadDir:    cfg.DownloadDir,
	}, sh)

	server := api.NewServer(api.Deps{
		Terminal: term,
		Files:    filemanager.New(sh, cfg.WritableRoot, nil),
		Device:   deviceinfo.NewCollector(sh, cfg.DeviceModel),
		Controls: devicectl.NewController(sh),
		Update:   checker,
		Chat:     chat.NewService(st),
		Scripts:  scripts,
		Commands: st,
		APIKey:   cfg.APIKey,
	})
	if cfg.APIKey == "" {
		log.Warn("PENTOOLS_API_KEY is empty, API authentication disabled")
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	go func() {
		log.Info("starting server", zap.String("addr", addr))
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("error closing server", zap.Error(err))
	}
}

// initShell retries terminal initialization until it succeeds or ctx ends.
func initShell(ctx context.Context, term *terminal.Terminal, log *zap.Logger) {
	for {
		err := term.Init(ctx)
		if err == nil {
			log.Info("shell ready", zap.String("cwd", term.Cwd()))
			return
		}
		log.Warn("shell initialization failed, retrying",
			zap.Error(err), zap.Duration("interval", shellRetryInterval))

		select {
		case <-ctx.Done():
			return
		case <-time.After(shellRetryInterval):
		}
	}
}
