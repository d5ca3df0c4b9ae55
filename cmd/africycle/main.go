package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/africycle/africycle/internal/api"
	"github.com/africycle/africycle/internal/ledger"
	"github.com/africycle/africycle/internal/reward"
	"github.com/africycle/africycle/internal/store"
	"github.com/africycle/africycle/internal/token"
	"github.com/africycle/africycle/internal/waste"
	"github.com/africycle/africycle/pkg/db/pebble"
	"github.com/africycle/africycle/pkg/log"
)

type config struct {
	DBPath      string `json:"db_path"`
	Listen      string `json:"listen"`
	Admin       string `json:"admin"`
	LogLevel    string `json:"log_level"`
	LogFormat   string `json:"log_format"`
	InitialFund uint64 `json:"initial_fund"`
}

func loadConfig(path string) (config, error) {
	cfg := config{
		DBPath:   "africycle-db",
		Listen:   ":8080",
		LogLevel: "info",
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return config{}, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Admin == "" {
		return config{}, errors.New("config: admin address is required")
	}
	return cfg, nil
}

func run() error {
	configPath := flag.String("config", "africycle.json", "path to the JSON config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	level, err := log.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	loggerType := log.ConsoleLogger
	if cfg.LogFormat == "json" {
		loggerType = log.JSONLogger
	}
	log.Init(log.Options{LogLevel: level, Type: loggerType})

	admin, err := waste.ParseAddress(cfg.Admin)
	if err != nil {
		return fmt.Errorf("parse admin address: %w", err)
	}

	kv, err := pebble.NewPersistentKVStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	s := store.New(kv)
	defer s.Close()

	tables, found, err := s.GetRates()
	if err != nil {
		return err
	}
	if !found {
		tables = reward.DefaultTables()
	}
	engine := reward.NewEngine(tables)
	book := token.NewBook(kv)

	l := ledger.New(s, book, engine, ledger.Config{
		Admin:    admin,
		Notifier: ledger.LogNotifier{Log: log.Ledger},
		Logger:   log.Ledger,
	})

	if cfg.InitialFund > 0 {
		balance, err := l.GetContractTokenBalance()
		if err != nil {
			return err
		}
		if balance == 0 {
			if err := l.FundContract(admin, cfg.InitialFund); err != nil {
				return fmt.Errorf("fund contract: %w", err)
			}
		}
	}

	server := api.NewHTTPServer(api.NewServer(l, log.API), cfg.Listen)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Root.Info().Str("listen", cfg.Listen).Msg("serving api")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Root.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
