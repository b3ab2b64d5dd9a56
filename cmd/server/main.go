package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/carnival-games/carnival/internal/api"
	"github.com/carnival-games/carnival/internal/config"
	"github.com/carnival-games/carnival/internal/database"
	"github.com/carnival-games/carnival/internal/event"
	"github.com/carnival-games/carnival/internal/queue"
	"github.com/carnival-games/carnival/internal/stats"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
)

func main() {
	// optional: local development settings
	godotenv.Load()

	flag.StringVar(&addr, "addr", envOr("CARNIVAL_ADDR", "localhost:8000"), "server address")
	flag.StringVar(&dsn, "dsn", envOr("CARNIVAL_DSN", "host=localhost user=postgres password=postgres dbname=carnival sslmode=disable"), "database connection string")
	flag.StringVar(&signingKey, "signing-key", os.Getenv("CARNIVAL_SIGNING_KEY"), "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[carnival] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgCarnivalRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	joinBus := event.NewBus[database.JoinRequest](logger)
	pagerBus := event.NewBus[database.PagerMessage](logger)

	queueService := queue.NewService(logger, dbConn, joinBus)

	srv := api.NewCarnivalApp(mux, logger, dbConn, queueService, pagerBus, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
