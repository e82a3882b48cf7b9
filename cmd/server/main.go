package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/crowdfunding-escrow/internal/clock"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/config"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/escrow"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/events/kafka"
	evmemory "github.com/sheikh-saqib/crowdfunding-escrow/internal/events/memory"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/httpapi"
	interfaces "github.com/sheikh-saqib/crowdfunding-escrow/internal/interfaces"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/ledger"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/logging"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/metrics"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/storage/memory"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store interface {
		interfaces.LedgerStore
		interfaces.EscrowStore
	}
	switch cfg.Store {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("connect database")
		}
		defer db.Close()
		pg := postgres.NewPostgresLedgerStore(db)
		if err := pg.Migrate(ctx); err != nil {
			log.WithError(err).Fatal("migrate database")
		}
		store = pg
	default:
		store = memory.NewMemoryLedgerStore()
	}
	accounts := ledger.NewLedger(store, log)

	var publisher interfaces.EventPublisher = evmemory.NewPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
	}

	var clk interfaces.Clock = clock.System{}
	var manual *clock.Manual
	if cfg.Clock == config.ClockManual {
		manual = clock.NewManual(time.Now().UTC())
		clk = manual
	}

	e, err := escrow.Open(ctx, escrow.Config{
		Admin:    cfg.Admin,
		Goal:     cfg.Goal,
		Duration: cfg.Duration,
		Custody:  cfg.Custody,
		Policy:   escrow.Policy{BlockRefundWhenGoalReached: cfg.BlockRefundWhenGoalReached},
	}, escrow.Deps{
		Clock:     clk,
		Accounts:  accounts,
		Publisher: publisher,
		Logger:    log,
	}, store, accounts)
	if err != nil {
		log.WithError(err).Fatal("open escrow")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewServer(e, accounts, metrics.New(), manual, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.WithFields(logging.Fields{"addr": cfg.HTTPAddr, "store": cfg.Store, "clock": cfg.Clock}).Info("starting server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("serve")
	}
}
