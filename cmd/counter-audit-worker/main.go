package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bet-ledger-sync-poc/internal/counter-audit/auditor"
	"github.com/radieske/bet-ledger-sync-poc/internal/shared/config"
	"github.com/radieske/bet-ledger-sync-poc/internal/shared/kafka"
	"github.com/radieske/bet-ledger-sync-poc/internal/shared/logger"
	"github.com/radieske/bet-ledger-sync-poc/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Consumer group assinando o feed completo de mutações do ledger
	reader := kafka.NewGroupReader(cfg.KafkaBrokers, "counter-audit", []string{
		cfg.TopicBetCreated,
		cfg.TopicBetDeleted,
		cfg.TopicCounterUpdated,
	})
	defer reader.Close()

	// Métricas Prometheus
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "audit_messages_consumed_total", Help: "mensagens consumidas do feed"})
	drift := prometheus.NewCounter(prometheus.CounterOpts{Name: "audit_counter_drift_total", Help: "contadores aceitos que divergiram do recálculo"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "audit_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, drift, errorsBy)

	a := auditor.New(log, reader)
	a.OnConsumed = func() { consumed.Inc() }
	a.OnDrift = func() { drift.Inc() }
	a.OnError = func(stage string) { errorsBy.WithLabelValues(stage).Inc() }

	metricsSrv := metrics.StartServer(log, cfg.MetricsPort, nil)
	defer metricsSrv.Close()

	log.Info("counter-audit-worker started")
	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("auditor stopped with error", zap.Error(err))
	}
	log.Info("counter-audit-worker stopped")
}
