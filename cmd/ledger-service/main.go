package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/broker"
	lhttp "github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/http"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/producer"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/pubsub"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/service"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/store"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/ws"
	"github.com/radieske/bet-ledger-sync-poc/internal/shared/cache"
	"github.com/radieske/bet-ledger-sync-poc/internal/shared/config"
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

	// identidade desta réplica, usada pra filtrar o eco no Redis Pub/Sub
	instanceID := uuid.NewString()
	log.Info("starting ledger-service", zap.String("instance", instanceID))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Estado em memória com seed do sistema de referência
	st := store.New()
	store.Seed(st)

	// Métricas Prometheus
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ledger_mutations_total", Help: "mutações aceitas por tipo"}, []string{"kind"})
	broadcasts := prometheus.NewCounter(prometheus.CounterOpts{Name: "ledger_counter_broadcasts_total", Help: "broadcasts de contador publicados"})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ledger_subscribers", Help: "assinantes ativos no broker"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "ledger_subscribers_dropped_total", Help: "assinantes removidos por buffer cheio"})
	prometheus.MustRegister(mutations, broadcasts, subscribers, dropped)

	// Broadcaster in-process
	br := broker.New()
	br.OnSubscribe = func() { subscribers.Inc() }
	br.OnUnsubscribe = func() { subscribers.Dec() }
	br.OnPublish = func() { broadcasts.Inc() }
	br.OnDropped = func() { subscribers.Dec(); dropped.Inc() }

	// Feed Kafka com os eventos de mutação (consumido pelo counter-audit-worker)
	feed := producer.NewKafkaFeed(cfg.KafkaBrokers, cfg.TopicBetCreated, cfg.TopicBetDeleted, cfg.TopicCounterUpdated)
	defer feed.Close()

	svc := service.New(log, st, br, feed)
	svc.OnMutation = func(kind string) { mutations.WithLabelValues(kind).Inc() }

	// Redis liga as réplicas; sem Redis o serviço roda sozinho, sem bridge
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Warn("redis unavailable, running without cross-replica bridge", zap.Error(err))
	} else {
		defer redisClient.Close()
		bridge := pubsub.NewRedisBroadcaster(redisClient, log, instanceID, cfg.RedisPubSubChannel)
		svc.OnCounterAccepted = bridge.Publish
		pubsub.StartSubscriber(ctx, redisClient, log, instanceID, cfg.RedisPubSubChannel, br)
		log.Info("redis bridge connected", zap.String("channel", cfg.RedisPubSubChannel))
	}

	// Hub WebSocket: lado push do protocolo
	hub := ws.NewHub(log, func(r *http.Request) bool { return true })
	ws.StartForwarder(ctx, br, hub)

	// HTTP público: queries/mutações REST + /ws pras assinaturas
	api := &lhttp.API{Log: log, Store: st, Svc: svc}
	mux := http.NewServeMux()
	mux.Handle("/v1/", api.Router())
	mux.HandleFunc("/ws", hub.HandleWS)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: withCORS(mux),
	}

	// metrics/health
	metricsSrv := metrics.StartServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		if redisClient != nil {
			return redisClient.Ping(ctx).Err()
		}
		return nil
	})

	go func() {
		<-ctx.Done()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		_ = srv.Shutdown(shutCtx)
		_ = metricsSrv.Shutdown(shutCtx)
	}()

	log.Info("ledger-service listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api server failed", zap.Error(err))
	}
	log.Info("ledger-service stopped")
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
