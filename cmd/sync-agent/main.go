package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bet-ledger-sync-poc/internal/shared/config"
	"github.com/radieske/bet-ledger-sync-poc/internal/shared/logger"
	"github.com/radieske/bet-ledger-sync-poc/internal/shared/metrics"
	"github.com/radieske/bet-ledger-sync-poc/internal/sync-agent/agent"
	"github.com/radieske/bet-ledger-sync-poc/internal/sync-agent/client"
	"github.com/radieske/bet-ledger-sync-poc/pkg/contracts/events"
)

// Roda N agents independentes contra o mesmo ledger-service: cada um mantém a
// própria visão, recalcula e empurra o agregado a cada mutação que provoca, e
// exibe sempre o último broadcast recebido. A simulação cria e apaga apostas
// aleatórias pra exercitar a convergência.
func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	received := prometheus.NewCounter(prometheus.CounterOpts{Name: "agent_broadcasts_received_total", Help: "contadores recebidos do stream"})
	placed := prometheus.NewCounter(prometheus.CounterOpts{Name: "agent_bets_placed_total", Help: "apostas criadas pela simulação"})
	deleted := prometheus.NewCounter(prometheus.CounterOpts{Name: "agent_bets_deleted_total", Help: "apostas removidas pela simulação"})
	simErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "agent_sim_errors_total", Help: "falhas de chamada na simulação"})
	prometheus.MustRegister(received, placed, deleted, simErrors)

	metricsSrv := metrics.StartServer(log, cfg.MetricsPort, nil)
	defer metricsSrv.Close()

	interval := time.Duration(cfg.AgentIntervalMs) * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < cfg.AgentCount; i++ {
		ag := agent.New(log.With(zap.Int("agent", i)), client.New(cfg.LedgerURL), cfg.LedgerWSURL)
		ag.OnUpdate = func(events.CounterUpdated) { received.Inc() }

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ag.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				ag.Log.Error("agent stopped", zap.Error(err))
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			simulate(ctx, ag, interval, func() { placed.Inc() }, func() { deleted.Inc() }, func() { simErrors.Inc() })
		}()
	}

	log.Info("sync-agents running", zap.Int("count", cfg.AgentCount))
	wg.Wait()
	log.Info("sync-agents stopped")
}

// simulate cria apostas aleatórias e de vez em quando apaga uma das próprias
func simulate(ctx context.Context, ag *agent.Agent, interval time.Duration, onPlaced, onDeleted, onError func()) {
	var mine []int

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		// 1 em 4 remove uma aposta própria, se houver
		if len(mine) > 0 && rand.Intn(4) == 0 {
			id := mine[rand.Intn(len(mine))]
			if _, err := ag.RemoveBet(ctx, id); err != nil {
				if ctx.Err() != nil {
					return
				}
				ag.Log.Warn("simulated delete failed", zap.Int("bet_id", id), zap.Error(err))
				onError()
			} else {
				onDeleted()
			}
			mine = removeID(mine, id)
			continue
		}

		userID := 1 + rand.Intn(3) // usuários do seed
		amount := strconv.Itoa(1 + rand.Intn(100))
		chance := strconv.Itoa(2 << rand.Intn(3)) // 2, 4 ou 8

		b, err := ag.PlaceBet(ctx, userID, amount, chance)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			ag.Log.Warn("simulated bet failed", zap.Error(err))
			onError()
			continue
		}
		mine = append(mine, b.ID)
		onPlaced()
	}
}

func removeID(ids []int, id int) []int {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
