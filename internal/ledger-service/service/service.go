package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/broker"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/store"
	"github.com/radieske/bet-ledger-sync-poc/pkg/contracts/events"
	"github.com/radieske/bet-ledger-sync-poc/pkg/contracts/topics"
)

var ErrInvalidInput = errors.New("invalid input")

// Feed publica os eventos de mutação no pipeline Kafka (auditoria downstream).
type Feed interface {
	PublishBetCreated(ctx context.Context, e events.BetCreated) error
	PublishBetDeleted(ctx context.Context, e events.BetDeleted) error
	PublishCounterUpdated(ctx context.Context, e events.CounterUpdated) error
}

// Service é o mutation service: toda escrita no ledger passa por aqui, uma por
// vez (mu). Cada mutação é uma transição atômica + efeito de notificação; não
// há rollback: falha na notificação não desfaz a escrita já aplicada.
type Service struct {
	mu     sync.Mutex
	log    *zap.Logger
	store  *store.Store
	broker *broker.Broker
	feed   Feed // pode ser nil: eventos são descartados

	// Chamado após cada updateCounter aceito; usado pra repassar o broadcast
	// ao Redis Pub/Sub quando o serviço roda com múltiplas réplicas.
	OnCounterAccepted func(events.CounterUpdated)

	// métricas (counter++ por operação)
	OnMutation func(kind string)
}

func New(log *zap.Logger, st *store.Store, br *broker.Broker, feed Feed) *Service {
	return &Service{log: log, store: st, broker: br, feed: feed}
}

// CreateBet aceita uma aposta nova. Payout e win são opcionais no protocolo:
// nil faz o servidor calcular payout = betAmount * (1/chance) e sortear win.
// Quando vêm preenchidos, o servidor confia no cliente (mesma fronteira de
// confiança do updateCounter). Nenhum recálculo de agregado acontece aqui: o
// agregado é responsabilidade do cliente (protocolo pull, não push).
func (s *Service) CreateBet(ctx context.Context, userID int, betAmount, chance float64, payout *float64, win *int) (store.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if betAmount <= 0 || chance <= 0 {
		return store.Bet{}, ErrInvalidInput
	}
	if _, err := s.store.GetUser(userID); err != nil {
		return store.Bet{}, err
	}

	p := betAmount * (1 / chance)
	if payout != nil {
		p = *payout
	}
	w := rand.Intn(2)
	if win != nil {
		if *win != 0 && *win != 1 {
			return store.Bet{}, ErrInvalidInput
		}
		w = *win
	}

	b := s.store.CreateBet(userID, betAmount, chance, p, w)
	s.mutated("create_bet")

	if s.feed != nil {
		err := s.feed.PublishBetCreated(ctx, events.BetCreated{
			BetID:     b.ID,
			UserID:    b.UserID,
			BetAmount: b.BetAmount,
			Chance:    b.Chance,
			Payout:    b.Payout,
			Win:       b.Win,
			TsUnixMs:  time.Now().UnixMilli(),
		})
		if err != nil {
			s.log.Warn("bet_created publish failed", zap.Int("bet_id", b.ID), zap.Error(err))
		}
	}
	return b, nil
}

// DeleteBet remove por id; ErrNotFound se ausente.
func (s *Service) DeleteBet(ctx context.Context, id int) (store.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.store.DeleteBet(id)
	if err != nil {
		return store.Bet{}, err
	}
	s.mutated("delete_bet")

	if s.feed != nil {
		err := s.feed.PublishBetDeleted(ctx, events.BetDeleted{
			BetID:    b.ID,
			UserID:   b.UserID,
			TsUnixMs: time.Now().UnixMilli(),
		})
		if err != nil {
			s.log.Warn("bet_deleted publish failed", zap.Int("bet_id", b.ID), zap.Error(err))
		}
	}
	return b, nil
}

// UpdateUser substitui os campos informados; ErrNotFound se o id não existe.
func (s *Service) UpdateUser(ctx context.Context, id int, name *string, balance *float64) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.store.UpdateUser(id, name, balance)
	if err != nil {
		return store.User{}, err
	}
	s.mutated("update_user")
	return u, nil
}

// UpdateCounter sobrescreve o contador com o valor calculado pelo cliente e
// publica o novo valor no canal de broadcast. Last-write-wins: duas escritas
// concorrentes são aceitas na ordem em que chegam aqui e a última vence (risco
// de consistência documentado do protocolo, não corrigido de propósito). A
// versão carimbada pelo servidor ordena e atribui cada broadcast.
func (s *Service) UpdateCounter(ctx context.Context, id int, payoutCount, betAmountCount float64, origin string) (store.Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.SetCounter(id, payoutCount, betAmountCount, origin)
	if err != nil {
		return store.Counter{}, err
	}
	s.mutated("update_counter")

	ev := events.CounterUpdated{
		CounterID:      c.ID,
		PayoutCount:    c.PayoutCount,
		BetAmountCount: c.BetAmountCount,
		Version:        c.Version,
		Origin:         c.Origin,
		TsUnixMs:       time.Now().UnixMilli(),
	}

	// fan-out local; a escrita no store e o publish ficam sob o mesmo mutex
	// pra garantir broadcast na ordem de processamento
	s.broker.Publish(topics.ChannelCounterUpdates, ev)

	if s.OnCounterAccepted != nil {
		s.OnCounterAccepted(ev)
	}
	if s.feed != nil {
		if err := s.feed.PublishCounterUpdated(ctx, ev); err != nil {
			s.log.Warn("counter_updated publish failed", zap.Error(err))
		}
	}
	return c, nil
}

func (s *Service) mutated(kind string) {
	if s.OnMutation != nil {
		s.OnMutation(kind)
	}
}
