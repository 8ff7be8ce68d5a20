package agent

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/aggregate"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/dto"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/store"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/ws"
	"github.com/radieske/bet-ledger-sync-poc/internal/sync-agent/client"
	"github.com/radieske/bet-ledger-sync-poc/pkg/contracts/events"
	"github.com/radieske/bet-ledger-sync-poc/pkg/contracts/topics"
)

// ErrValidation: entrada numérica malformada, recusada antes de submeter a
// mutação. Recuperada localmente, nada chega ao servidor.
var ErrValidation = errors.New("validation failure")

// Agent é o loop recompute-and-push de um cliente: a cada mutação local no
// ledger ele recalcula o agregado sobre a própria visão e empurra o resultado
// pro servidor; o que exibe, porém, é sempre o último valor recebido do stream
// de broadcast (o eco do servidor, não o cálculo próprio). É isso que faz
// todos os clientes convergirem pro último valor aceito.
type Agent struct {
	ID    string // identidade enviada como origin nos pushes
	Log   *zap.Logger
	API   *client.Client
	WSURL string

	defaults map[int]map[int]struct{}

	mu       sync.Mutex
	display  events.CounterUpdated
	received bool

	// métricas/testes: chamado a cada contador recebido do stream
	OnUpdate func(events.CounterUpdated)
}

func New(log *zap.Logger, api *client.Client, wsURL string) *Agent {
	return &Agent{
		ID:    uuid.NewString(),
		Log:   log,
		API:   api,
		WSURL: wsURL,
	}
}

// Bootstrap busca a tabela de exclusão, calcula o agregado inicial sobre o
// ledger completo e faz o primeiro push. Chamado uma vez antes de assinar.
func (a *Agent) Bootstrap(ctx context.Context) error {
	defaults, err := a.API.DefaultBets(ctx)
	if err != nil {
		return err
	}
	a.defaults = defaults
	return a.refreshAndPush(ctx)
}

// Run executa o ciclo completo: bootstrap, depois o loop de assinatura com
// reconexão. Em caso de desconexão, tenta de novo com backoff.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.Bootstrap(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			a.Log.Info("context canceled, stopping agent")
			return ctx.Err()
		default:
			if err := a.connectAndListen(ctx); err != nil {
				a.Log.Warn("subscription closed", zap.Error(err))
				time.Sleep(3 * time.Second) // aguarda antes de reconectar
			}
		}
	}
}

// PlaceBet valida a entrada crua do usuário, cria a aposta e dispara o
// recompute-and-push. Entrada inválida nunca vira mutação.
func (a *Agent) PlaceBet(ctx context.Context, userID int, amount, chance string) (store.Bet, error) {
	betAmount, err := parsePositive(amount)
	if err != nil {
		return store.Bet{}, err
	}
	betChance, err := parsePositive(chance)
	if err != nil {
		return store.Bet{}, err
	}

	b, err := a.API.CreateBet(ctx, dto.CreateBetRequest{
		UserID:    userID,
		BetAmount: betAmount,
		Chance:    betChance,
	})
	if err != nil {
		return store.Bet{}, err
	}

	if err := a.refreshAndPush(ctx); err != nil {
		// a aposta já está no ledger; só o push falhou (sem rollback)
		a.Log.Warn("recompute push failed after create", zap.Int("bet_id", b.ID), zap.Error(err))
	}
	return b, nil
}

// RemoveBet apaga a aposta e dispara o recompute-and-push.
func (a *Agent) RemoveBet(ctx context.Context, id int) (store.Bet, error) {
	b, err := a.API.DeleteBet(ctx, id)
	if err != nil {
		return store.Bet{}, err
	}
	if err := a.refreshAndPush(ctx); err != nil {
		a.Log.Warn("recompute push failed after delete", zap.Int("bet_id", id), zap.Error(err))
	}
	return b, nil
}

// refreshAndPush refaz a lista local de apostas, recalcula o agregado e
// persiste o resultado via updateCounter (que o servidor ecoa a todos).
func (a *Agent) refreshAndPush(ctx context.Context) error {
	bets, err := a.API.ListBets(ctx)
	if err != nil {
		return err
	}
	totals := aggregate.Compute(bets, a.defaults)
	_, err = a.API.UpdateCounter(ctx, store.CounterID, totals.PayoutCount, totals.BetAmountCount, a.ID)
	return err
}

// Display devolve o último contador recebido do stream de broadcast (o valor
// exibido) e se algum já chegou.
func (a *Agent) Display() (events.CounterUpdated, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.display, a.received
}

// connectAndListen abre o WebSocket, assina o canal de contadores e consome o
// stream até a conexão cair ou o contexto encerrar.
func (a *Agent) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.WSURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(ws.ClientMsg{Type: "subscribe", Channel: topics.ChannelCounterUpdates}); err != nil {
		return err
	}
	a.Log.Info("subscribed to counter updates", zap.String("url", a.WSURL))

	// derruba a conexão quando o contexto encerra, liberando o ReadMessage
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		var ev events.CounterUpdated
		if err := json.Unmarshal(message, &ev); err != nil {
			a.Log.Warn("invalid broadcast payload", zap.Error(err))
			continue
		}
		if ev.CounterID == 0 {
			continue // pong ou mensagem de controle
		}

		a.mu.Lock()
		a.display = ev
		a.received = true
		a.mu.Unlock()

		if a.OnUpdate != nil {
			a.OnUpdate(ev)
		}
	}
}

// parsePositive valida entrada numérica de formulário: número finito e > 0
func parsePositive(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, ErrValidation
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, ErrValidation
	}
	return v, nil
}
