package agent_test

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/broker"
	httpapi "github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/http"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/service"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/store"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/ws"
	"github.com/radieske/bet-ledger-sync-poc/internal/sync-agent/agent"
	"github.com/radieske/bet-ledger-sync-poc/internal/sync-agent/client"
)

// sobe o ledger-service completo (REST + ws) num httptest.Server
func newLedger(t *testing.T) (*httptest.Server, *store.Store, *service.Service) {
	t.Helper()
	st := store.New()
	store.Seed(st)
	br := broker.New()
	svc := service.New(zap.NewNop(), st, br, nil)

	hub := ws.NewHub(zap.NewNop(), func(r *http.Request) bool { return true })
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ws.StartForwarder(ctx, br, hub)

	api := &httpapi.API{Log: zap.NewNop(), Store: st, Svc: svc}
	mux := http.NewServeMux()
	mux.Handle("/v1/", api.Router())
	mux.HandleFunc("/ws", hub.HandleWS)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, st, svc
}

func newAgent(t *testing.T, ts *httptest.Server) *agent.Agent {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	return agent.New(zap.NewNop(), client.New(ts.URL), wsURL)
}

func TestBootstrapPushesInitialAggregate(t *testing.T) {
	ts, st, _ := newLedger(t)
	ag := newAgent(t, ts)

	if err := ag.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	c, err := st.GetCounter(store.CounterID)
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	// só o seed no ledger: o push inicial é zero, mas carimbado com o agente
	if c.PayoutCount != 0 || c.BetAmountCount != 0 {
		t.Errorf("initial aggregate = %+v, want zeros", c)
	}
	if c.Version != 1 || c.Origin != ag.ID {
		t.Errorf("counter = %+v, want version 1 from %s", c, ag.ID)
	}
}

func TestPlaceBetRecomputesAndPushes(t *testing.T) {
	ts, st, _ := newLedger(t)
	ag := newAgent(t, ts)
	ctx := context.Background()

	if err := ag.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	b, err := ag.PlaceBet(ctx, 1, "100", "2")
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if b.BetAmount != 100 || b.Chance != 2 {
		t.Fatalf("bet = %+v", b)
	}

	c, err := st.GetCounter(store.CounterID)
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	// win é sorteado no servidor: o sinal varia, o módulo não
	if math.Abs(c.BetAmountCount-100) > 1e-9 || math.Abs(math.Abs(c.PayoutCount)-50) > 1e-9 {
		t.Errorf("aggregate = %+v, want amount 100 and |payout| 50", c)
	}

	if _, err := ag.RemoveBet(ctx, b.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	c, _ = st.GetCounter(store.CounterID)
	if c.PayoutCount != 0 || c.BetAmountCount != 0 {
		t.Errorf("aggregate after remove = %+v, want zeros", c)
	}
}

func TestPlaceBetRefusesBadInput(t *testing.T) {
	ts, st, _ := newLedger(t)
	ag := newAgent(t, ts)
	ctx := context.Background()

	if err := ag.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	before, _ := st.GetCounter(store.CounterID)

	for _, tc := range []struct{ amount, chance string }{
		{"abc", "2"},
		{"10", "zero"},
		{"-5", "2"},
		{"10", "0"},
	} {
		if _, err := ag.PlaceBet(ctx, 1, tc.amount, tc.chance); !errors.Is(err, agent.ErrValidation) {
			t.Errorf("PlaceBet(%q, %q) err = %v, want ErrValidation", tc.amount, tc.chance, err)
		}
	}

	// entrada recusada localmente: nenhuma mutação chegou ao servidor
	if got := len(st.ListBets()); got != 3 {
		t.Errorf("bets on server = %d, want only the 3 seeded", got)
	}
	after, _ := st.GetCounter(store.CounterID)
	if after.Version != before.Version {
		t.Errorf("counter version moved from %d to %d on refused input", before.Version, after.Version)
	}
}

// O display do agente é o eco do servidor: depois de outro cliente empurrar um
// valor, o agente converge pra ele mesmo tendo calculado outro localmente.
func TestDisplayConvergesToLastAccepted(t *testing.T) {
	ts, _, svc := newLedger(t)
	ag := newAgent(t, ts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ag.Run(ctx) }()

	// espera o agente assinar (o push do bootstrap ainda não tem assinante)
	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := svc.UpdateCounter(ctx, store.CounterID, 77, 123, "other-client"); err != nil {
			t.Fatalf("push: %v", err)
		}
		if ev, ok := ag.Display(); ok && ev.PayoutCount == 77 {
			if ev.Origin != "other-client" {
				t.Errorf("display origin = %q, want other-client", ev.Origin)
			}
			return
		}
		if time.Now().After(deadline) {
			ev, ok := ag.Display()
			t.Fatalf("agent never converged; display = %+v (received=%v)", ev, ok)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
