package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/broker"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/ws"
	"github.com/radieske/bet-ledger-sync-poc/pkg/contracts/events"
	"github.com/radieske/bet-ledger-sync-poc/pkg/contracts/topics"
)

func newHubServer(t *testing.T) (*ws.Hub, *httptest.Server) {
	t.Helper()
	hub := ws.NewHub(zap.NewNop(), func(r *http.Request) bool { return true })
	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(ts.Close)
	return hub, ts
}

func dialAndSubscribe(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := conn.WriteJSON(ws.ClientMsg{Type: "subscribe"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	// ping/pong confirma que o subscribe já foi processado pelo reader
	if err := conn.WriteJSON(ws.ClientMsg{Type: "ping"}); err != nil {
		t.Fatalf("ping: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pong map[string]string
	if err := conn.ReadJSON(&pong); err != nil || pong["type"] != "pong" {
		t.Fatalf("pong = %v, err = %v", pong, err)
	}
	return conn
}

func readCounter(t *testing.T, conn *websocket.Conn) events.CounterUpdated {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev events.CounterUpdated
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("unmarshal %s: %v", msg, err)
	}
	return ev
}

func TestHubFanOut(t *testing.T) {
	hub, ts := newHubServer(t)

	conns := []*websocket.Conn{
		dialAndSubscribe(t, ts),
		dialAndSubscribe(t, ts),
		dialAndSubscribe(t, ts),
	}

	hub.Broadcast(topics.ChannelCounterUpdates, events.CounterUpdated{CounterID: 1, PayoutCount: 50, Version: 1})
	hub.Broadcast(topics.ChannelCounterUpdates, events.CounterUpdated{CounterID: 1, PayoutCount: 70, Version: 2})

	for i, conn := range conns {
		first := readCounter(t, conn)
		second := readCounter(t, conn)
		if first.Version != 1 || second.Version != 2 {
			t.Errorf("conn %d got versions %d, %d, want 1, 2", i, first.Version, second.Version)
		}
	}
}

func TestLateSubscriberGetsNothing(t *testing.T) {
	hub, ts := newHubServer(t)

	early := dialAndSubscribe(t, ts)
	hub.Broadcast(topics.ChannelCounterUpdates, events.CounterUpdated{CounterID: 1, Version: 1})
	readCounter(t, early)

	late := dialAndSubscribe(t, ts)
	_ = late.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := late.ReadMessage(); err == nil {
		t.Error("late subscriber received a payload published before it joined")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub, ts := newHubServer(t)
	conn := dialAndSubscribe(t, ts)

	if err := conn.WriteJSON(ws.ClientMsg{Type: "unsubscribe"}); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	// desinscrever de novo não dá erro (idempotente)
	if err := conn.WriteJSON(ws.ClientMsg{Type: "unsubscribe"}); err != nil {
		t.Fatalf("second unsubscribe: %v", err)
	}
	// ping confirma que ambos já foram processados
	if err := conn.WriteJSON(ws.ClientMsg{Type: "ping"}); err != nil {
		t.Fatalf("ping: %v", err)
	}
	var pong map[string]string
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("pong: %v", err)
	}

	hub.Broadcast(topics.ChannelCounterUpdates, events.CounterUpdated{CounterID: 1, Version: 1})

	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("unsubscribed connection still received a payload")
	}
}

// Pongs saem do goroutine de leitura da conexão e broadcasts saem do
// forwarder; os dois escrevem na mesma conexão e precisam ser serializados.
// Sem o mutex de escrita por conexão o gorilla entra em pânico aqui.
func TestPingDuringBroadcastStorm(t *testing.T) {
	hub, ts := newHubServer(t)
	conn := dialAndSubscribe(t, ts)

	const rounds = 50
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < rounds; i++ {
			hub.Broadcast(topics.ChannelCounterUpdates, events.CounterUpdated{CounterID: 1, Version: int64(i + 1)})
		}
	}()
	go func() {
		for i := 0; i < rounds; i++ {
			_ = conn.WriteJSON(ws.ClientMsg{Type: "ping"})
		}
	}()

	pongs, counters := 0, 0
	for pongs < rounds || counters < rounds {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read after %d pongs e %d contadores: %v", pongs, counters, err)
		}
		var payload map[string]any
		if err := json.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("unmarshal %s: %v", msg, err)
		}
		if payload["type"] == "pong" {
			pongs++
		} else {
			counters++
		}
	}
	<-done
}

// O forwarder liga o broker ao hub: um updateCounter publicado no broker
// chega na conexão WebSocket assinada.
func TestForwarderBridgesBrokerToHub(t *testing.T) {
	hub, ts := newHubServer(t)
	br := broker.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ws.StartForwarder(ctx, br, hub)

	conn := dialAndSubscribe(t, ts)

	br.Publish(topics.ChannelCounterUpdates, events.CounterUpdated{CounterID: 1, PayoutCount: 42, Version: 7})

	ev := readCounter(t, conn)
	if ev.PayoutCount != 42 || ev.Version != 7 {
		t.Errorf("forwarded event = %+v", ev)
	}
}
