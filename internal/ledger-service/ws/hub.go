package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/broker"
	"github.com/radieske/bet-ledger-sync-poc/pkg/contracts/events"
	"github.com/radieske/bet-ledger-sync-poc/pkg/contracts/topics"
)

// Hub gerencia conexões WebSocket e assinaturas de canais de broadcast
// subs: mapeia canal para o conjunto de conexões inscritas
// writeMu: um mutex de escrita por conexão (gorilla não suporta escritas concorrentes)
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger
	mu       sync.RWMutex
	// channel -> set of connections
	subs    map[string]map[*websocket.Conn]struct{}
	writeMu map[*websocket.Conn]*sync.Mutex
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
		subs:     make(map[string]map[*websocket.Conn]struct{}),
		writeMu:  make(map[*websocket.Conn]*sync.Mutex),
	}
}

// lockFor retorna o mutex de escrita da conexão, criando se necessário
func (h *Hub) lockFor(conn *websocket.Conn) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.writeMu[conn]
	if !ok {
		l = &sync.Mutex{}
		h.writeMu[conn] = l
	}
	return l
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
// Permite subscribe/unsubscribe no canal de contadores e responde a pings
// Erro de entrega derruba só a conexão afetada, nunca o hub
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	wl := h.lockFor(conn)

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		ch := msg.Channel
		if ch == "" {
			ch = topics.ChannelCounterUpdates
		}
		switch msg.Type {
		case "subscribe":
			h.mu.Lock()
			if _, ok := h.subs[ch]; !ok {
				h.subs[ch] = make(map[*websocket.Conn]struct{})
			}
			h.subs[ch][conn] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			// idempotente: desinscrever sem inscrição prévia é no-op
			h.mu.Lock()
			if m, ok := h.subs[ch]; ok {
				delete(m, conn)
				if len(m) == 0 {
					delete(h.subs, ch)
				}
			}
			h.mu.Unlock()
		case "ping":
			// o pong compete com o Broadcast pela mesma conexão
			wl.Lock()
			_ = conn.WriteJSON(map[string]string{"type": "pong"})
			wl.Unlock()
		}
	}
	// Remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for _, set := range h.subs {
		delete(set, conn)
	}
	delete(h.writeMu, conn)
	h.mu.Unlock()
}

// Broadcast envia um contador atualizado para todos os clientes inscritos no canal
func (h *Hub) Broadcast(channel string, ev events.CounterUpdated) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subs[channel]))
	for c := range h.subs[channel] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b, _ := json.Marshal(ev)
	for _, c := range conns {
		wl := h.lockFor(c)
		wl.Lock()
		err := c.WriteMessage(websocket.TextMessage, b)
		wl.Unlock()
		if err != nil {
			// conexão quebrada sai das assinaturas; o reader dela encerra sozinho
			h.mu.Lock()
			for _, set := range h.subs {
				delete(set, c)
			}
			h.mu.Unlock()
		}
	}
}

// StartForwarder assina o broker in-process e repassa cada contador publicado
// para as conexões WebSocket do canal. Encerra com o contexto.
func StartForwarder(ctx context.Context, br *broker.Broker, h *Hub) {
	sub := br.Subscribe(topics.ChannelCounterUpdates)
	go func() {
		defer sub.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-sub.C:
				if !ok {
					return
				}
				if ev, ok := m.(events.CounterUpdated); ok {
					h.Broadcast(topics.ChannelCounterUpdates, ev)
				}
			}
		}
	}()
}
