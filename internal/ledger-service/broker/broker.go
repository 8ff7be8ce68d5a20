package broker

import (
	"sync"
)

// tamanho do buffer de cada assinante; quem parar de drenar é removido
const subscriberBuffer = 64

// Broker é o broadcaster in-process: registro de assinantes por canal nomeado
// e fan-out das publicações para todos os assinantes correntes. Não há replay:
// quem assina depois de um publish não recebe aquele payload.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[int]*Subscription
	nextID int

	// callbacks de métricas (podem ser nil)
	OnSubscribe   func()
	OnUnsubscribe func()
	OnPublish     func()
	OnDropped     func() // assinante removido por buffer cheio
}

// Subscription é o stream vivo de um assinante. C entrega os payloads na ordem
// em que Publish foi chamado; o canal fecha quando o assinante é cancelado ou
// removido por não drenar.
type Subscription struct {
	C <-chan any

	ch      chan any
	channel string
	id      int
	b       *Broker
	once    sync.Once
}

func New() *Broker {
	return &Broker{subs: make(map[string]map[int]*Subscription)}
}

// Subscribe registra um assinante no canal e devolve seu stream.
func (b *Broker) Subscribe(channel string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan any, subscriberBuffer)
	s := &Subscription{C: ch, ch: ch, channel: channel, id: b.nextID, b: b}
	b.nextID++

	if _, ok := b.subs[channel]; !ok {
		b.subs[channel] = make(map[int]*Subscription)
	}
	b.subs[channel][s.id] = s

	if b.OnSubscribe != nil {
		b.OnSubscribe()
	}
	return s
}

// Publish entrega o payload a todos os assinantes correntes do canal, na ordem
// de chamada. Assinante com buffer cheio é desligado na hora: a falha de
// entrega termina só aquele stream, nunca o broker.
func (b *Broker) Publish(channel string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.OnPublish != nil {
		b.OnPublish()
	}

	for id, s := range b.subs[channel] {
		select {
		case s.ch <- payload:
		default:
			delete(b.subs[channel], id)
			close(s.ch)
			if b.OnDropped != nil {
				b.OnDropped()
			}
		}
	}
}

// Cancel desregistra o assinante e fecha o stream. Idempotente: chamadas
// repetidas, ou depois do broker já ter removido o assinante, não têm efeito.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.b.mu.Lock()
		defer s.b.mu.Unlock()

		set, ok := s.b.subs[s.channel]
		if !ok {
			return
		}
		if _, ok := set[s.id]; !ok {
			return // já removido pelo broker (buffer cheio)
		}
		delete(set, s.id)
		close(s.ch)
		if len(set) == 0 {
			delete(s.b.subs, s.channel)
		}
		if s.b.OnUnsubscribe != nil {
			s.b.OnUnsubscribe()
		}
	})
}

// Subscribers conta os assinantes ativos de um canal.
func (b *Broker) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel])
}
