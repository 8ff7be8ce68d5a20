package broker_test

import (
	"testing"

	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/broker"
)

const channel = "counter_updates"

// drain lê tudo que está pendente no stream sem bloquear
func drain(s *broker.Subscription) []any {
	var out []any
	for {
		select {
		case m, ok := <-s.C:
			if !ok {
				return out
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestFanOutSameOrder(t *testing.T) {
	b := broker.New()

	subs := []*broker.Subscription{
		b.Subscribe(channel),
		b.Subscribe(channel),
		b.Subscribe(channel),
	}

	b.Publish(channel, "v1")
	b.Publish(channel, "v2")

	// quem entra depois do publish não recebe nada dele
	late := b.Subscribe(channel)

	for i, s := range subs {
		got := drain(s)
		if len(got) != 2 || got[0] != "v1" || got[1] != "v2" {
			t.Errorf("subscriber %d received %v, want [v1 v2] in order", i, got)
		}
	}
	if got := drain(late); len(got) != 0 {
		t.Errorf("late subscriber received %v, want nothing", got)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := broker.New()
	// não pode entrar em pânico nem bloquear
	b.Publish(channel, "nobody")
}

func TestCancelIdempotent(t *testing.T) {
	b := broker.New()
	s := b.Subscribe(channel)

	s.Cancel()
	s.Cancel() // segunda vez é no-op

	if n := b.Subscribers(channel); n != 0 {
		t.Errorf("subscribers after cancel = %d, want 0", n)
	}

	// stream fechado: recv retorna imediatamente com ok=false
	if _, ok := <-s.C; ok {
		t.Error("stream still open after cancel")
	}

	// publicar num canal que voltou a zero assinantes é seguro
	b.Publish(channel, "after-cancel")
}

func TestCancelAfterDelivery(t *testing.T) {
	b := broker.New()
	s := b.Subscribe(channel)

	b.Publish(channel, "v1")
	s.Cancel()

	// o que foi entregue antes do cancel ainda está no buffer
	if m, ok := <-s.C; !ok || m != "v1" {
		t.Errorf("buffered value after cancel = %v (ok=%v), want v1", m, ok)
	}
	if _, ok := <-s.C; ok {
		t.Error("stream should be closed after draining")
	}
}

func TestSlowSubscriberEvicted(t *testing.T) {
	b := broker.New()
	slow := b.Subscribe(channel)
	fast := b.Subscribe(channel)

	// estoura o buffer do assinante lento; o rápido drena em paralelo
	for i := 0; i < 200; i++ {
		b.Publish(channel, i)
		drain(fast)
	}

	if n := b.Subscribers(channel); n != 1 {
		t.Fatalf("subscribers after eviction = %d, want 1 (only the draining one)", n)
	}

	// o stream do lento terminou; cancelar depois disso continua seguro
	drain(slow)
	slow.Cancel()
}
