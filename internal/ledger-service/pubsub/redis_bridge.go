package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/broker"
	"github.com/radieske/bet-ledger-sync-poc/pkg/contracts/events"
	"github.com/radieske/bet-ledger-sync-poc/pkg/contracts/topics"
)

// ChannelCounterBroadcast é o canal Redis Pub/Sub que liga as réplicas do
// ledger-service: cada uma republica seus broadcasts locais e injeta os das
// outras no próprio broker.
const ChannelCounterBroadcast = "counter_updates_broadcast"

// Envelope carrega o evento com a identidade da réplica que o originou, pra
// filtrar o eco da própria publicação no caminho de volta.
type Envelope struct {
	Instance string                `json:"instance"`
	Event    events.CounterUpdated `json:"event"`
}

// RedisBroadcaster republica no Redis os contadores aceitos localmente.
// Plugado no OnCounterAccepted do mutation service.
type RedisBroadcaster struct {
	r        *redis.Client
	log      *zap.Logger
	instance string
	channel  string
}

func NewRedisBroadcaster(r *redis.Client, log *zap.Logger, instance, channel string) *RedisBroadcaster {
	if channel == "" {
		channel = ChannelCounterBroadcast
	}
	return &RedisBroadcaster{r: r, log: log, instance: instance, channel: channel}
}

// Publish envia o evento pro canal compartilhado com a identidade da réplica.
func (b *RedisBroadcaster) Publish(ev events.CounterUpdated) {
	payload, _ := json.Marshal(Envelope{Instance: b.instance, Event: ev})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := b.r.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.log.Warn("counter broadcast publish failed", zap.Error(err))
	}
}

// HandleEnvelope decodifica um payload do canal compartilhado e injeta o
// evento no broker local, descartando o eco da própria réplica: esse já
// passou pelo broker quando o mutation service o aceitou. Reinjetar o eco
// duplicaria cada broadcast pros assinantes locais.
func HandleEnvelope(payload []byte, instance string, br *broker.Broker) error {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return err
	}
	if env.Instance == instance {
		return nil
	}
	br.Publish(topics.ChannelCounterUpdates, env.Event)
	return nil
}

// StartSubscriber escuta o canal Redis e repassa cada mensagem pro
// HandleEnvelope, que filtra e injeta no broker local.
func StartSubscriber(ctx context.Context, r *redis.Client, log *zap.Logger, instance, channel string, br *broker.Broker) {
	if channel == "" {
		channel = ChannelCounterBroadcast
	}
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() // encerra a inscrição ao finalizar o contexto
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				if err := HandleEnvelope([]byte(msg.Payload), instance, br); err != nil {
					log.Warn("bridge unmarshal failed", zap.Error(err))
				}
			}
		}
	}()
}
