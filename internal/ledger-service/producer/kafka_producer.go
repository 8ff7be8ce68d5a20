package producer

import (
	"context"
	"encoding/json"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/radieske/bet-ledger-sync-poc/internal/shared/kafka"
	"github.com/radieske/bet-ledger-sync-poc/pkg/contracts/events"
)

// KafkaFeed publica os eventos de mutação do ledger nos tópicos dedicados.
// Um writer por tópico; a chave usa o id do registro pra manter a partição.
type KafkaFeed struct {
	BetCreated     *kafkago.Writer
	BetDeleted     *kafkago.Writer
	CounterUpdated *kafkago.Writer
}

func NewKafkaFeed(brokers string, topicCreated, topicDeleted, topicCounter string) *KafkaFeed {
	return &KafkaFeed{
		BetCreated:     kafka.NewWriter(brokers, topicCreated),
		BetDeleted:     kafka.NewWriter(brokers, topicDeleted),
		CounterUpdated: kafka.NewWriter(brokers, topicCounter),
	}
}

func (f *KafkaFeed) PublishBetCreated(ctx context.Context, e events.BetCreated) error {
	b, _ := json.Marshal(e)
	return kafka.WriteJSON(ctx, f.BetCreated, strconv.Itoa(e.BetID), b)
}

func (f *KafkaFeed) PublishBetDeleted(ctx context.Context, e events.BetDeleted) error {
	b, _ := json.Marshal(e)
	return kafka.WriteJSON(ctx, f.BetDeleted, strconv.Itoa(e.BetID), b)
}

func (f *KafkaFeed) PublishCounterUpdated(ctx context.Context, e events.CounterUpdated) error {
	b, _ := json.Marshal(e)
	return kafka.WriteJSON(ctx, f.CounterUpdated, strconv.Itoa(e.CounterID), b)
}

func (f *KafkaFeed) Close() {
	_ = f.BetCreated.Close()
	_ = f.BetDeleted.Close()
	_ = f.CounterUpdated.Close()
}
