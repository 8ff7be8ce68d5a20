package kafka

import (
	"testing"
	"time"
)

func TestNewWriterTemTimeoutsCurtos(t *testing.T) {
	w := NewWriter("localhost:9092,localhost:9093", "bet_created")

	if w.Topic != "bet_created" {
		t.Errorf("topico esperado bet_created, veio %q", w.Topic)
	}

	// o publish do feed roda dentro da seção crítica de mutação: sem timeout,
	// um broker fora do ar travaria todas as mutações
	if w.WriteTimeout <= 0 || w.WriteTimeout > 5*time.Second {
		t.Errorf("WriteTimeout fora do esperado: %v", w.WriteTimeout)
	}

	if w.ReadTimeout <= 0 {
		t.Errorf("ReadTimeout deveria estar definido, veio %v", w.ReadTimeout)
	}
}

func TestNewGroupReaderConfig(t *testing.T) {
	r := NewGroupReader("localhost:9092", "counter-audit", []string{"bet_created", "bet_deleted"})
	defer r.Close()

	cfg := r.Config()
	if cfg.GroupID != "counter-audit" {
		t.Errorf("group esperado counter-audit, veio %q", cfg.GroupID)
	}

	if len(cfg.GroupTopics) != 2 {
		t.Errorf("esperava 2 topicos, veio %d", len(cfg.GroupTopics))
	}
}
