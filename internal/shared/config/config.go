package config

import (
	"os"
	"strconv"

	ctopics "github.com/radieske/bet-ledger-sync-poc/pkg/contracts/topics"
)

// Config centraliza variáveis de ambiente e parâmetros de execução dos serviços
// Inclui conexões, tópicos, canais, URLs e portas
type Config struct {
	Env         string // "local", "dev", "prod"
	ServiceName string // ex: "ledger-service", "sync-agent", ...

	RedisAddr    string
	KafkaBrokers string // "a:9092,b:9092"

	// Tópicos/canais
	TopicBetCreated     string
	TopicBetDeleted     string
	TopicCounterUpdated string
	RedisPubSubChannel  string

	// Endereços do ledger-service vistos pelos agents
	LedgerURL   string
	LedgerWSURL string

	// Simulação de clientes (sync-agent)
	AgentCount      int
	AgentIntervalMs int

	// Portas do serviço atual
	HTTPPort    string // Porta pública (API REST + /ws)
	MetricsPort string // Porta exclusiva para /metrics e /healthz
}

// Load carrega variáveis de ambiente e define defaults para cada serviço
// Resolve portas e tópicos conforme o SERVICE_NAME
func Load() Config {
	svc := getEnv("SERVICE_NAME", "")
	env := getEnv("ENV", "local")

	cfg := Config{
		Env:         env,
		ServiceName: svc,

		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),

		TopicBetCreated:     getEnv("KAFKA_TOPIC_BET_CREATED", ctopics.BetCreated),
		TopicBetDeleted:     getEnv("KAFKA_TOPIC_BET_DELETED", ctopics.BetDeleted),
		TopicCounterUpdated: getEnv("KAFKA_TOPIC_COUNTER_UPDATED", ctopics.CounterUpdated),

		RedisPubSubChannel: getEnv("REDIS_PUBSUB_CHANNEL", "counter_updates_broadcast"),

		LedgerURL:   getEnv("LEDGER_URL", "http://localhost:8084"),
		LedgerWSURL: getEnv("LEDGER_WS_URL", "ws://localhost:8084/ws"),

		AgentCount:      getEnvInt("AGENT_COUNT", 3),
		AgentIntervalMs: getEnvInt("AGENT_INTERVAL_MS", 2000),
	}

	// Define portas padrão para cada serviço
	switch svc {
	case "ledger-service":
		cfg.HTTPPort = getEnv("HTTP_PORT_LEDGER", "8084")
		cfg.MetricsPort = getEnv("METRICS_PORT_LEDGER", "9100")
	case "sync-agent":
		cfg.HTTPPort = getEnv("HTTP_PORT_AGENT", "") // agent não expõe HTTP público
		cfg.MetricsPort = getEnv("METRICS_PORT_AGENT", "9101")
	case "counter-audit-worker":
		cfg.HTTPPort = getEnv("HTTP_PORT_AUDIT", "")
		cfg.MetricsPort = getEnv("METRICS_PORT_AUDIT", "9102")
	default:
		cfg.HTTPPort = getEnv("HTTP_PORT", "8084")
		cfg.MetricsPort = getEnv("METRICS_PORT", "9100")
	}

	return cfg
}

// getEnv retorna o valor da variável de ambiente ou o default
func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// getEnvInt idem, com parse de inteiro; valor inválido cai no default
func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
