package topics

const (
	// Mutações do ledger
	BetCreated = "bet_created"
	BetDeleted = "bet_deleted"

	// Contador agregado
	CounterUpdated = "counter_updated"
)

// Canal lógico do broadcaster in-process (assinaturas de contador)
const ChannelCounterUpdates = "counter_updates"
