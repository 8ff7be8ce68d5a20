package events

// CounterUpdated é o payload transmitido aos assinantes do canal de contadores
// e publicado no tópico "counter_updated".
//
// Version é atribuída pelo servidor a cada escrita aceita (monótona, ordena o
// broadcast); Origin identifica o agente que calculou o valor. O valor em si é
// last-write-wins: o servidor não recalcula nem valida contra o ledger.
type CounterUpdated struct {
	CounterID      int     `json:"counter_id"`
	PayoutCount    float64 `json:"payout_count"`
	BetAmountCount float64 `json:"bet_amount_count"`
	Version        int64   `json:"version"`
	Origin         string  `json:"origin,omitempty"`
	TsUnixMs       int64   `json:"ts_unix_ms"`
}
