package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// Channel: opcional; vazio assume o canal de contadores
//
// CounterID/PayoutCount/BetAmountCount reproduzem os campos de entrada da
// assinatura do protocolo original: são aceitos mas não filtram nada; o
// stream devolve todo contador publicado no canal.
type ClientMsg struct {
	Type           string  `json:"type"`
	Channel        string  `json:"channel,omitempty"`
	CounterID      int     `json:"counterId,omitempty"`
	PayoutCount    float64 `json:"payoutCount,omitempty"`
	BetAmountCount float64 `json:"betAmountCount,omitempty"`
}
