package events

// Evento publicado no tópico "bet_created" a cada aposta aceita pelo ledger.
type BetCreated struct {
	BetID     int     `json:"bet_id"`
	UserID    int     `json:"user_id"`
	BetAmount float64 `json:"bet_amount"`
	Chance    float64 `json:"chance"`
	Payout    float64 `json:"payout"`
	Win       int     `json:"win"` // 0 | 1
	TsUnixMs  int64   `json:"ts_unix_ms"`
}
