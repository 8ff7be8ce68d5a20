package events

// Evento publicado no tópico "bet_deleted" quando uma aposta é removida.
type BetDeleted struct {
	BetID    int   `json:"bet_id"`
	UserID   int   `json:"user_id"`
	TsUnixMs int64 `json:"ts_unix_ms"`
}
