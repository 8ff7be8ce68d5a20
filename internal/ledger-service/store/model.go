package store

// User é o registro de usuário mantido em memória.
// O saldo é colaborador externo aqui: o core só o lê e sobrescreve via updateUser.
type User struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}

// Bet é o registro de aposta do ledger. Imutável após criada; só sai por delete.
type Bet struct {
	ID        int     `json:"id"`
	UserID    int     `json:"userId"`
	BetAmount float64 `json:"betAmount"`
	Chance    float64 `json:"chance"` // divisor de odds (> 0)
	Payout    float64 `json:"payout"`
	Win       int     `json:"win"` // 0 | 1
}

// Counter é o agregado derivado do ledger. Singleton (CounterID) pela vida do
// processo; é cache do cálculo sobre as apostas não-default, não fonte de verdade.
type Counter struct {
	ID             int     `json:"id"`
	PayoutCount    float64 `json:"payoutCount"`
	BetAmountCount float64 `json:"betAmountCount"`
	Version        int64   `json:"version"`
	Origin         string  `json:"origin,omitempty"`
}

// CounterID é o identificador fixo do contador singleton.
const CounterID = 1
