package aggregate

import (
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/store"
)

// Totals é o par de somatórios derivado do ledger.
type Totals struct {
	PayoutCount    float64 `json:"payoutCount"`
	BetAmountCount float64 `json:"betAmountCount"`
}

// Compute percorre o snapshot de apostas e soma payout assinado (positivo se
// win=1, negativo se win=0) e valor apostado, ignorando qualquer aposta listada
// na tabela de exclusão do seu usuário. Função pura: snapshot igual, resultado
// igual; conjunto filtrado vazio devolve {0, 0}.
func Compute(bets []store.Bet, defaults map[int]map[int]struct{}) Totals {
	var t Totals
	for _, b := range bets {
		if isDefault(defaults, b.UserID, b.ID) {
			continue
		}
		if b.Win == 1 {
			t.PayoutCount += b.Payout
		} else {
			t.PayoutCount -= b.Payout
		}
		t.BetAmountCount += b.BetAmount
	}
	return t
}

func isDefault(defaults map[int]map[int]struct{}, userID, betID int) bool {
	set, ok := defaults[userID]
	if !ok {
		return false
	}
	_, ok = set[betID]
	return ok
}
