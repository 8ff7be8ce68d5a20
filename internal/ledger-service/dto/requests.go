package dto

type CreateBetRequest struct {
	UserID    int     `json:"userId"`
	BetAmount float64 `json:"betAmount"`
	Chance    float64 `json:"chance"`

	// Opcionais: ausentes, o servidor calcula payout e sorteia win
	Payout *float64 `json:"payout,omitempty"`
	Win    *int     `json:"win,omitempty"`
}

type UpdateUserRequest struct {
	Name    *string  `json:"name,omitempty"`
	Balance *float64 `json:"balance,omitempty"`
}

type UpdateCounterRequest struct {
	PayoutCount    float64 `json:"payoutCount"`
	BetAmountCount float64 `json:"betAmountCount"`
	Origin         string  `json:"origin,omitempty"` // identidade do agente que calculou
}
