package dto

// ErrorResponse é o corpo padrão de falha: mensagem, sem dado parcial.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DefaultBetsResponse expõe a tabela de exclusão: userId -> ids de apostas seed.
type DefaultBetsResponse struct {
	Defaults map[int][]int `json:"defaults"`
}
