package store

// Seed popula o estado inicial herdado do sistema de referência: três usuários
// e três apostas default (uma do usuário 1, duas do usuário 2). As apostas
// default entram na tabela de exclusão e nunca influenciam o agregado.
func Seed(s *Store) {
	s.PutUser(User{ID: 1, Name: "John Morris", Balance: 10})
	s.PutUser(User{ID: 2, Name: "Alan Davies", Balance: 5})
	s.PutUser(User{ID: 3, Name: "Peter Williams", Balance: 150})

	seedBets := []struct {
		userID    int
		betAmount float64
		chance    float64
		payout    float64
		win       int
	}{
		{1, 55, 4, 50, 0},
		{2, 8, 2, 4, 0},
		{2, 550, 8, 100, 0},
	}

	for _, sb := range seedBets {
		b := s.CreateBet(sb.userID, sb.betAmount, sb.chance, sb.payout, sb.win)
		s.MarkDefaultBet(b.UserID, b.ID)
	}
}
