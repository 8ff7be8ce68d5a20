package store

import (
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("not found")

// Store guarda o estado residente em memória: usuários, apostas e o contador.
// Não há persistência; reiniciar o processo zera tudo (decisão do sistema).
// Leituras usam RLock; escritas passam todas pelo mutation service, que as
// serializa; o RWMutex aqui protege apenas o acesso concorrente aos maps.
type Store struct {
	mu       sync.RWMutex
	users    map[int]User
	bets     map[int]Bet
	counters map[int]Counter

	// userID -> conjunto de ids de apostas seed, excluídas do agregado
	defaults map[int]map[int]struct{}

	nextBetID int
}

// New cria um Store vazio, sem seed. O contador singleton já existe zerado.
func New() *Store {
	return &Store{
		users:     make(map[int]User),
		bets:      make(map[int]Bet),
		counters:  map[int]Counter{CounterID: {ID: CounterID}},
		defaults:  make(map[int]map[int]struct{}),
		nextBetID: 1,
	}
}

// ListUsers retorna todos os usuários ordenados por id.
func (s *Store) ListUsers() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) GetUser(id int) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// PutUser insere ou substitui um usuário (usado pelo seed).
func (s *Store) PutUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// UpdateUser substitui os campos informados; ponteiro nil mantém o valor atual.
func (s *Store) UpdateUser(id int, name *string, balance *float64) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if name != nil {
		u.Name = *name
	}
	if balance != nil {
		u.Balance = *balance
	}
	s.users[id] = u
	return u, nil
}

// ListBets retorna todas as apostas ordenadas por id.
func (s *Store) ListBets() []Bet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Bet, 0, len(s.bets))
	for _, b := range s.bets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) GetBet(id int) (Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bets[id]
	if !ok {
		return Bet{}, ErrNotFound
	}
	return b, nil
}

// CreateBet atribui o próximo id monotônico e adiciona a aposta ao ledger.
// Payout e win já chegam resolvidos pelo mutation service.
func (s *Store) CreateBet(userID int, betAmount, chance, payout float64, win int) Bet {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := Bet{
		ID:        s.nextBetID,
		UserID:    userID,
		BetAmount: betAmount,
		Chance:    chance,
		Payout:    payout,
		Win:       win,
	}
	s.nextBetID++
	s.bets[b.ID] = b
	return b
}

// DeleteBet remove a aposta e a devolve; ErrNotFound se o id não existe.
func (s *Store) DeleteBet(id int) (Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bets[id]
	if !ok {
		return Bet{}, ErrNotFound
	}
	delete(s.bets, id)
	return b, nil
}

// ListCounters retorna todos os contadores (na prática, só o singleton).
func (s *Store) ListCounters() []Counter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Counter, 0, len(s.counters))
	for _, c := range s.counters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) GetCounter(id int) (Counter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.counters[id]
	if !ok {
		return Counter{}, ErrNotFound
	}
	return c, nil
}

// SetCounter sobrescreve os totais do contador (last-write-wins) e incrementa
// a versão. Nenhuma validação contra o ledger: o valor do cliente é aceito
// como verdade (limitação conhecida do protocolo, preservada de propósito).
func (s *Store) SetCounter(id int, payoutCount, betAmountCount float64, origin string) (Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[id]
	if !ok {
		return Counter{}, ErrNotFound
	}
	c.PayoutCount = payoutCount
	c.BetAmountCount = betAmountCount
	c.Version++
	c.Origin = origin
	s.counters[id] = c
	return c, nil
}

// MarkDefaultBet registra uma aposta seed na tabela de exclusão do agregado.
func (s *Store) MarkDefaultBet(userID, betID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.defaults[userID]; !ok {
		s.defaults[userID] = make(map[int]struct{})
	}
	s.defaults[userID][betID] = struct{}{}
}

// DefaultBetIDs devolve uma cópia da tabela de exclusão (userID -> ids seed).
func (s *Store) DefaultBetIDs() map[int]map[int]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int]map[int]struct{}, len(s.defaults))
	for uid, set := range s.defaults {
		cp := make(map[int]struct{}, len(set))
		for id := range set {
			cp[id] = struct{}{}
		}
		out[uid] = cp
	}
	return out
}
