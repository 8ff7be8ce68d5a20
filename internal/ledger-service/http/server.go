package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/dto"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/service"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/store"
)

// API expõe o lado request/response do protocolo: queries de leitura direto no
// store, mutações via mutation service. Assinaturas ficam no endpoint /ws.
type API struct {
	Log   *zap.Logger
	Store *store.Store
	Svc   *service.Service
}

// Router retorna o roteador HTTP com queries e mutações
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	// queries
	r.Get("/v1/users", a.listUsers)
	r.Get("/v1/users/{id}", a.getUser)
	r.Get("/v1/bets", a.listBets)
	r.Get("/v1/bets/defaults", a.listDefaultBets)
	r.Get("/v1/bets/{id}", a.getBet)
	r.Get("/v1/counters", a.listCounters)
	r.Get("/v1/counters/{id}", a.getCounter)

	// mutações
	r.Post("/v1/bets", a.createBet)
	r.Delete("/v1/bets/{id}", a.deleteBet)
	r.Put("/v1/users/{id}", a.updateUser)
	r.Put("/v1/counters/{id}", a.updateCounter)

	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

// pathID extrai o {id} numérico da rota
func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, false
	}
	return id, true
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Store.ListUsers())
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	u, err := a.Store.GetUser(id)
	if err != nil {
		writeErr(w, http.StatusNotFound, "user does not exist")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) listBets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Store.ListBets())
}

func (a *API) getBet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	b, err := a.Store.GetBet(id)
	if err != nil {
		writeErr(w, http.StatusNotFound, "bet does not exist")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// listDefaultBets devolve a tabela de exclusão do agregado, pros agents
// recomputarem com o mesmo conjunto seed do servidor
func (a *API) listDefaultBets(w http.ResponseWriter, r *http.Request) {
	raw := a.Store.DefaultBetIDs()
	out := make(map[int][]int, len(raw))
	for uid, set := range raw {
		ids := make([]int, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		out[uid] = ids
	}
	writeJSON(w, http.StatusOK, dto.DefaultBetsResponse{Defaults: out})
}

func (a *API) listCounters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Store.ListCounters())
}

func (a *API) getCounter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	c, err := a.Store.GetCounter(id)
	if err != nil {
		writeErr(w, http.StatusNotFound, "counter does not exist")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) createBet(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}

	b, err := a.Svc.CreateBet(r.Context(), req.UserID, req.BetAmount, req.Chance, req.Payout, req.Win)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeErr(w, http.StatusBadRequest, "betAmount and chance must be positive")
		return
	case errors.Is(err, store.ErrNotFound):
		writeErr(w, http.StatusNotFound, "user does not exist")
		return
	case err != nil:
		a.Log.Error("create bet failed", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (a *API) deleteBet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	b, err := a.Svc.DeleteBet(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "bet does not exist")
		return
	}
	if err != nil {
		a.Log.Error("delete bet failed", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req dto.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}
	u, err := a.Svc.UpdateUser(r.Context(), id, req.Name, req.Balance)
	if errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "user does not exist")
		return
	}
	if err != nil {
		a.Log.Error("update user failed", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// updateCounter aceita o agregado calculado pelo cliente e dispara o broadcast
func (a *API) updateCounter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req dto.UpdateCounterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}
	c, err := a.Svc.UpdateCounter(r.Context(), id, req.PayoutCount, req.BetAmountCount, req.Origin)
	if errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "counter does not exist")
		return
	}
	if err != nil {
		a.Log.Error("update counter failed", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}
