package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/dto"
	"github.com/radieske/bet-ledger-sync-poc/internal/ledger-service/store"
)

// Client é o lado request/response do agente: queries e mutações REST contra o
// ledger-service. A assinatura (push) vive no próprio agent, via WebSocket.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *Client) ListUsers(ctx context.Context) ([]store.User, error) {
	var out []store.User
	err := c.do(ctx, http.MethodGet, "/v1/users", nil, &out)
	return out, err
}

func (c *Client) ListBets(ctx context.Context) ([]store.Bet, error) {
	var out []store.Bet
	err := c.do(ctx, http.MethodGet, "/v1/bets", nil, &out)
	return out, err
}

func (c *Client) GetBet(ctx context.Context, id int) (store.Bet, error) {
	var out store.Bet
	err := c.do(ctx, http.MethodGet, "/v1/bets/"+strconv.Itoa(id), nil, &out)
	return out, err
}

// DefaultBets busca a tabela de exclusão no formato usado pelo calculador
func (c *Client) DefaultBets(ctx context.Context) (map[int]map[int]struct{}, error) {
	var resp dto.DefaultBetsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/bets/defaults", nil, &resp); err != nil {
		return nil, err
	}
	out := make(map[int]map[int]struct{}, len(resp.Defaults))
	for uid, ids := range resp.Defaults {
		set := make(map[int]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		out[uid] = set
	}
	return out, nil
}

func (c *Client) CreateBet(ctx context.Context, req dto.CreateBetRequest) (store.Bet, error) {
	var out store.Bet
	err := c.do(ctx, http.MethodPost, "/v1/bets", req, &out)
	return out, err
}

func (c *Client) DeleteBet(ctx context.Context, id int) (store.Bet, error) {
	var out store.Bet
	err := c.do(ctx, http.MethodDelete, "/v1/bets/"+strconv.Itoa(id), nil, &out)
	return out, err
}

func (c *Client) GetCounter(ctx context.Context, id int) (store.Counter, error) {
	var out store.Counter
	err := c.do(ctx, http.MethodGet, "/v1/counters/"+strconv.Itoa(id), nil, &out)
	return out, err
}

func (c *Client) UpdateCounter(ctx context.Context, id int, payoutCount, betAmountCount float64, origin string) (store.Counter, error) {
	req := dto.UpdateCounterRequest{
		PayoutCount:    payoutCount,
		BetAmountCount: betAmountCount,
		Origin:         origin,
	}
	var out store.Counter
	err := c.do(ctx, http.MethodPut, "/v1/counters/"+strconv.Itoa(id), req, &out)
	return out, err
}

// do executa a chamada e decodifica a resposta; 404 vira store.ErrNotFound,
// demais falhas viram erro de transporte com a mensagem do servidor
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		b, _ := json.Marshal(in)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("ledger %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return store.ErrNotFound
	}
	if res.StatusCode >= 300 {
		var e dto.ErrorResponse
		_ = json.NewDecoder(res.Body).Decode(&e)
		if e.Error != "" {
			return fmt.Errorf("ledger %s %s: %s", method, path, e.Error)
		}
		return fmt.Errorf("ledger %s %s: http %d", method, path, res.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
