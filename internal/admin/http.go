// Package admin exposes the deployment-time wiring surface: funding
// accounts, re-pointing the marketplace's auction reference and the
// leaderboard's registry reference. These are occasional operator calls,
// not steady-state flow.
package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fotobook/nft-engine/internal/api"
	"github.com/fotobook/nft-engine/internal/auction"
	"github.com/fotobook/nft-engine/internal/bank"
	"github.com/fotobook/nft-engine/internal/market"
	"github.com/fotobook/nft-engine/internal/registry"
	"github.com/fotobook/nft-engine/internal/streak"
)

// ErrUnauthorized is returned when a caller other than the admin account
// invokes a privileged operation.
var ErrUnauthorized = errors.New("admin: unauthorized")

// Handler carries the references the operator surface re-points.
type Handler struct {
	admin    string
	bank     *bank.Bank
	market   *market.Service
	streak   *streak.Service
	auction  *auction.Service
	registry *registry.Service
}

// NewHandler creates the admin surface.
func NewHandler(admin string, bk *bank.Bank, mkt *market.Service, st *streak.Service, auc *auction.Service, reg *registry.Service) *Handler {
	return &Handler{
		admin:    admin,
		bank:     bk,
		market:   mkt,
		streak:   st,
		auction:  auc,
		registry: reg,
	}
}

// CreditRequest is the JSON body for POST /api/v1/admin/credit.
type CreditRequest struct {
	Caller   string          `json:"caller"`
	Account  string          `json:"account"`
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// WireRequest is the JSON body for the contract-wiring endpoints.
type WireRequest struct {
	Caller string `json:"caller"`
}

// HandleCredit handles POST /api/v1/admin/credit — the faucet that stands
// in for on-chain deposits.
func (h *Handler) HandleCredit(w http.ResponseWriter, r *http.Request) {
	var req CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Caller != h.admin {
		api.WriteError(w, ErrUnauthorized.Error(), http.StatusForbidden)
		return
	}

	if err := h.bank.Credit(req.Account, req.Currency, req.Amount); err != nil {
		api.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{
		"account":  req.Account,
		"currency": req.Currency,
		"balance":  h.bank.BalanceOf(req.Account, req.Currency).String(),
	})
}

// HandleUpdateAuctionContract handles PUT /api/v1/admin/auction-contract,
// pointing the marketplace at the live auction engine.
func (h *Handler) HandleUpdateAuctionContract(w http.ResponseWriter, r *http.Request) {
	var req WireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.market.UpdateAuctionContract(req.Caller, h.auction); err != nil {
		api.WriteError(w, err.Error(), http.StatusForbidden)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{"auction_contract": "wired"})
}

// HandleUpdateNftContract handles PUT /api/v1/admin/nft-contract, pointing
// the leaderboard tracker at the live registry.
func (h *Handler) HandleUpdateNftContract(w http.ResponseWriter, r *http.Request) {
	var req WireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.streak.UpdateNftContract(req.Caller, h.registry); err != nil {
		api.WriteError(w, err.Error(), http.StatusForbidden)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{"nft_contract": "wired"})
}

// HandleBalances handles GET /api/v1/accounts/{accountID}/balances.
func (h *Handler) HandleBalances(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "accountID")
	api.WriteJSON(w, http.StatusOK, h.bank.Balances(account))
}
