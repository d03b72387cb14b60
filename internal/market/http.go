package market

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fotobook/nft-engine/internal/api"
	"github.com/fotobook/nft-engine/internal/auction"
	"github.com/fotobook/nft-engine/internal/registry"
)

// ListRequest is the JSON body for POST /api/v1/listings.
type ListRequest struct {
	AssetID  uint64          `json:"asset_id"`
	Seller   string          `json:"seller"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

// BuyRequest is the JSON body for POST /api/v1/listings/{assetID}/buy.
type BuyRequest struct {
	Buyer   string          `json:"buyer"`
	Payment decimal.Decimal `json:"payment"`
}

// DelistRequest is the JSON body for DELETE /api/v1/listings/{assetID}.
type DelistRequest struct {
	Seller string `json:"seller"`
}

// AddTokenRequest is the JSON body for POST /api/v1/admin/currencies.
type AddTokenRequest struct {
	Caller   string `json:"caller"`
	Currency string `json:"currency"`
}

// HandleList handles POST /api/v1/listings.
func (s *Service) HandleList(w http.ResponseWriter, r *http.Request) {
	var req ListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	l, err := s.List(r.Context(), req.AssetID, req.Seller, req.Price, req.Currency)
	if err != nil {
		writeMarketError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, l)
}

// HandleBuy handles POST /api/v1/listings/{assetID}/buy.
func (s *Service) HandleBuy(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDParam(w, r)
	if !ok {
		return
	}

	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	l, err := s.Buy(r.Context(), id, req.Buyer, req.Payment)
	if err != nil {
		writeMarketError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, l)
}

// HandleDelist handles DELETE /api/v1/listings/{assetID}.
func (s *Service) HandleDelist(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDParam(w, r)
	if !ok {
		return
	}

	var req DelistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.Delist(r.Context(), id, req.Seller); err != nil {
		writeMarketError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{"asset_id": id, "active": false})
}

// HandleQuery handles GET /api/v1/listings/{assetID}.
func (s *Service) HandleQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDParam(w, r)
	if !ok {
		return
	}

	l, err := s.Query(r.Context(), id)
	if err != nil {
		writeMarketError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, l)
}

// HandleAddToken handles POST /api/v1/admin/currencies.
func (s *Service) HandleAddToken(w http.ResponseWriter, r *http.Request) {
	var req AddTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.AddToken(r.Context(), req.Caller, req.Currency); err != nil {
		writeMarketError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{"currency": req.Currency, "allowed": true})
}

// HandleAllowedCurrency handles GET /api/v1/currencies/{currencyID}.
func (s *Service) HandleAllowedCurrency(w http.ResponseWriter, r *http.Request) {
	currency := chi.URLParam(r, "currencyID")

	allowed, err := s.AllowedCurrency(r.Context(), currency)
	if err != nil {
		writeMarketError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{"currency": currency, "allowed": allowed})
}

func assetIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "assetID"), 10, 64)
	if err != nil {
		api.WriteError(w, "invalid asset id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeMarketError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrUnknownAsset):
		api.WriteError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, registry.ErrNotOwner):
		api.WriteError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrUnauthorized):
		api.WriteError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrInvalidParameters),
		errors.Is(err, ErrUnsupportedCurrency),
		errors.Is(err, ErrWrongPaymentAmount):
		api.WriteError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrListingNotActive),
		errors.Is(err, ErrNotConfigured),
		errors.Is(err, ErrTransferFailed),
		errors.Is(err, auction.ErrAuctionAlreadyActive):
		api.WriteError(w, err.Error(), http.StatusConflict)
	default:
		api.WriteError(w, err.Error(), http.StatusInternalServerError)
	}
}
