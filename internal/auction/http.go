package auction

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fotobook/nft-engine/internal/api"
	"github.com/fotobook/nft-engine/internal/registry"
)

// StartRequest is the JSON body for POST /api/v1/auctions.
type StartRequest struct {
	AssetID         uint64          `json:"asset_id"`
	Seller          string          `json:"seller"`
	MinBid          decimal.Decimal `json:"min_bid"`
	DurationSeconds int64           `json:"duration_seconds"`
}

// BidRequest is the JSON body for POST /api/v1/auctions/{assetID}/bids.
// Amount is the attached payment, escrowed on acceptance.
type BidRequest struct {
	Bidder string          `json:"bidder"`
	Amount decimal.Decimal `json:"amount"`
}

// HandleStart handles POST /api/v1/auctions.
func (s *Service) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	a, err := s.Start(r.Context(), req.AssetID, req.Seller, req.MinBid,
		time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		writeAuctionError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, a)
}

// HandleBid handles POST /api/v1/auctions/{assetID}/bids.
func (s *Service) HandleBid(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDParam(w, r)
	if !ok {
		return
	}

	var req BidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	a, err := s.PlaceBid(r.Context(), id, req.Bidder, req.Amount)
	if err != nil {
		writeAuctionError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, a)
}

// HandleEnd handles POST /api/v1/auctions/{assetID}/end. Settlement is
// permissionless, so the body is empty.
func (s *Service) HandleEnd(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDParam(w, r)
	if !ok {
		return
	}

	a, err := s.End(r.Context(), id)
	if err != nil {
		writeAuctionError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, a)
}

// HandleQuery handles GET /api/v1/auctions/{assetID}.
func (s *Service) HandleQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDParam(w, r)
	if !ok {
		return
	}

	a, err := s.Query(r.Context(), id)
	if err != nil {
		writeAuctionError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, a)
}

func assetIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "assetID"), 10, 64)
	if err != nil {
		api.WriteError(w, "invalid asset id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeAuctionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrUnknownAsset):
		api.WriteError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, registry.ErrNotOwner):
		api.WriteError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrInvalidParameters):
		api.WriteError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrAuctionAlreadyActive),
		errors.Is(err, ErrAssetListed),
		errors.Is(err, ErrAuctionNotActive),
		errors.Is(err, ErrAuctionExpired),
		errors.Is(err, ErrAuctionNotYetEnded),
		errors.Is(err, ErrBidTooLow),
		errors.Is(err, ErrTransferFailed):
		api.WriteError(w, err.Error(), http.StatusConflict)
	default:
		api.WriteError(w, err.Error(), http.StatusInternalServerError)
	}
}
