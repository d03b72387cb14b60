package registry

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fotobook/nft-engine/internal/api"
	"github.com/fotobook/nft-engine/internal/model"
)

// MintRequest is the JSON body for POST /api/v1/assets.
type MintRequest struct {
	To          string `json:"to"`
	MetadataURI string `json:"metadata_uri"`
	Public      bool   `json:"public"`
}

// TransferRequest is the JSON body for POST /api/v1/assets/{assetID}/transfer.
type TransferRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// VisibilityRequest is the JSON body for PUT /api/v1/assets/{assetID}/visibility.
type VisibilityRequest struct {
	Caller string `json:"caller"`
	Public bool   `json:"public"`
}

// HandleMint handles POST /api/v1/assets.
func (s *Service) HandleMint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	asset, err := s.Mint(r.Context(), req.To, req.MetadataURI, req.Public)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, asset)
}

// HandleGet handles GET /api/v1/assets/{assetID}.
func (s *Service) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDParam(w, r)
	if !ok {
		return
	}

	asset, err := s.Get(r.Context(), id)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, asset)
}

// HandleHistory handles GET /api/v1/assets/{assetID}/history.
func (s *Service) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDParam(w, r)
	if !ok {
		return
	}

	records, err := s.History(r.Context(), id)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	if records == nil {
		records = []model.TransferRecord{}
	}

	api.WriteJSON(w, http.StatusOK, records)
}

// HandleSetVisibility handles PUT /api/v1/assets/{assetID}/visibility.
func (s *Service) HandleSetVisibility(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDParam(w, r)
	if !ok {
		return
	}

	var req VisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.SetVisibility(r.Context(), id, req.Caller, req.Public); err != nil {
		writeRegistryError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{"asset_id": id, "public": req.Public})
}

// HandleTransfer handles POST /api/v1/assets/{assetID}/transfer. This is the
// direct owner-initiated path; settlement transfers go through the auction
// and marketplace services.
func (s *Service) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDParam(w, r)
	if !ok {
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.Transfer(r.Context(), id, req.From, req.To, model.ReasonOwner); err != nil {
		writeRegistryError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{"asset_id": id, "owner": req.To})
}

func assetIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "assetID"), 10, 64)
	if err != nil {
		api.WriteError(w, "invalid asset id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownAsset):
		api.WriteError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrNotOwner):
		api.WriteError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrInvalidRecipient):
		api.WriteError(w, err.Error(), http.StatusBadRequest)
	default:
		api.WriteError(w, err.Error(), http.StatusInternalServerError)
	}
}
