package rest_handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vulpemventures/utxoprep/internal/core/application"
	"github.com/vulpemventures/utxoprep/internal/core/domain"
)

const (
	// SelectionIdHeader carries the id of the selection stored for a
	// successful prepare request.
	SelectionIdHeader = "X-Selection-Id"
	// SelectionStrategyHeader carries the strategy that found the selection.
	SelectionStrategyHeader = "X-Selection-Strategy"
)

type prepareHandler struct {
	prepareSvc *application.PrepareService
}

func NewPrepareHandler(prepareSvc *application.PrepareService) *prepareHandler {
	return &prepareHandler{prepareSvc}
}

// PrepareUnspentOutputs answers with the list of utxos of the requested
// address to spend to cover the requested amount.
func (h *prepareHandler) PrepareUnspentOutputs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	address, amount := query.Get("address"), query.Get("amount")

	res, err := h.prepareSvc.PrepareUnspentOutputs(r.Context(), address, amount)
	if err != nil {
		renderPrepareError(w, err)
		return
	}

	w.Header().Set(SelectionIdHeader, res.SelectionID)
	w.Header().Set(SelectionStrategyHeader, res.Strategy.String())
	render(w, http.StatusOK, res.Utxos.Info())
}

func (h *prepareHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	selection, err := h.prepareSvc.GetSelection(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrSelectionNotFound) {
			renderError(w, http.StatusNotFound, msgSelectionNotFound)
			return
		}
		renderError(w, http.StatusInternalServerError, msgUnexpectedError)
		return
	}

	render(w, http.StatusOK, newSelectionView(selection))
}

// ListSelections answers with the history of selections, optionally filtered
// by address.
func (h *prepareHandler) ListSelections(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")

	selections, err := h.prepareSvc.ListSelections(r.Context(), address)
	if err != nil {
		renderError(w, http.StatusInternalServerError, msgUnexpectedError)
		return
	}

	views := make([]selectionView, 0, len(selections))
	for _, s := range selections {
		views = append(views, newSelectionView(s))
	}
	render(w, http.StatusOK, views)
}

func renderPrepareError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrMissingParams):
		renderError(w, http.StatusBadRequest, msgMissingParams)
	case errors.Is(err, application.ErrInvalidRequest):
		renderError(w, http.StatusBadRequest, msgInvalidAmount)
	case errors.Is(err, application.ErrLedgerUnavailable):
		renderError(w, http.StatusInternalServerError, msgLedgerUnavailable)
	case errors.Is(err, application.ErrNoUnspentOutputs):
		renderError(w, http.StatusNotFound, msgNoUnspentOutputs)
	case errors.Is(err, application.ErrInsufficientFunds):
		render(w, http.StatusConflict, messageResponse{msgNotEnoughFunds})
	default:
		renderError(w, http.StatusInternalServerError, msgUnexpectedError)
	}
}

type selectionView struct {
	ID           string        `json:"id"`
	Address      string        `json:"address"`
	TargetAmount uint64        `json:"target_amount"`
	Strategy     string        `json:"strategy"`
	Utxos        []utxoKeyView `json:"utxos"`
	Total        uint64        `json:"total"`
	Change       uint64        `json:"change"`
	CreatedAt    int64         `json:"created_at"`
}

type utxoKeyView struct {
	TxID string `json:"txid"`
	VOut uint32 `json:"vout"`
}

func newSelectionView(info *application.SelectionInfo) selectionView {
	selection := (*domain.Selection)(info)
	utxos := make([]utxoKeyView, 0, len(selection.Utxos))
	for _, key := range selection.Utxos {
		utxos = append(utxos, utxoKeyView{key.TxID, key.VOut})
	}
	return selectionView{
		ID:           selection.ID,
		Address:      selection.Address,
		TargetAmount: selection.TargetAmount,
		Strategy:     selection.Strategy.String(),
		Utxos:        utxos,
		Total:        selection.Total,
		Change:       selection.Change(),
		CreatedAt:    selection.CreatedAt,
	}
}
