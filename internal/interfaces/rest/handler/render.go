package rest_handler

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

const (
	msgMissingParams      = "Address and amount required."
	msgInvalidAmount      = "Invalid amount."
	msgLedgerUnavailable  = "Failed to fetch utxos."
	msgNoUnspentOutputs   = "No unspent outputs found."
	msgNotEnoughFunds     = "Not enough funds"
	msgUnexpectedError    = "An unexpected error occurred."
	msgSelectionNotFound  = "Selection not found."
	msgRouteNotFound      = "Not found."
	msgMethodNotSupported = "Method not allowed."
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Unexpected answers with a generic 500 error.
func Unexpected(w http.ResponseWriter, _ *http.Request) {
	renderError(w, http.StatusInternalServerError, msgUnexpectedError)
}

func NotFound(w http.ResponseWriter, _ *http.Request) {
	renderError(w, http.StatusNotFound, msgRouteNotFound)
}

func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	renderError(w, http.StatusMethodNotAllowed, msgMethodNotSupported)
}

func renderError(w http.ResponseWriter, status int, msg string) {
	render(w, status, errorResponse{msg})
}

func render(w http.ResponseWriter, status int, body interface{}) {
	buf, err := json.Marshal(body)
	if err != nil {
		log.WithError(err).Warn("rest handler: failed to encode response")
		status = http.StatusInternalServerError
		buf, _ = json.Marshal(errorResponse{msgUnexpectedError})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf)
}
