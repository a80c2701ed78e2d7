package rest_handler

import (
	"net/http"

	"github.com/vulpemventures/utxoprep/internal/core/application"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// NewHealthHandler returns a liveness check handler reporting the given build
// info.
func NewHealthHandler(info application.BuildInfo) http.HandlerFunc {
	res := healthResponse{"ok", info.Version, info.Commit, info.Date}
	return func(w http.ResponseWriter, _ *http.Request) {
		render(w, http.StatusOK, res)
	}
}
