package httpapi

import (
	"encoding/json"
	"net/http"

	"treewatch/internal/apierr"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// errorResponse is the body returned for every non-2xx response, carrying
// the stable apierr.Error.Code for clients that branch on it.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	status := apierr.StatusForErr(err)
	resp := errorResponse{Code: "Internal", Message: "internal error"}
	if e, ok := apierr.As(err); ok {
		resp.Code = e.Code
		resp.Message = e.Message
	}
	writeJSON(w, status, resp)
}
