package httpapi

import (
	"encoding/json"
	"net/http"
)

// toJSON writes v as the JSON body under the given status. Encode errors are
// dropped; the status line is already on the wire by then.
func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
