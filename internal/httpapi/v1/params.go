package v1

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fintrackhq/fintrack/internal/dispatch"
)

// pathParams flattens chi's route params for the dispatch extractor.
func pathParams(r *http.Request) map[string]string {
	rctx := chi.RouteContext(r.Context())
	out := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		out[k] = rctx.URLParams.Values[i]
	}
	return out
}

// idParam extracts and parses the {id} path parameter. On failure it writes
// the error response and reports false.
func idParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	vals, err := dispatch.ExtractPathParams(pathParams(r), "id")
	if err != nil {
		badRequest(w, err.Error())
		return uuid.Nil, false
	}
	id, err := uuid.Parse(vals[0])
	if err != nil {
		badRequest(w, "id must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}
