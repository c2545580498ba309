package v1

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// IdempotencyStore abstracts the (owner, key) -> record id mapping backing
// Idempotency-Key replay detection on the create endpoints.
type IdempotencyStore interface {
	GetRecordByIdempotencyKey(ctx context.Context, owner uuid.UUID, key string) (uuid.UUID, bool, error)
	SaveIdempotencyKey(ctx context.Context, owner uuid.UUID, key string, recordID uuid.UUID) error
}

// replayIdempotent answers a repeated create carrying a previously seen
// Idempotency-Key with the stored id and 200 instead of creating again.
// Keys are scoped per record kind so an expense key cannot replay an income.
// The returned key is empty when the request carried no header; handled
// means a response has already been written.
func (s *Server) replayIdempotent(w http.ResponseWriter, r *http.Request, kind string) (key string, handled bool) {
	raw := r.Header.Get("Idempotency-Key")
	if raw == "" {
		return "", false
	}
	scoped := kind + "/" + raw
	id, ok, err := s.idem.GetRecordByIdempotencyKey(r.Context(), ownerFrom(r), scoped)
	if err != nil {
		respondErr(w, s.log, err)
		return "", true
	}
	if ok {
		toJSON(w, http.StatusOK, idResponse{ID: id})
		return "", true
	}
	return scoped, false
}

// rememberIdempotent records the mapping after a successful create. A failed
// save is logged; the create already happened.
func (s *Server) rememberIdempotent(r *http.Request, key string, id uuid.UUID) {
	if key == "" {
		return
	}
	if err := s.idem.SaveIdempotencyKey(r.Context(), ownerFrom(r), key, id); err != nil {
		s.log.Error("failed to save idempotency key", "err", err)
	}
}
