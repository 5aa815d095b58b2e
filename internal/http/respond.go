package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/transfer-booking/internal/apperr"
	"github.com/example/transfer-booking/internal/payments"
	"github.com/example/transfer-booking/internal/validate"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperr.Invalid("body", "malformed JSON")
	}
	return validate.Struct(dst)
}

// writeError maps the error taxonomy onto status codes. Collaborator causes
// are logged and never sent to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr     *apperr.ValidationError
		nf       *apperr.NotFoundError
		conflict *apperr.ConflictError
		collab   *apperr.CollaboratorError
		declined *payments.DeclinedError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: verr.Fields})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorBody{Error: nf.Error()})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: conflict.Error()})
	case errors.Is(err, apperr.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	case errors.As(err, &declined):
		s.logger.Warn("payment declined", "reason", declined.Reason, "request_id", requestIDFromContext(r.Context()))
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "payment declined"})
	case errors.As(err, &collab) && collab.Op == "charge":
		s.logger.Error("payment gateway failure", "err", err, "request_id", requestIDFromContext(r.Context()))
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "payment unavailable"})
	default:
		s.logger.Error("request failed", "err", err, "request_id", requestIDFromContext(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
