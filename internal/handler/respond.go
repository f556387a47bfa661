package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sawamura722/cardcapital/internal/checkout"
	"github.com/sawamura722/cardcapital/internal/domain/cart"
	"github.com/sawamura722/cardcapital/internal/domain/order"
	"github.com/sawamura722/cardcapital/internal/domain/product"
	"github.com/sawamura722/cardcapital/internal/domain/profile"
	"github.com/sawamura722/cardcapital/internal/domain/reward"
	"github.com/sawamura722/cardcapital/internal/domain/tournament"
)

// errorBody is the JSON error envelope for every non-2xx response.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error to an HTTP status and writes the error
// envelope. Unrecognized errors become an opaque 500; the cause is logged,
// not leaked to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()

	switch {
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, product.ErrCategoryNotFound),
		errors.Is(err, profile.ErrNotFound),
		errors.Is(err, reward.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, tournament.ErrNotFound),
		errors.Is(err, cart.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrNotConfirmed):
		status = http.StatusBadRequest
	case errors.Is(err, checkout.ErrNotCancellable),
		errors.Is(err, reward.ErrAlreadyClaimed),
		errors.Is(err, tournament.ErrAlreadyRegistered):
		status = http.StatusConflict
	case errors.Is(err, checkout.ErrNotOwned):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal error"
	}

	writeJSON(w, status, errorBody{Code: status, Message: msg})
}

// decodeBody parses the request body as JSON into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return nil
}

// badRequest writes a 400 with the given message.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Code: http.StatusBadRequest, Message: msg})
}
