package controllers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
)

// Actor headers are stamped by the authenticating edge in front of this
// service; the settlement core only enforces ownership against them.
const (
	buyerIDHeader    = "X-Buyer-Id"
	merchantIDHeader = "X-Merchant-Id"
)

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

func buyerIDFromHeader(r *http.Request) (uuid.UUID, error) {
	return headerID(r, buyerIDHeader)
}

func merchantIDFromHeader(r *http.Request) (uuid.UUID, error) {
	return headerID(r, merchantIDHeader)
}

func headerID(r *http.Request, header string) (uuid.UUID, error) {
	raw := r.Header.Get(header)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, fmt.Sprintf("missing %s header", header))
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, fmt.Sprintf("invalid %s header", header))
	}
	return id, nil
}
