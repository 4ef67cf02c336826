package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/api/responses"
	"github.com/anvo-dev/markethub-backend/api/validators"
	checkoutsvc "github.com/anvo-dev/markethub-backend/internal/checkout"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
	"github.com/anvo-dev/markethub-backend/pkg/types"
)

// Checkout converts the buyer's selected cart lines into per-merchant orders.
// Partial completion (a later merchant group failing after earlier ones
// committed) still reports the created orders alongside the error envelope.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := buyerIDFromHeader(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}

		input := checkoutsvc.Input{
			BuyerID:            buyerID,
			ShippingAddress:    payload.ShippingAddress,
			PaymentMethod:      method,
			MerchantPromoCodes: payload.MerchantPromoCodes,
			PlatformOrderCode:  payload.PlatformOrderCode,
			ShippingCode:       payload.ShippingCode,
			ShippingTargets:    payload.ShippingTargets,
		}
		for _, line := range payload.Lines {
			input.Lines = append(input.Lines, checkoutsvc.LineSelection{
				VariantID: line.VariantID,
				ColorID:   line.ColorID,
				Qty:       line.Qty,
			})
		}

		orders, err := svc.Checkout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(orders))
	}
}

type checkoutLineRequest struct {
	VariantID uuid.UUID  `json:"variant_id" validate:"required"`
	ColorID   *uuid.UUID `json:"color_id,omitempty"`
	Qty       int        `json:"qty" validate:"required,gt=0"`
}

type checkoutRequest struct {
	Lines              []checkoutLineRequest `json:"lines" validate:"required,min=1,dive"`
	ShippingAddress    types.Address         `json:"shipping_address" validate:"required"`
	PaymentMethod      string                `json:"payment_method" validate:"required"`
	MerchantPromoCodes map[uuid.UUID]string  `json:"merchant_promo_codes,omitempty"`
	PlatformOrderCode  string                `json:"platform_order_code,omitempty"`
	ShippingCode       string                `json:"shipping_code,omitempty"`
	ShippingTargets    []uuid.UUID           `json:"shipping_targets,omitempty"`
}

type checkoutResponse struct {
	Orders []orderResponse `json:"orders"`
}

func newCheckoutResponse(orders []models.Order) checkoutResponse {
	out := checkoutResponse{Orders: make([]orderResponse, 0, len(orders))}
	for _, order := range orders {
		out.Orders = append(out.Orders, newOrderResponse(order))
	}
	return out
}
