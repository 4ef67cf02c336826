package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/api/responses"
	ordersvc "github.com/anvo-dev/markethub-backend/internal/orders"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
	"github.com/anvo-dev/markethub-backend/pkg/types"
)

func GetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(*order))
	}
}

func ListOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := buyerIDFromHeader(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orders, err := svc.ListForBuyer(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]orderResponse, 0, len(orders))
		for _, order := range orders {
			out = append(out, newOrderResponse(order))
		}
		responses.WriteSuccess(w, out)
	}
}

// orderTransition wraps the single-argument lifecycle calls.
func orderTransition(fn func(r *http.Request, id uuid.UUID) (*models.Order, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := fn(r, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(*order))
	}
}

func ConfirmOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(func(r *http.Request, id uuid.UUID) (*models.Order, error) {
		return svc.Confirm(r.Context(), id)
	}, logg)
}

func ShipOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(func(r *http.Request, id uuid.UUID) (*models.Order, error) {
		return svc.StartShipping(r.Context(), id)
	}, logg)
}

func DeliverOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(func(r *http.Request, id uuid.UUID) (*models.Order, error) {
		return svc.MarkDelivered(r.Context(), id)
	}, logg)
}

func CompleteOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(func(r *http.Request, id uuid.UUID) (*models.Order, error) {
		return svc.Complete(r.Context(), id)
	}, logg)
}

func CancelOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(func(r *http.Request, id uuid.UUID) (*models.Order, error) {
		return svc.Cancel(r.Context(), id)
	}, logg)
}

// PaymentCallback is the gateway's server-to-server payment result hook.
func PaymentCallback(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return orderTransition(func(r *http.Request, id uuid.UUID) (*models.Order, error) {
		switch r.URL.Query().Get("result") {
		case "success":
			return svc.MarkPaid(r.Context(), id)
		case "failure":
			return svc.MarkPaymentFailed(r.Context(), id)
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "result must be success or failure")
	}, logg)
}

type orderItemResponse struct {
	VariantID      uuid.UUID  `json:"variant_id"`
	ColorID        *uuid.UUID `json:"color_id,omitempty"`
	Name           string     `json:"name"`
	Qty            int        `json:"qty"`
	UnitPriceCents int64      `json:"unit_price_cents"`
}

type orderResponse struct {
	ID                    uuid.UUID           `json:"id"`
	BuyerID               uuid.UUID           `json:"buyer_id"`
	MerchantID            uuid.UUID           `json:"merchant_id"`
	SubtotalCents         int64               `json:"subtotal_cents"`
	ShippingFeeCents      int64               `json:"shipping_fee_cents"`
	StoreDiscountCents    int64               `json:"store_discount_cents"`
	PlatformDiscountCents int64               `json:"platform_discount_cents"`
	CommissionCents       int64               `json:"commission_cents"`
	TotalCents            int64               `json:"total_cents"`
	AppliedPromotionIDs   types.UUIDList      `json:"applied_promotion_ids,omitempty"`
	PaymentMethod         string              `json:"payment_method"`
	PaymentStatus         string              `json:"payment_status"`
	Status                string              `json:"status"`
	ReturnRequestID       *uuid.UUID          `json:"return_request_id,omitempty"`
	Items                 []orderItemResponse `json:"items"`
}

func newOrderResponse(order models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			VariantID:      item.VariantID,
			ColorID:        item.ColorID,
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return orderResponse{
		ID:                    order.ID,
		BuyerID:               order.BuyerID,
		MerchantID:            order.MerchantID,
		SubtotalCents:         order.SubtotalCents,
		ShippingFeeCents:      order.ShippingFeeCents,
		StoreDiscountCents:    order.StoreDiscountCents,
		PlatformDiscountCents: order.PlatformDiscountCents,
		CommissionCents:       order.CommissionCents,
		TotalCents:            order.TotalCents,
		AppliedPromotionIDs:   order.AppliedPromotionIDs,
		PaymentMethod:         order.PaymentMethod.String(),
		PaymentStatus:         order.PaymentStatus.String(),
		Status:                order.Status.String(),
		ReturnRequestID:       order.ReturnRequestID,
		Items:                 items,
	}
}
