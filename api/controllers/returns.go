package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/api/responses"
	"github.com/anvo-dev/markethub-backend/api/validators"
	returnsvc "github.com/anvo-dev/markethub-backend/internal/returns"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
	"github.com/anvo-dev/markethub-backend/pkg/types"
)

func CreateReturn(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := buyerIDFromHeader(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createReturnRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.Create(r.Context(), returnsvc.CreateInput{
			OrderID:      payload.OrderID,
			BuyerID:      buyerID,
			Reason:       payload.Reason,
			EvidenceURLs: payload.EvidenceURLs,
			BankInfo:     payload.BankInfo,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newReturnResponse(request))
	}
}

func GetReturn(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "returnID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newReturnResponse(request))
	}
}

// RespondToReturn records the merchant's approve/reject answer.
func RespondToReturn(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, err := merchantIDFromHeader(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathID(r, "returnID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload respondReturnRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.StoreRespond(r.Context(), id, merchantID, payload.Approved, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newReturnResponse(request))
	}
}

// ReturnShipmentEvent is the courier hook for return shipments.
func ReturnShipmentEvent(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "shipmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload shipmentEventRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var shipment *models.ReturnShipment
		switch payload.Event {
		case "in_transit":
			shipment, err = svc.ShipmentInTransit(r.Context(), id)
		case "returned":
			shipment, err = svc.ShipmentReturned(r.Context(), id)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, "event must be in_transit or returned")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newShipmentResponse(shipment))
	}
}

// ConfirmReturnedGoods is the merchant's inspection sign-off that releases the
// buyer's refund.
func ConfirmReturnedGoods(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, err := merchantIDFromHeader(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathID(r, "returnID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.ConfirmReturnedGoodsOk(r.Context(), id, merchantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newReturnResponse(request))
	}
}

type createReturnRequest struct {
	OrderID      uuid.UUID       `json:"order_id" validate:"required"`
	Reason       string          `json:"reason" validate:"required"`
	EvidenceURLs []string        `json:"evidence_urls" validate:"required,min=1"`
	BankInfo     *types.BankInfo `json:"bank_info,omitempty"`
}

type respondReturnRequest struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

type shipmentEventRequest struct {
	Event string `json:"event" validate:"required,oneof=in_transit returned"`
}

type returnResponse struct {
	ID           uuid.UUID `json:"id"`
	OrderID      uuid.UUID `json:"order_id"`
	BuyerID      uuid.UUID `json:"buyer_id"`
	MerchantID   uuid.UUID `json:"merchant_id"`
	Reason       string    `json:"reason"`
	EvidenceURLs []string  `json:"evidence_urls"`
	RefundCents  int64     `json:"refund_cents"`
	Status       string    `json:"status"`
}

func newReturnResponse(request *models.ReturnRequest) returnResponse {
	if request == nil {
		return returnResponse{}
	}
	return returnResponse{
		ID:           request.ID,
		OrderID:      request.OrderID,
		BuyerID:      request.BuyerID,
		MerchantID:   request.MerchantID,
		Reason:       request.Reason,
		EvidenceURLs: request.EvidenceURLs,
		RefundCents:  request.RefundCents,
		Status:       request.Status.String(),
	}
}

type shipmentResponse struct {
	ID              uuid.UUID `json:"id"`
	ReturnRequestID uuid.UUID `json:"return_request_id"`
	OrderID         uuid.UUID `json:"order_id"`
	Status          string    `json:"status"`
}

func newShipmentResponse(shipment *models.ReturnShipment) shipmentResponse {
	if shipment == nil {
		return shipmentResponse{}
	}
	return shipmentResponse{
		ID:              shipment.ID,
		ReturnRequestID: shipment.ReturnRequestID,
		OrderID:         shipment.OrderID,
		Status:          shipment.Status.String(),
	}
}
