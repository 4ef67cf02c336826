package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/api/responses"
	"github.com/anvo-dev/markethub-backend/api/validators"
	refundsvc "github.com/anvo-dev/markethub-backend/internal/refunds"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
)

// ListPendingRefunds is the operator view of the refund queue.
func ListPendingRefunds(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]refundResponse, 0, len(rows))
		for i := range rows {
			out = append(out, newRefundResponse(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// ExecuteRefund triggers the gateway reversal for a pending gateway refund.
func ExecuteRefund(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "refundID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.Execute(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRefundResponse(request))
	}
}

// CompleteRefund records an operator-executed bank transfer.
func CompleteRefund(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "refundID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload completeRefundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.Complete(r.Context(), id, payload.TransactionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRefundResponse(request))
	}
}

func RejectRefund(svc refundsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "refundID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload rejectRefundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.Reject(r.Context(), id, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRefundResponse(request))
	}
}

type completeRefundRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
}

type rejectRefundRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type refundResponse struct {
	ID            uuid.UUID `json:"id"`
	OrderID       uuid.UUID `json:"order_id"`
	Source        string    `json:"source"`
	BuyerID       uuid.UUID `json:"buyer_id"`
	AmountCents   int64     `json:"amount_cents"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	TransactionID *string   `json:"transaction_id,omitempty"`
	RejectReason  *string   `json:"reject_reason,omitempty"`
}

func newRefundResponse(request *models.RefundRequest) refundResponse {
	if request == nil {
		return refundResponse{}
	}
	return refundResponse{
		ID:            request.ID,
		OrderID:       request.OrderID,
		Source:        request.Source.String(),
		BuyerID:       request.BuyerID,
		AmountCents:   request.AmountCents,
		Method:        request.Method.String(),
		Status:        request.Status.String(),
		TransactionID: request.TransactionID,
		RejectReason:  request.RejectReason,
	}
}
