package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/api/responses"
	"github.com/anvo-dev/markethub-backend/api/validators"
	disputesvc "github.com/anvo-dev/markethub-backend/internal/disputes"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
	"github.com/anvo-dev/markethub-backend/pkg/types"
)

// CreateRejectionDispute lets a buyer escalate a merchant-rejected return.
func CreateRejectionDispute(svc disputesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := buyerIDFromHeader(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathID(r, "returnID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload disputeMessageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dispute, err := svc.CreateRejectionDispute(r.Context(), id, buyerID, disputesvc.Message{
			SenderID:    buyerID,
			SenderType:  enums.NotificationAudienceBuyer,
			Content:     payload.Content,
			Attachments: payload.Attachments,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newDisputeResponse(dispute))
	}
}

// CreateQualityDispute lets a merchant contest the condition of returned goods.
func CreateQualityDispute(svc disputesvc.Service, logg *logger.Logger) http.HandlerFunc {
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
		var payload disputeMessageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dispute, err := svc.CreateQualityDispute(r.Context(), id, merchantID, disputesvc.Message{
			SenderID:    merchantID,
			SenderType:  enums.NotificationAudienceMerchant,
			Content:     payload.Content,
			Attachments: payload.Attachments,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newDisputeResponse(dispute))
	}
}

func GetDispute(svc disputesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "disputeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dispute, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDisputeResponse(dispute))
	}
}

// AddDisputeMessage appends to the thread. The sender comes from whichever
// actor header is present; admins use the sender_type field explicitly.
func AddDisputeMessage(svc disputesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "disputeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addDisputeMessageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		message, err := disputeMessageFrom(r, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dispute, err := svc.AddMessage(r.Context(), id, message)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDisputeResponse(dispute))
	}
}

// ResolveDispute applies the admin ruling.
func ResolveDispute(svc disputesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "disputeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload resolveDisputeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		decision, err := enums.ParseDisputeDecision(payload.Decision)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}
		dispute, err := svc.Resolve(r.Context(), id, disputesvc.Resolution{
			Decision:         decision,
			Reason:           payload.Reason,
			BuyerAmountCents: payload.BuyerAmountCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDisputeResponse(dispute))
	}
}

func disputeMessageFrom(r *http.Request, payload addDisputeMessageRequest) (disputesvc.Message, error) {
	message := disputesvc.Message{
		Content:     payload.Content,
		Attachments: payload.Attachments,
	}
	if buyerID, err := buyerIDFromHeader(r); err == nil {
		message.SenderID = buyerID
		message.SenderType = enums.NotificationAudienceBuyer
		return message, nil
	}
	if merchantID, err := merchantIDFromHeader(r); err == nil {
		message.SenderID = merchantID
		message.SenderType = enums.NotificationAudienceMerchant
		return message, nil
	}
	if payload.SenderType == string(enums.NotificationAudienceAdmin) {
		message.SenderType = enums.NotificationAudienceAdmin
		return message, nil
	}
	return disputesvc.Message{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor identity")
}

type disputeMessageRequest struct {
	Content     string   `json:"content" validate:"required"`
	Attachments []string `json:"attachments,omitempty"`
}

type addDisputeMessageRequest struct {
	Content     string   `json:"content" validate:"required"`
	Attachments []string `json:"attachments,omitempty"`
	SenderType  string   `json:"sender_type,omitempty" validate:"omitempty,oneof=buyer merchant admin"`
}

type resolveDisputeRequest struct {
	Decision         string `json:"decision" validate:"required"`
	Reason           string `json:"reason,omitempty"`
	BuyerAmountCents int64  `json:"buyer_amount_cents,omitempty" validate:"omitempty,gt=0"`
}

type disputeResponse struct {
	ID              uuid.UUID             `json:"id"`
	ReturnRequestID uuid.UUID             `json:"return_request_id"`
	OrderID         uuid.UUID             `json:"order_id"`
	BuyerID         uuid.UUID             `json:"buyer_id"`
	MerchantID      uuid.UUID             `json:"merchant_id"`
	Type            string                `json:"type"`
	Status          string                `json:"status"`
	Messages        types.DisputeMessages `json:"messages,omitempty"`
	Decision        *string               `json:"decision,omitempty"`
	DecisionReason  *string               `json:"decision_reason,omitempty"`
	Winner          *string               `json:"winner,omitempty"`
	ResolvedAt      *time.Time            `json:"resolved_at,omitempty"`
}

func newDisputeResponse(dispute *models.Dispute) disputeResponse {
	if dispute == nil {
		return disputeResponse{}
	}
	out := disputeResponse{
		ID:              dispute.ID,
		ReturnRequestID: dispute.ReturnRequestID,
		OrderID:         dispute.OrderID,
		BuyerID:         dispute.BuyerID,
		MerchantID:      dispute.MerchantID,
		Type:            dispute.Type.String(),
		Status:          dispute.Status.String(),
		Messages:        dispute.Messages,
		DecisionReason:  dispute.DecisionReason,
		ResolvedAt:      dispute.ResolvedAt,
	}
	if dispute.Decision != nil {
		decision := dispute.Decision.String()
		out.Decision = &decision
	}
	if dispute.Winner != nil {
		winner := dispute.Winner.String()
		out.Winner = &winner
	}
	return out
}
