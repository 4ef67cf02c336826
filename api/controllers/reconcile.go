package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/api/responses"
	reconcilesvc "github.com/anvo-dev/markethub-backend/internal/reconcile"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
)

// ListReconcileTasks is the operator view of wallet credits awaiting replay.
func ListReconcileTasks(svc reconcilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]reconcileTaskResponse, 0, len(rows))
		for i := range rows {
			out = append(out, newReconcileTaskResponse(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// RedriveReconcileTask replays a failed wallet credit.
func RedriveReconcileTask(svc reconcilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "taskID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		task, err := svc.Redrive(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newReconcileTaskResponse(task))
	}
}

type reconcileTaskResponse struct {
	ID          uuid.UUID  `json:"id"`
	OrderID     uuid.UUID  `json:"order_id"`
	MerchantID  uuid.UUID  `json:"merchant_id"`
	AmountCents int64      `json:"amount_cents"`
	LastError   string     `json:"last_error,omitempty"`
	Attempts    int        `json:"attempts"`
	Status      string     `json:"status"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

func newReconcileTaskResponse(task *models.ReconcileTask) reconcileTaskResponse {
	if task == nil {
		return reconcileTaskResponse{}
	}
	return reconcileTaskResponse{
		ID:          task.ID,
		OrderID:     task.OrderID,
		MerchantID:  task.MerchantID,
		AmountCents: task.AmountCents,
		LastError:   task.LastError,
		Attempts:    task.Attempts,
		Status:      task.Status.String(),
		ResolvedAt:  task.ResolvedAt,
	}
}
