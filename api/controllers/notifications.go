package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/api/responses"
	"github.com/anvo-dev/markethub-backend/internal/notifications"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
)

// ListNotifications returns the calling actor's latest notifications. Either
// actor header works; buyers and merchants only ever see their own feed.
func ListNotifications(repo notifications.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipientID, err := buyerIDFromHeader(r)
		if err != nil {
			if recipientID, err = merchantIDFromHeader(r); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor identity"))
				return
			}
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			limit = parsed
		}

		rows, err := repo.ListByRecipient(r.Context(), recipientID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications"))
			return
		}
		out := make([]notificationResponse, 0, len(rows))
		for i := range rows {
			out = append(out, newNotificationResponse(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

type notificationResponse struct {
	ID        uuid.UUID `json:"id"`
	Audience  string    `json:"audience"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	RefID     uuid.UUID `json:"ref_id"`
	CreatedAt time.Time `json:"created_at"`
}

func newNotificationResponse(notification *models.Notification) notificationResponse {
	return notificationResponse{
		ID:        notification.ID,
		Audience:  notification.Audience.String(),
		Title:     notification.Title,
		Body:      notification.Body,
		RefID:     notification.RefID,
		CreatedAt: notification.CreatedAt,
	}
}
