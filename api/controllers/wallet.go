package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/api/responses"
	walletsvc "github.com/anvo-dev/markethub-backend/internal/wallet"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
)

// WalletStatement returns the calling merchant's balances and ledger entries.
func WalletStatement(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchantID, err := merchantIDFromHeader(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wallet, entries, err := svc.Statement(r.Context(), merchantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWalletStatementResponse(wallet, entries))
	}
}

type walletEntryResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	Operation   string    `json:"operation"`
	AmountCents int64     `json:"amount_cents"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type walletStatementResponse struct {
	MerchantID   uuid.UUID             `json:"merchant_id"`
	PendingCents int64                 `json:"pending_cents"`
	BalanceCents int64                 `json:"balance_cents"`
	Entries      []walletEntryResponse `json:"entries"`
}

func newWalletStatementResponse(wallet *models.Wallet, entries []models.WalletEntry) walletStatementResponse {
	out := walletStatementResponse{
		MerchantID:   wallet.MerchantID,
		PendingCents: wallet.PendingCents,
		BalanceCents: wallet.BalanceCents,
		Entries:      make([]walletEntryResponse, 0, len(entries)),
	}
	for _, entry := range entries {
		out.Entries = append(out.Entries, walletEntryResponse{
			ID:          entry.ID,
			OrderID:     entry.OrderID,
			Operation:   entry.Operation.String(),
			AmountCents: entry.AmountCents,
			Note:        entry.Note,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return out
}
