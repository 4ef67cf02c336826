package wallet

import (
	"context"
	"testing"

	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type gormRunner struct {
	db *gorm.DB
}

func (r gormRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) Service {
	t.Helper()
	dsn := "file:wallet_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	schema := `
CREATE TABLE wallets (
  merchant_id TEXT PRIMARY KEY,
  pending_cents INTEGER NOT NULL DEFAULT 0,
  balance_cents INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);
CREATE TABLE wallet_entries (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(6)))),
  merchant_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  operation TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  note TEXT,
  created_at DATETIME
);
CREATE UNIQUE INDEX idx_wallet_entry_op ON wallet_entries (merchant_id, order_id, operation);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}

	svc, err := NewService(NewRepository(db), gormRunner{db: db})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestAddPendingIsIdempotent(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	merchant := uuid.New()
	order := uuid.New()

	w, err := svc.AddPending(ctx, merchant, order, 120_000)
	if err != nil {
		t.Fatalf("add pending: %v", err)
	}
	if w.PendingCents != 120_000 {
		t.Fatalf("pending = %d, want 120000", w.PendingCents)
	}

	// Replaying the same (merchant, order, operation) must not double-credit.
	w, err = svc.AddPending(ctx, merchant, order, 120_000)
	if err != nil {
		t.Fatalf("replay add pending: %v", err)
	}
	if w.PendingCents != 120_000 {
		t.Fatalf("pending after replay = %d, want 120000", w.PendingCents)
	}
}

func TestDeductPendingGuards(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	merchant := uuid.New()
	order := uuid.New()

	if _, err := svc.AddPending(ctx, merchant, order, 50_000); err != nil {
		t.Fatalf("add pending: %v", err)
	}

	_, err := svc.DeductPending(ctx, merchant, uuid.New(), 60_000)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	w, err := svc.DeductPending(ctx, merchant, order, 50_000)
	if err != nil {
		t.Fatalf("deduct pending: %v", err)
	}
	if w.PendingCents != 0 {
		t.Fatalf("pending = %d, want 0", w.PendingCents)
	}
}

func TestReleaseMovesPendingToBalance(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	merchant := uuid.New()
	order := uuid.New()

	if _, err := svc.AddPending(ctx, merchant, order, 200_000); err != nil {
		t.Fatalf("add pending: %v", err)
	}

	w, err := svc.ReleaseToBalance(ctx, merchant, order, 200_000)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if w.PendingCents != 0 || w.BalanceCents != 200_000 {
		t.Fatalf("wallet = pending %d balance %d, want 0/200000", w.PendingCents, w.BalanceCents)
	}

	// A replayed release must not credit the balance twice.
	w, err = svc.ReleaseToBalance(ctx, merchant, order, 200_000)
	if err != nil {
		t.Fatalf("replay release: %v", err)
	}
	if w.BalanceCents != 200_000 {
		t.Fatalf("balance after replay = %d, want 200000", w.BalanceCents)
	}
}

func TestReleaseWithoutPendingCreditsDirectly(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	merchant := uuid.New()

	// Cash on delivery never records add_pending, so completion credits the
	// balance directly.
	w, err := svc.ReleaseToBalance(ctx, merchant, uuid.New(), 90_000)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if w.PendingCents != 0 || w.BalanceCents != 90_000 {
		t.Fatalf("wallet = pending %d balance %d, want 0/90000", w.PendingCents, w.BalanceCents)
	}
}

func TestReleaseBeyondEscrowCreditsRemainder(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	merchant := uuid.New()
	order := uuid.New()

	// A dispute award can exceed what was escrowed for the order (the escrow
	// is net of commission, the award is not). The escrow drains fully and the
	// platform-funded remainder is a direct credit.
	if _, err := svc.AddPending(ctx, merchant, order, 495_000); err != nil {
		t.Fatalf("add pending: %v", err)
	}
	w, err := svc.ReleaseToBalance(ctx, merchant, order, 520_000)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if w.PendingCents != 0 || w.BalanceCents != 520_000 {
		t.Fatalf("wallet = pending %d balance %d, want 0/520000", w.PendingCents, w.BalanceCents)
	}
}

func TestReleaseLeavesOtherOrdersPending(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	merchant := uuid.New()
	orderA := uuid.New()
	orderB := uuid.New()

	if _, err := svc.AddPending(ctx, merchant, orderA, 100_000); err != nil {
		t.Fatalf("add pending a: %v", err)
	}
	if _, err := svc.AddPending(ctx, merchant, orderB, 40_000); err != nil {
		t.Fatalf("add pending b: %v", err)
	}

	// Releasing more than order B ever escrowed must not touch order A's funds.
	w, err := svc.ReleaseToBalance(ctx, merchant, orderB, 90_000)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if w.PendingCents != 100_000 || w.BalanceCents != 90_000 {
		t.Fatalf("wallet = pending %d balance %d, want 100000/90000", w.PendingCents, w.BalanceCents)
	}
}

func TestValidateOpRejectsBadInput(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		merchant uuid.UUID
		order    uuid.UUID
		amount   int64
	}{
		{"nil merchant", uuid.Nil, uuid.New(), 1_000},
		{"nil order", uuid.New(), uuid.Nil, 1_000},
		{"zero amount", uuid.New(), uuid.New(), 0},
		{"negative amount", uuid.New(), uuid.New(), -5},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddPending(ctx, tt.merchant, tt.order, tt.amount)
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestStatement(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	merchant := uuid.New()

	if _, err := svc.AddPending(ctx, merchant, uuid.New(), 10_000); err != nil {
		t.Fatalf("add pending: %v", err)
	}
	if err := svc.RecordCommission(ctx, merchant, uuid.New(), 500); err != nil {
		t.Fatalf("record commission: %v", err)
	}

	wallet, entries, err := svc.Statement(ctx, merchant)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if wallet.PendingCents != 10_000 {
		t.Fatalf("pending = %d, want 10000", wallet.PendingCents)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}

	// A merchant with no activity gets an empty wallet, not an error.
	wallet, entries, err = svc.Statement(ctx, uuid.New())
	if err != nil {
		t.Fatalf("statement for unknown merchant: %v", err)
	}
	if wallet.PendingCents != 0 || wallet.BalanceCents != 0 || len(entries) != 0 {
		t.Fatalf("expected empty statement, got %+v with %d entries", wallet, len(entries))
	}
}
