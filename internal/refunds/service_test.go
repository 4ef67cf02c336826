package refunds

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeGateway struct {
	refundErr error
	refunded  []uuid.UUID
}

func (f *fakeGateway) Refund(ctx context.Context, orderID uuid.UUID, amountCents int64) (string, error) {
	if f.refundErr != nil {
		return "", f.refundErr
	}
	f.refunded = append(f.refunded, orderID)
	return "txn-" + orderID.String(), nil
}

func (f *fakeGateway) QueryStatus(ctx context.Context, orderID uuid.UUID) (enums.PaymentStatus, error) {
	return enums.PaymentStatusPaid, nil
}

type fakeNotifier struct {
	titles []string
}

func (f *fakeNotifier) NotifyBuyer(ctx context.Context, buyerID uuid.UUID, title, body string, refID uuid.UUID) {
	f.titles = append(f.titles, title)
}

func (f *fakeNotifier) NotifyMerchant(ctx context.Context, merchantID uuid.UUID, title, body string, refID uuid.UUID) {
	f.titles = append(f.titles, title)
}

func (f *fakeNotifier) NotifyAdmin(ctx context.Context, title, body string, refID uuid.UUID) {
	f.titles = append(f.titles, title)
}

type testHarness struct {
	db       *gorm.DB
	svc      Service
	gateway  *fakeGateway
	notifier *fakeNotifier
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	dsn := "file:refunds_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE refund_requests (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(6)))),
  order_id TEXT NOT NULL,
  source TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  method TEXT NOT NULL,
  bank_info TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  transaction_id TEXT,
  reject_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX idx_refund_order_source ON refund_requests (order_id, source);`
	require.NoError(t, db.Exec(schema).Error)

	h := &testHarness{db: db, gateway: &fakeGateway{}, notifier: &fakeNotifier{}}
	logg := logger.New(logger.Options{ServiceName: "refunds-test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), h.gateway, h.notifier, logg)
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *testHarness) enqueue(t *testing.T, method enums.PaymentMethod) *models.RefundRequest {
	t.Helper()
	var request *models.RefundRequest
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		request, txErr = h.svc.Enqueue(context.Background(), tx, EnqueueInput{
			OrderID:       uuid.New(),
			Source:        enums.RefundSourceCancellation,
			BuyerID:       uuid.New(),
			AmountCents:   150_000,
			PaymentMethod: method,
		})
		return txErr
	})
	require.NoError(t, err)
	return request
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected coded error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestEnqueueMethodFollowsPayment(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	online := h.enqueue(t, enums.PaymentMethodVNPay)
	require.Equal(t, enums.RefundMethodGateway, online.Method)
	require.Equal(t, enums.RefundStatusPending, online.Status)

	cash := h.enqueue(t, enums.PaymentMethodCOD)
	require.Equal(t, enums.RefundMethodBankTransfer, cash.Method)
}

func TestEnqueueIsIdempotentPerOrderAndSource(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	orderID := uuid.New()
	buyerID := uuid.New()

	input := EnqueueInput{
		OrderID:       orderID,
		Source:        enums.RefundSourceReturn,
		BuyerID:       buyerID,
		AmountCents:   90_000,
		PaymentMethod: enums.PaymentMethodMomo,
	}

	var first, second *models.RefundRequest
	require.NoError(t, h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		first, err = h.svc.Enqueue(ctx, tx, input)
		return err
	}))
	require.NoError(t, h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		second, err = h.svc.Enqueue(ctx, tx, input)
		return err
	}))
	require.Equal(t, first.ID, second.ID)

	pending, err := h.svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestEnqueueValidation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input EnqueueInput
	}{
		{"missing order", EnqueueInput{BuyerID: uuid.New(), AmountCents: 1, Source: enums.RefundSourceReturn}},
		{"missing buyer", EnqueueInput{OrderID: uuid.New(), AmountCents: 1, Source: enums.RefundSourceReturn}},
		{"non-positive amount", EnqueueInput{OrderID: uuid.New(), BuyerID: uuid.New(), Source: enums.RefundSourceReturn}},
		{"bad source", EnqueueInput{OrderID: uuid.New(), BuyerID: uuid.New(), AmountCents: 1, Source: enums.RefundSource("oops")}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Enqueue(ctx, nil, tt.input)
			requireCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestExecuteGatewayRefund(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	request := h.enqueue(t, enums.PaymentMethodVNPay)

	got, err := h.svc.Execute(ctx, request.ID)
	require.NoError(t, err)
	require.Equal(t, enums.RefundStatusCompleted, got.Status)
	require.NotNil(t, got.TransactionID)
	require.Contains(t, h.notifier.titles, "Refund issued")

	// An already-completed request replays as a no-op.
	h.gateway.refunded = nil
	got, err = h.svc.Execute(ctx, request.ID)
	require.NoError(t, err)
	require.Equal(t, enums.RefundStatusCompleted, got.Status)
	require.Empty(t, h.gateway.refunded)
}

func TestExecuteFailureKeepsRequestPending(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	request := h.enqueue(t, enums.PaymentMethodVNPay)
	h.gateway.refundErr = errors.New("provider unavailable")

	_, err := h.svc.Execute(ctx, request.ID)
	require.Error(t, err)
	require.Contains(t, h.notifier.titles, "Gateway refund failed")

	pending, err := h.svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestExecuteRejectsBankTransfers(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	request := h.enqueue(t, enums.PaymentMethodCOD)

	_, err := h.svc.Execute(context.Background(), request.ID)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCompleteAndReject(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	first := h.enqueue(t, enums.PaymentMethodCOD)
	_, err := h.svc.Complete(ctx, first.ID, "")
	requireCode(t, err, pkgerrors.CodeValidation)

	got, err := h.svc.Complete(ctx, first.ID, "bank-7731")
	require.NoError(t, err)
	require.Equal(t, enums.RefundStatusCompleted, got.Status)
	require.Equal(t, "bank-7731", *got.TransactionID)

	// Terminal requests accept no further decisions.
	_, err = h.svc.Reject(ctx, first.ID, "late")
	requireCode(t, err, pkgerrors.CodeStateConflict)

	second := h.enqueue(t, enums.PaymentMethodCOD)
	_, err = h.svc.Reject(ctx, second.ID, "")
	requireCode(t, err, pkgerrors.CodeValidation)

	got, err = h.svc.Reject(ctx, second.ID, "duplicate request")
	require.NoError(t, err)
	require.Equal(t, enums.RefundStatusRejected, got.Status)
	require.Equal(t, "duplicate request", *got.RejectReason)
}

func TestExecuteMissingRequest(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.svc.Execute(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}
