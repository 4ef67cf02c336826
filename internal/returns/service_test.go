package returns

import (
	"context"
	"io"
	"testing"

	"github.com/anvo-dev/markethub-backend/internal/merchants"
	"github.com/anvo-dev/markethub-backend/internal/refunds"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
	"github.com/anvo-dev/markethub-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type gormRunner struct {
	db *gorm.DB
}

func (r gormRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fakeOrders struct {
	byID map[uuid.UUID]*models.Order
}

func (f *fakeOrders) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.byID[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (f *fakeOrders) ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrders) Confirm(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, nil
}

func (f *fakeOrders) StartShipping(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, nil
}

func (f *fakeOrders) MarkDelivered(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, nil
}

func (f *fakeOrders) Complete(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, nil
}

func (f *fakeOrders) Cancel(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, nil
}

func (f *fakeOrders) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, nil
}

func (f *fakeOrders) MarkPaymentFailed(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, nil
}

func (f *fakeOrders) BeginReturn(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	order, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Status = enums.OrderStatusReturning
	return order, nil
}

func (f *fakeOrders) FinishReturn(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	order, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Status = enums.OrderStatusReturned
	return order, nil
}

func (f *fakeOrders) AttachReturnRequest(ctx context.Context, tx *gorm.DB, id, returnRequestID uuid.UUID) error {
	order, err := f.Get(ctx, id)
	if err != nil {
		return err
	}
	order.ReturnRequestID = &returnRequestID
	return nil
}

type fakeDirectory struct {
	address types.Address
}

func (f fakeDirectory) GetByID(ctx context.Context, id uuid.UUID) (*merchants.MerchantDTO, error) {
	return &merchants.MerchantDTO{
		ID:      id,
		Name:    "returns test store",
		Status:  enums.MerchantStatusActive,
		Address: f.address,
	}, nil
}

type fakeRefunds struct {
	enqueued []refunds.EnqueueInput
}

func (f *fakeRefunds) Enqueue(ctx context.Context, tx *gorm.DB, input refunds.EnqueueInput) (*models.RefundRequest, error) {
	f.enqueued = append(f.enqueued, input)
	return &models.RefundRequest{ID: uuid.New(), OrderID: input.OrderID, Status: enums.RefundStatusPending}, nil
}

func (f *fakeRefunds) Execute(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	return nil, nil
}

func (f *fakeRefunds) Complete(ctx context.Context, id uuid.UUID, transactionID string) (*models.RefundRequest, error) {
	return nil, nil
}

func (f *fakeRefunds) Reject(ctx context.Context, id uuid.UUID, reason string) (*models.RefundRequest, error) {
	return nil, nil
}

func (f *fakeRefunds) ListPending(ctx context.Context) ([]models.RefundRequest, error) {
	return nil, nil
}

type deduction struct {
	merchantID  uuid.UUID
	orderID     uuid.UUID
	amountCents int64
}

type fakeWallet struct {
	deductions []deduction
}

func (f *fakeWallet) AddPending(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) (*models.Wallet, error) {
	return &models.Wallet{MerchantID: merchantID}, nil
}

func (f *fakeWallet) DeductPending(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) (*models.Wallet, error) {
	f.deductions = append(f.deductions, deduction{merchantID: merchantID, orderID: orderID, amountCents: amountCents})
	return &models.Wallet{MerchantID: merchantID}, nil
}

func (f *fakeWallet) ReleaseToBalance(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) (*models.Wallet, error) {
	return &models.Wallet{MerchantID: merchantID}, nil
}

func (f *fakeWallet) CreditBalance(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64, note string) (*models.Wallet, error) {
	return &models.Wallet{MerchantID: merchantID}, nil
}

func (f *fakeWallet) RecordCommission(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) error {
	return nil
}

func (f *fakeWallet) RecordDiscountLoss(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) error {
	return nil
}

func (f *fakeWallet) Statement(ctx context.Context, merchantID uuid.UUID) (*models.Wallet, []models.WalletEntry, error) {
	return &models.Wallet{MerchantID: merchantID}, nil, nil
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
	repo     Repository
	orders   *fakeOrders
	refunds  *fakeRefunds
	wallet   *fakeWallet
	notifier *fakeNotifier
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	dsn := "file:returns_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE return_requests (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(6)))),
  order_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  merchant_id TEXT NOT NULL,
  reason TEXT NOT NULL,
  evidence_urls TEXT,
  refund_cents INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  bank_info TEXT,
  store_response TEXT,
  admin_decision TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE return_shipments (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(6)))),
  return_request_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  origin TEXT,
  destination TEXT,
  status TEXT NOT NULL DEFAULT 'pending_pickup',
  returned_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)

	h := &testHarness{
		db:       db,
		repo:     NewRepository(db),
		orders:   &fakeOrders{byID: map[uuid.UUID]*models.Order{}},
		refunds:  &fakeRefunds{},
		wallet:   &fakeWallet{},
		notifier: &fakeNotifier{},
	}
	logg := logger.New(logger.Options{ServiceName: "returns-test", Output: io.Discard})
	svc, err := NewService(
		h.repo,
		h.orders,
		fakeDirectory{address: types.Address{Line1: "12 Ly Thuong Kiet", Region: "hanoi"}},
		h.refunds,
		h.wallet,
		h.notifier,
		gormRunner{db: db},
		logg,
	)
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *testHarness) seedOrder(mutate func(o *models.Order)) *models.Order {
	order := &models.Order{
		ID:            uuid.New(),
		BuyerID:       uuid.New(),
		MerchantID:    uuid.New(),
		SubtotalCents: 300_000,
		TotalCents:    300_000,
		PaymentMethod: enums.PaymentMethodCOD,
		PaymentStatus: enums.PaymentStatusPaid,
		Status:        enums.OrderStatusDelivered,
		ShippingAddress: &types.Address{
			Line1:  "5 Tran Hung Dao",
			Region: "danang",
		},
	}
	if mutate != nil {
		mutate(order)
	}
	h.orders.byID[order.ID] = order
	return order
}

func (h *testHarness) create(t *testing.T, order *models.Order) *models.ReturnRequest {
	t.Helper()
	request, err := h.svc.Create(context.Background(), CreateInput{
		OrderID:      order.ID,
		BuyerID:      order.BuyerID,
		Reason:       "wrong size",
		EvidenceURLs: []string{"https://cdn.example.com/evidence/1.jpg"},
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

func TestCreate(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	order := h.seedOrder(nil)

	request := h.create(t, order)
	require.Equal(t, enums.ReturnStatusPending, request.Status)
	require.Equal(t, order.TotalCents, request.RefundCents)
	require.NotEqual(t, uuid.Nil, request.ID)
	require.Contains(t, h.notifier.titles, "Return requested")

	// The order carries a back-reference to its return request.
	require.NotNil(t, order.ReturnRequestID)
	require.Equal(t, request.ID, *order.ReturnRequestID)
}

func TestCreateGuards(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	order := h.seedOrder(nil)

	_, err := h.svc.Create(ctx, CreateInput{OrderID: order.ID, BuyerID: order.BuyerID, EvidenceURLs: []string{"x"}})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.Create(ctx, CreateInput{OrderID: order.ID, BuyerID: order.BuyerID, Reason: "broken"})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.Create(ctx, CreateInput{OrderID: order.ID, BuyerID: uuid.New(), Reason: "broken", EvidenceURLs: []string{"x"}})
	requireCode(t, err, pkgerrors.CodeForbidden)

	shipping := h.seedOrder(func(o *models.Order) { o.Status = enums.OrderStatusShipping })
	_, err = h.svc.Create(ctx, CreateInput{OrderID: shipping.ID, BuyerID: shipping.BuyerID, Reason: "broken", EvidenceURLs: []string{"x"}})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	// A second request while the first is still open is rejected.
	h.create(t, order)
	_, err = h.svc.Create(ctx, CreateInput{OrderID: order.ID, BuyerID: order.BuyerID, Reason: "broken", EvidenceURLs: []string{"x"}})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestStoreRespondApprove(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	order := h.seedOrder(nil)
	request := h.create(t, order)

	got, err := h.svc.StoreRespond(ctx, request.ID, order.MerchantID, true, "")
	require.NoError(t, err)
	require.Equal(t, enums.ReturnStatusReadyToReturn, got.Status)
	require.Equal(t, enums.OrderStatusReturning, order.Status)

	shipment, err := h.repo.FindShipmentByReturn(ctx, request.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ShipmentStatusPendingPickup, shipment.Status)
	require.Equal(t, "danang", shipment.Origin.Region)
	require.Equal(t, "hanoi", shipment.Destination.Region)
}

func TestStoreRespondReject(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	order := h.seedOrder(nil)
	request := h.create(t, order)

	_, err := h.svc.StoreRespond(ctx, request.ID, order.MerchantID, false, "")
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.StoreRespond(ctx, request.ID, uuid.New(), false, "signs of use")
	requireCode(t, err, pkgerrors.CodeForbidden)

	got, err := h.svc.StoreRespond(ctx, request.ID, order.MerchantID, false, "signs of use")
	require.NoError(t, err)
	require.Equal(t, enums.ReturnStatusRejected, got.Status)
	require.NotNil(t, got.StoreResponse)
	require.False(t, got.StoreResponse.Approved)

	// The request was already answered.
	_, err = h.svc.StoreRespond(ctx, request.ID, order.MerchantID, true, "")
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestShipmentLifecycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	order := h.seedOrder(nil)
	request := h.create(t, order)

	_, err := h.svc.StoreRespond(ctx, request.ID, order.MerchantID, true, "")
	require.NoError(t, err)
	shipment, err := h.repo.FindShipmentByReturn(ctx, request.ID)
	require.NoError(t, err)

	got, err := h.svc.ShipmentInTransit(ctx, shipment.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ShipmentStatusInTransit, got.Status)

	current, err := h.svc.Get(ctx, request.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ReturnStatusReturning, current.Status)

	got, err = h.svc.ShipmentReturned(ctx, shipment.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ShipmentStatusReturned, got.Status)
	require.NotNil(t, got.ReturnedAt)
	require.Equal(t, enums.OrderStatusReturned, order.Status)

	// Courier webhooks replay; the second delivery event is a no-op.
	got, err = h.svc.ShipmentReturned(ctx, shipment.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ShipmentStatusReturned, got.Status)
}

func TestConfirmReturnedGoodsOk(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	order := h.seedOrder(func(o *models.Order) {
		o.PaymentMethod = enums.PaymentMethodVNPay
	})
	request := h.create(t, order)

	_, err := h.svc.StoreRespond(ctx, request.ID, order.MerchantID, true, "")
	require.NoError(t, err)
	shipment, err := h.repo.FindShipmentByReturn(ctx, request.ID)
	require.NoError(t, err)
	_, err = h.svc.ShipmentInTransit(ctx, shipment.ID)
	require.NoError(t, err)
	_, err = h.svc.ShipmentReturned(ctx, shipment.ID)
	require.NoError(t, err)

	_, err = h.svc.ConfirmReturnedGoodsOk(ctx, request.ID, uuid.New())
	requireCode(t, err, pkgerrors.CodeForbidden)

	got, err := h.svc.ConfirmReturnedGoodsOk(ctx, request.ID, order.MerchantID)
	require.NoError(t, err)
	require.Equal(t, enums.ReturnStatusRefunded, got.Status)

	require.Len(t, h.refunds.enqueued, 1)
	require.Equal(t, enums.RefundSourceReturn, h.refunds.enqueued[0].Source)
	require.Equal(t, request.RefundCents, h.refunds.enqueued[0].AmountCents)

	// The escrowed share comes back out of pending for online payments.
	require.Len(t, h.wallet.deductions, 1)
	require.Equal(t, order.MerchantRevenueCents(), h.wallet.deductions[0].amountCents)
}

func TestConfirmBeforeGoodsReturned(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	order := h.seedOrder(nil)
	request := h.create(t, order)

	_, err := h.svc.ConfirmReturnedGoodsOk(ctx, request.ID, order.MerchantID)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestApplyAdminDecision(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		from     enums.ReturnStatus
		decision enums.DisputeDecision
		want     enums.ReturnStatus
	}{
		{"approve return reopens pickup", enums.ReturnStatusDisputed, enums.DisputeDecisionApproveReturn, enums.ReturnStatusReadyToReturn},
		{"reject return closes", enums.ReturnStatusDisputed, enums.DisputeDecisionRejectReturn, enums.ReturnStatusClosed},
		{"approve store refunds to store", enums.ReturnStatusQualityHold, enums.DisputeDecisionApproveStore, enums.ReturnStatusRefundToStore},
		{"reject store refunds buyer", enums.ReturnStatusQualityHold, enums.DisputeDecisionRejectStore, enums.ReturnStatusRefunded},
		{"partial refund", enums.ReturnStatusQualityHold, enums.DisputeDecisionPartialRefund, enums.ReturnStatusPartialRefund},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			order := h.seedOrder(nil)
			request := h.create(t, order)
			require.NoError(t, h.db.Model(&models.ReturnRequest{}).
				Where("id = ?", request.ID).
				UpdateColumn("status", tt.from).Error)

			var got *models.ReturnRequest
			err := h.db.Transaction(func(tx *gorm.DB) error {
				var txErr error
				got, txErr = h.svc.ApplyAdminDecision(ctx, tx, request.ID, types.AdminDecision{Decision: tt.decision})
				return txErr
			})
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Status)
			require.NotNil(t, got.AdminDecision)
		})
	}
}

func TestApplyAdminDecisionWrongPhase(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	order := h.seedOrder(nil)
	request := h.create(t, order)

	// A store-fault decision cannot land on a rejection dispute.
	require.NoError(t, h.db.Model(&models.ReturnRequest{}).
		Where("id = ?", request.ID).
		UpdateColumn("status", enums.ReturnStatusDisputed).Error)

	err := h.db.Transaction(func(tx *gorm.DB) error {
		_, txErr := h.svc.ApplyAdminDecision(context.Background(), tx, request.ID, types.AdminDecision{
			Decision: enums.DisputeDecisionApproveStore,
		})
		return txErr
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}
