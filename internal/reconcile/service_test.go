package reconcile

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

type release struct {
	merchantID  uuid.UUID
	orderID     uuid.UUID
	amountCents int64
}

type fakeWallet struct {
	releases   []release
	releaseErr error
}

func (f *fakeWallet) AddPending(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) (*models.Wallet, error) {
	return &models.Wallet{MerchantID: merchantID}, nil
}

func (f *fakeWallet) DeductPending(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) (*models.Wallet, error) {
	return &models.Wallet{MerchantID: merchantID}, nil
}

func (f *fakeWallet) ReleaseToBalance(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) (*models.Wallet, error) {
	if f.releaseErr != nil {
		return nil, f.releaseErr
	}
	f.releases = append(f.releases, release{merchantID: merchantID, orderID: orderID, amountCents: amountCents})
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

func newTestService(t *testing.T, wallet *fakeWallet) Service {
	t.Helper()
	dsn := "file:reconcile_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE reconcile_tasks (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(6)))),
  order_id TEXT NOT NULL,
  merchant_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  last_error TEXT,
  attempts INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'pending',
  resolved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)

	logg := logger.New(logger.Options{ServiceName: "reconcile-test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), wallet, logg)
	require.NoError(t, err)
	return svc
}

func TestEnqueueAndRedrive(t *testing.T) {
	t.Parallel()

	wallet := &fakeWallet{}
	svc := newTestService(t, wallet)
	ctx := context.Background()

	orderID := uuid.New()
	merchantID := uuid.New()
	svc.EnqueueWalletCredit(ctx, orderID, merchantID, 75_000, errors.New("wallet store unavailable"))

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "wallet store unavailable", pending[0].LastError)
	require.Equal(t, 1, pending[0].Attempts)

	task, err := svc.Redrive(ctx, pending[0].ID)
	require.NoError(t, err)
	require.Equal(t, enums.ReconcileStatusResolved, task.Status)
	require.NotNil(t, task.ResolvedAt)
	require.Equal(t, 2, task.Attempts)
	require.Empty(t, task.LastError)

	require.Len(t, wallet.releases, 1)
	require.Equal(t, int64(75_000), wallet.releases[0].amountCents)
	require.Equal(t, merchantID, wallet.releases[0].merchantID)

	// The resolved task replays as a no-op.
	task, err = svc.Redrive(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ReconcileStatusResolved, task.Status)
	require.Len(t, wallet.releases, 1)

	pending, err = svc.ListPending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestRedriveFailureStaysPending(t *testing.T) {
	t.Parallel()

	wallet := &fakeWallet{releaseErr: errors.New("still down")}
	svc := newTestService(t, wallet)
	ctx := context.Background()

	svc.EnqueueWalletCredit(ctx, uuid.New(), uuid.New(), 20_000, errors.New("first failure"))
	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.Redrive(ctx, pending[0].ID)
	require.Error(t, err)

	pending, err = svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "still down", pending[0].LastError)
	require.Equal(t, 2, pending[0].Attempts)
}

func TestRedriveMissingTask(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &fakeWallet{})
	_, err := svc.Redrive(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
