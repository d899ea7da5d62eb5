package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxops/backoffice/internal/domain"
	"github.com/fxops/backoffice/internal/gateway"
	"github.com/fxops/backoffice/internal/models"
)

func TestOrderLifecycle(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateOrderInput{
		CustomerID:   uuid.New(),
		FromCurrency: "usdt",
		ToCurrency:   "pkr",
		AmountBuy:    dec("100"),
		AmountSell:   dec("28500"),
		Rate:         dec("285"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "USDT", order.FromCurrency)
	assert.Equal(t, "PKR", order.ToCurrency)

	// Process: pending → waiting_for_receipt.
	handler := uuid.New()
	order, err = f.svc.Process(ctx, order.ID, handler, models.PaymentMethod{
		Type:      domain.PaymentTypeCrypto,
		Network:   "TRC20",
		Addresses: []string{"TXYZabc123"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusWaitingForReceipt, order.Status)
	require.NotNil(t, order.HandlerID)
	assert.Equal(t, handler, *order.HandlerID)

	// Partial receipt leaves the order waiting and the balance open.
	outcome, err := f.svc.AddReceipts(ctx, order.ID, []UploadItem{
		{Amount: dec("40"), ProofLocator: "s3://proofs/r1.png"},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusWaitingForReceipt, outcome.Status)

	view, err := f.svc.Details(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, view.ReceiptBalance.Equal(dec("60")))
	assert.True(t, view.TotalReceiptAmount.Equal(dec("40")))

	// Covering receipt: the store advances to waiting_for_payment.
	outcome, err = f.svc.AddReceipts(ctx, order.ID, []UploadItem{
		{Amount: dec("60"), ProofLocator: "s3://proofs/r2.png"},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusWaitingForPayment, outcome.Status)

	// Payments are rejected until beneficiaries exist; the ledger stays put.
	_, err = f.svc.AddPayments(ctx, order.ID, []UploadItem{
		{Amount: dec("28500"), ProofLocator: "s3://proofs/p1.png"},
	}, false)
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)

	view, err = f.svc.Details(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Payments)
	assert.True(t, view.PaymentBalance.Equal(dec("28500")))

	// Attach beneficiaries, then pay out in two chunks.
	view, err = f.svc.AddBeneficiaries(ctx, order.ID, []BeneficiaryInput{cryptoBeneficiary()}, false)
	require.NoError(t, err)
	require.Len(t, view.Beneficiaries, 1)

	outcome, err = f.svc.AddPayments(ctx, order.ID, []UploadItem{
		{Amount: dec("10000"), ProofLocator: "s3://proofs/p1.png"},
		{Amount: dec("18500"), ProofLocator: "s3://proofs/p2.png"},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, outcome.Status)
	require.Len(t, outcome.Results, 2)
	assert.Empty(t, outcome.Results[0].Error)
	assert.Empty(t, outcome.Results[1].Error)

	// Profit can be recorded only now.
	order, err = f.svc.RecordProfit(ctx, order.ID, dec("150"), "usd")
	require.NoError(t, err)
	require.NotNil(t, order.ProfitAmount)
	assert.True(t, order.ProfitAmount.Equal(dec("150")))
	assert.Equal(t, "USD", order.ProfitCurrency)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateOrderInput{
		FromCurrency: "USD", ToCurrency: "EUR",
		AmountBuy: dec("10"), AmountSell: dec("9"),
	})
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	_, err = f.svc.Create(ctx, CreateOrderInput{
		CustomerID: uuid.New(), ToCurrency: "EUR",
		AmountBuy: dec("10"), AmountSell: dec("9"),
	})
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	_, err = f.svc.Create(ctx, CreateOrderInput{
		CustomerID: uuid.New(), FromCurrency: "USD", ToCurrency: "EUR",
		AmountBuy: dec("0"), AmountSell: dec("9"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Create(ctx, CreateOrderInput{
		CustomerID: uuid.New(), FromCurrency: "USD", ToCurrency: "EUR",
		AmountBuy: dec("10"), AmountSell: dec("-9"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	// Omitted rate defaults to 1.
	order, err := f.svc.Create(ctx, CreateOrderInput{
		CustomerID: uuid.New(), FromCurrency: "USD", ToCurrency: "EUR",
		AmountBuy: dec("10"), AmountSell: dec("9"),
	})
	require.NoError(t, err)
	assert.True(t, order.Rate.Equal(dec("1")))
}

func TestReceiptBatchStopsAfterAdvancement(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	order := seedProcessedOrder(t, f, dec("100"), dec("200"))

	// The second item covers the target; the third lands after advancement
	// and is rejected with a precondition error instead of being stored.
	outcome, err := f.svc.AddReceipts(ctx, order.ID, []UploadItem{
		{Amount: dec("50"), ProofLocator: "s3://proofs/a.png"},
		{Amount: dec("50"), ProofLocator: "s3://proofs/b.png"},
		{Amount: dec("25"), ProofLocator: "s3://proofs/c.png"},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusWaitingForPayment, outcome.Status)
	require.Len(t, outcome.Results, 3)
	assert.Empty(t, outcome.Results[0].Error)
	assert.Empty(t, outcome.Results[1].Error)
	assert.NotEmpty(t, outcome.Results[2].Error)

	view, err := f.svc.Details(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, view.Receipts, 2)
	assert.True(t, view.TotalReceiptAmount.Equal(dec("100")))
}

func TestReceiptBatchContinueOnError(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	order := seedProcessedOrder(t, f, dec("100"), dec("200"))

	outcome, err := f.svc.AddReceipts(ctx, order.ID, []UploadItem{
		{Amount: dec("-5"), ProofLocator: "s3://proofs/bad.png"},
		{Amount: dec("30"), ProofLocator: ""},
		{Amount: dec("30"), ProofLocator: "s3://proofs/ok.png"},
	}, true)
	require.NoError(t, err)
	require.Len(t, outcome.Results, 3)
	assert.NotEmpty(t, outcome.Results[0].Error)
	assert.NotEmpty(t, outcome.Results[1].Error)
	assert.Empty(t, outcome.Results[2].Error)
	assert.Equal(t, domain.OrderStatusWaitingForReceipt, outcome.Status)

	// Without continueOnError the batch stops at the first bad item.
	outcome, err = f.svc.AddReceipts(ctx, order.ID, []UploadItem{
		{Amount: dec("-5"), ProofLocator: "s3://proofs/bad.png"},
		{Amount: dec("30"), ProofLocator: "s3://proofs/never.png"},
	}, false)
	require.NoError(t, err)
	require.Len(t, outcome.Results, 1)
	assert.NotEmpty(t, outcome.Results[0].Error)
}

func TestBeneficiariesAttachOnce(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	order := seedProcessedOrder(t, f, dec("100"), dec("200"))
	_, err := f.svc.AddReceipts(ctx, order.ID, []UploadItem{
		{Amount: dec("100"), ProofLocator: "s3://proofs/full.png"},
	}, false)
	require.NoError(t, err)

	view, err := f.svc.AddBeneficiaries(ctx, order.ID, []BeneficiaryInput{cryptoBeneficiary()}, false)
	require.NoError(t, err)
	assert.Len(t, view.Beneficiaries, 1)

	_, err = f.svc.AddBeneficiaries(ctx, order.ID, []BeneficiaryInput{cryptoBeneficiary()}, false)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestBeneficiarySaveToCustomerCopies(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	customerID := uuid.New()
	order, err := f.svc.Create(ctx, CreateOrderInput{
		CustomerID: customerID, FromCurrency: "USDT", ToCurrency: "PKR",
		AmountBuy: dec("100"), AmountSell: dec("28500"), Rate: dec("285"),
	})
	require.NoError(t, err)
	_, err = f.svc.Process(ctx, order.ID, uuid.New(), models.PaymentMethod{
		Type: domain.PaymentTypeCrypto, Network: "TRC20", Addresses: []string{"addr"},
	})
	require.NoError(t, err)
	_, err = f.svc.AddReceipts(ctx, order.ID, []UploadItem{
		{Amount: dec("100"), ProofLocator: "s3://proofs/full.png"},
	}, false)
	require.NoError(t, err)

	_, err = f.svc.AddBeneficiaries(ctx, order.ID, []BeneficiaryInput{cryptoBeneficiary()}, true)
	require.NoError(t, err)

	saved, err := f.store.ListCustomerBeneficiaries(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, domain.PaymentTypeCrypto, saved[0].PaymentType)
	// The copy is customer-owned, not order-owned.
	assert.Nil(t, saved[0].OrderID)
}

func TestAvailableActionsPerStatus(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	order := seedProcessedOrder(t, f, dec("100"), dec("200"))

	view, err := f.svc.Details(ctx, order.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{domain.ActionUploadReceipt, domain.ActionCancel, domain.ActionDelete}, view.AvailableActions)

	_, err = f.svc.AddReceipts(ctx, order.ID, []UploadItem{
		{Amount: dec("100"), ProofLocator: "s3://proofs/full.png"},
	}, false)
	require.NoError(t, err)

	view, err = f.svc.Details(ctx, order.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{domain.ActionAddBeneficiary, domain.ActionCancel, domain.ActionDelete}, view.AvailableActions)

	_, err = f.svc.AddBeneficiaries(ctx, order.ID, []BeneficiaryInput{cryptoBeneficiary()}, false)
	require.NoError(t, err)

	view, err = f.svc.Details(ctx, order.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{domain.ActionUploadPayment, domain.ActionCancel, domain.ActionDelete}, view.AvailableActions)

	// Viewers see no capability-gated actions at all.
	f.role = domain.RoleViewer
	view, err = f.svc.Details(ctx, order.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{domain.ActionUploadPayment}, view.AvailableActions)
}

func TestCancelRequiresCapability(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	order := seedProcessedOrder(t, f, dec("100"), dec("200"))

	f.role = domain.RoleViewer
	_, err := f.svc.Cancel(ctx, order.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	// No mutation happened.
	fresh, err := f.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusWaitingForReceipt, fresh.Status)

	f.role = domain.RoleOperator
	cancelled, err := f.svc.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	// Terminal orders cannot be cancelled again.
	_, err = f.svc.Cancel(ctx, order.ID)
	require.ErrorIs(t, err, domain.ErrPreconditionFailed)
	assert.ErrorContains(t, err, "already")
}

func TestDeleteRequiresAdmin(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	order := seedProcessedOrder(t, f, dec("100"), dec("200"))

	f.role = domain.RoleOperator
	err := f.svc.Delete(ctx, order.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	err = f.svc.DeleteMany(ctx, []uuid.UUID{order.ID})
	require.ErrorIs(t, err, domain.ErrForbidden)

	f.role = domain.RoleAdmin
	require.NoError(t, f.svc.Delete(ctx, order.ID))

	_, err = f.svc.Details(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordProfitRequiresCompleted(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	order := seedProcessedOrder(t, f, dec("100"), dec("200"))

	_, err := f.svc.RecordProfit(ctx, order.ID, dec("10"), "USD")
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	_, err = f.svc.RecordProfit(ctx, order.ID, dec("0"), "USD")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestProcessRejectsNonPending(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	order := seedProcessedOrder(t, f, dec("100"), dec("200"))

	_, err := f.svc.Process(ctx, order.ID, uuid.New(), models.PaymentMethod{
		Type: domain.PaymentTypeCrypto, Network: "TRC20", Addresses: []string{"addr"},
	})
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestProcessValidatesPaymentMethod(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateOrderInput{
		CustomerID: uuid.New(), FromCurrency: "USDT", ToCurrency: "PKR",
		AmountBuy: dec("100"), AmountSell: dec("28500"), Rate: dec("285"),
	})
	require.NoError(t, err)

	// Crypto requires a network.
	_, err = f.svc.Process(ctx, order.ID, uuid.New(), models.PaymentMethod{
		Type: domain.PaymentTypeCrypto, Addresses: []string{"addr"},
	})
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	// Unknown type is rejected.
	_, err = f.svc.Process(ctx, order.ID, uuid.New(), models.PaymentMethod{Type: "WIRE"})
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	// Fiat needs no individual bank field.
	_, err = f.svc.Process(ctx, order.ID, uuid.New(), models.PaymentMethod{Type: domain.PaymentTypeFiat})
	assert.NoError(t, err)
}

// seedProcessedOrder creates an order and moves it to waiting_for_receipt.
func seedProcessedOrder(t *testing.T, f *workflowFixture, amountBuy, amountSell decimal.Decimal) *models.Order {
	t.Helper()
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateOrderInput{
		CustomerID:   uuid.New(),
		FromCurrency: "USDT",
		ToCurrency:   "PKR",
		AmountBuy:    amountBuy,
		AmountSell:   amountSell,
		Rate:         dec("285"),
	})
	require.NoError(t, err)

	order, err = f.svc.Process(ctx, order.ID, uuid.New(), models.PaymentMethod{
		Type:      domain.PaymentTypeCrypto,
		Network:   "TRC20",
		Addresses: []string{"TXYZabc123"},
	})
	require.NoError(t, err)
	return order
}

// unreachableStore simulates a store whose backing database is down.
type unreachableStore struct {
	*memStore
	err error
}

func (s *unreachableStore) GetOrder(context.Context, uuid.UUID) (*models.Order, error) {
	return nil, s.err
}

func TestStoreFailureSurfacesAsUpstream(t *testing.T) {
	storeErr := fmt.Errorf("get order: %w: %w", domain.ErrUpstream, errors.New("connection refused"))
	store := &unreachableStore{memStore: newMemStore(), err: storeErr}
	caps := NewRoleCapabilities(func(context.Context) string { return domain.RoleAdmin })
	svc := NewOrderService(store, store.memStore, caps, NewAmountDeriver(gateway.NewStaticRateFeed()))
	ctx := context.Background()

	_, err := svc.Cancel(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrUpstream)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Process(ctx, uuid.New(), uuid.New(), models.PaymentMethod{Type: domain.PaymentTypeFiat})
	require.ErrorIs(t, err, domain.ErrUpstream)
}
