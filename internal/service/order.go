package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fxops/backoffice/internal/domain"
	"github.com/fxops/backoffice/internal/models"
	"github.com/fxops/backoffice/internal/observability"
)

// OrderService drives the settlement workflow for currency-exchange orders.
// The store is authoritative for status: after every receipt or payment write
// the service re-reads the order and branches on the fresh status instead of
// inferring advancement locally.
type OrderService struct {
	store     OrderStore
	directory BeneficiaryStore
	caps      Capabilities
	deriver   *AmountDeriver
}

// NewOrderService wires the workflow engine.
func NewOrderService(store OrderStore, directory BeneficiaryStore, caps Capabilities, deriver *AmountDeriver) *OrderService {
	return &OrderService{
		store:     store,
		directory: directory,
		caps:      caps,
		deriver:   deriver,
	}
}

// CreateOrderInput holds the order-entry fields.
type CreateOrderInput struct {
	CustomerID   uuid.UUID       `json:"customer_id"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	AmountBuy    decimal.Decimal `json:"amount_buy"`
	AmountSell   decimal.Decimal `json:"amount_sell"`
	Rate         decimal.Decimal `json:"rate"`
}

// UploadItem is one amount + proof pair in a receipt or payment batch.
type UploadItem struct {
	Amount       decimal.Decimal `json:"amount"`
	ProofLocator string          `json:"proof_locator"`
}

// UploadResult reports the outcome of one batch item.
type UploadResult struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// UploadOutcome reports a whole batch: per-item results plus the fresh,
// store-confirmed order status.
type UploadOutcome struct {
	Results []UploadResult `json:"results"`
	Status  string         `json:"status"`
}

// BeneficiaryInput carries the fields of one beneficiary to attach.
type BeneficiaryInput struct {
	PaymentType   string   `json:"payment_type"`
	Network       string   `json:"network,omitempty"`
	Addresses     []string `json:"addresses,omitempty"`
	BankName      string   `json:"bank_name,omitempty"`
	AccountTitle  string   `json:"account_title,omitempty"`
	AccountNumber string   `json:"account_number,omitempty"`
	IBAN          string   `json:"iban,omitempty"`
	SwiftCode     string   `json:"swift_code,omitempty"`
	BankAddress   string   `json:"bank_address,omitempty"`
}

// OrderView is an order read model enriched with the actions legal for the
// current status and caller.
type OrderView struct {
	models.OrderDetails
	AvailableActions []string `json:"available_actions"`
}

// Create validates and stores a new order in pending. Rate defaults to 1
// when omitted; no balances exist yet.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if in.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer is required", domain.ErrPreconditionFailed)
	}
	if strings.TrimSpace(in.FromCurrency) == "" || strings.TrimSpace(in.ToCurrency) == "" {
		return nil, fmt.Errorf("%w: both currencies are required", domain.ErrPreconditionFailed)
	}
	if in.AmountBuy.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount_buy", domain.ErrInvalidAmount)
	}
	if in.AmountSell.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount_sell", domain.ErrInvalidAmount)
	}
	rate := in.Rate
	if rate.Sign() <= 0 {
		rate = decimal.NewFromInt(1)
	}

	order := &models.Order{
		ID:           uuid.New(),
		CustomerID:   in.CustomerID,
		FromCurrency: strings.ToUpper(strings.TrimSpace(in.FromCurrency)),
		ToCurrency:   strings.ToUpper(strings.TrimSpace(in.ToCurrency)),
		AmountBuy:    in.AmountBuy,
		AmountSell:   in.AmountSell,
		Rate:         rate,
		Status:       domain.OrderStatusPending,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

// List returns orders matching the filter.
func (s *OrderService) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	orders, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Details returns the authoritative order read model plus the actions the
// caller may take. Capability-gated actions are hidden when the caller's
// role lacks them.
func (s *OrderService) Details(ctx context.Context, id uuid.UUID) (*OrderView, error) {
	details, err := s.store.GetOrderDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order details: %w", err)
	}

	actions := availableActions(details.Order.Status, len(details.Beneficiaries) > 0)
	filtered := actions[:0:0]
	for _, action := range actions {
		switch action {
		case domain.ActionCancel:
			if !s.caps.CanCancelOrder(ctx) {
				continue
			}
		case domain.ActionDelete:
			if !s.caps.CanDeleteOrder(ctx) {
				continue
			}
		}
		filtered = append(filtered, action)
	}

	return &OrderView{OrderDetails: *details, AvailableActions: filtered}, nil
}

// Process assigns a handler and the counter-party payment method, moving the
// order from pending to waiting_for_receipt.
func (s *OrderService) Process(ctx context.Context, id, handlerID uuid.UUID, method models.PaymentMethod) (*models.Order, error) {
	if handlerID == uuid.Nil {
		return nil, fmt.Errorf("%w: handler is required", domain.ErrPreconditionFailed)
	}
	if err := validatePaymentMethod(method); err != nil {
		return nil, err
	}

	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if normalizeStatus(order.Status) != domain.OrderStatusPending {
		return nil, fmt.Errorf("%w: order is %s, only pending orders can be processed", domain.ErrPreconditionFailed, order.Status)
	}

	if err := s.store.SetOrderProcessing(ctx, id, handlerID, method); err != nil {
		return nil, fmt.Errorf("process order: %w", err)
	}
	observability.IncrementOrderTransition(domain.OrderStatusPending, domain.OrderStatusWaitingForReceipt)

	return s.refetch(ctx, id)
}

// AddReceipts appends a batch of receipts in order. Each amount + proof pair
// commits atomically; the store decides when cumulative receipts suffice and
// the loop re-reads the status after every item. With continueOnError the
// batch keeps going past an individual item's validation failure.
func (s *OrderService) AddReceipts(ctx context.Context, orderID uuid.UUID, items []UploadItem, continueOnError bool) (*UploadOutcome, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if normalizeStatus(order.Status) != domain.OrderStatusWaitingForReceipt {
		return nil, fmt.Errorf("%w: order is %s, receipts require waiting_for_receipt", domain.ErrPreconditionFailed, order.Status)
	}

	outcome := &UploadOutcome{Status: order.Status}
	for i, item := range items {
		if normalizeStatus(outcome.Status) != domain.OrderStatusWaitingForReceipt {
			// Store confirmed advancement mid-batch; the rest is out of state.
			outcome.Results = append(outcome.Results, UploadResult{Index: i, Error: domain.ErrPreconditionFailed.Error()})
			continue
		}
		if err := validateUploadItem(item); err != nil {
			outcome.Results = append(outcome.Results, UploadResult{Index: i, Error: err.Error()})
			if !continueOnError {
				break
			}
			continue
		}

		receipt := &models.Receipt{
			ID:           uuid.New(),
			OrderID:      orderID,
			Amount:       item.Amount,
			ProofLocator: item.ProofLocator,
		}
		if err := s.store.AddReceipt(ctx, receipt); err != nil {
			return outcome, fmt.Errorf("add receipt: %w", err)
		}
		outcome.Results = append(outcome.Results, UploadResult{Index: i, ID: receipt.ID.String()})

		fresh, err := s.store.GetOrder(ctx, orderID)
		if err != nil {
			return outcome, fmt.Errorf("refetch order after receipt: %w", err)
		}
		if fresh.Status != outcome.Status {
			observability.IncrementOrderTransition(outcome.Status, fresh.Status)
			zap.L().Info("order advanced after receipt upload",
				zap.String("order_id", orderID.String()),
				zap.String("status", fresh.Status))
		}
		outcome.Status = fresh.Status
	}
	return outcome, nil
}

// AddBeneficiaries attaches the settlement beneficiaries to an order waiting
// for payment. The action is effectively once: it is rejected when the order
// already holds beneficiaries. With saveToCustomer each beneficiary is also
// copied into the customer's reusable directory.
func (s *OrderService) AddBeneficiaries(ctx context.Context, orderID uuid.UUID, inputs []BeneficiaryInput, saveToCustomer bool) (*OrderView, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one beneficiary is required", domain.ErrPreconditionFailed)
	}

	details, err := s.store.GetOrderDetails(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order details: %w", err)
	}
	if normalizeStatus(details.Order.Status) != domain.OrderStatusWaitingForPayment {
		return nil, fmt.Errorf("%w: order is %s, beneficiaries require waiting_for_payment", domain.ErrPreconditionFailed, details.Order.Status)
	}
	if len(details.Beneficiaries) > 0 {
		return nil, fmt.Errorf("%w: order already has beneficiaries", domain.ErrPreconditionFailed)
	}
	for _, in := range inputs {
		if err := validateBeneficiaryInput(in); err != nil {
			return nil, err
		}
	}

	for _, in := range inputs {
		beneficiary := beneficiaryFromInput(in)
		beneficiary.OrderID = &orderID
		if err := s.store.AddOrderBeneficiary(ctx, beneficiary); err != nil {
			return nil, fmt.Errorf("add order beneficiary: %w", err)
		}
		if saveToCustomer {
			copyTo := beneficiaryFromInput(in)
			customerID := details.Order.CustomerID
			copyTo.CustomerID = &customerID
			if err := s.directory.AddCustomerBeneficiary(ctx, copyTo); err != nil {
				return nil, fmt.Errorf("save beneficiary to customer: %w", err)
			}
		}
	}

	return s.Details(ctx, orderID)
}

// AddPayments appends a batch of payments. Rejected outright while the order
// has no beneficiaries. Completion is confirmed by the store after each
// upload, never inferred locally.
func (s *OrderService) AddPayments(ctx context.Context, orderID uuid.UUID, items []UploadItem, continueOnError bool) (*UploadOutcome, error) {
	details, err := s.store.GetOrderDetails(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order details: %w", err)
	}
	if normalizeStatus(details.Order.Status) != domain.OrderStatusWaitingForPayment {
		return nil, fmt.Errorf("%w: order is %s, payments require waiting_for_payment", domain.ErrPreconditionFailed, details.Order.Status)
	}
	if len(details.Beneficiaries) == 0 {
		return nil, fmt.Errorf("%w: order has no beneficiaries", domain.ErrPreconditionFailed)
	}

	outcome := &UploadOutcome{Status: details.Order.Status}
	for i, item := range items {
		if normalizeStatus(outcome.Status) != domain.OrderStatusWaitingForPayment {
			outcome.Results = append(outcome.Results, UploadResult{Index: i, Error: domain.ErrPreconditionFailed.Error()})
			continue
		}
		if err := validateUploadItem(item); err != nil {
			outcome.Results = append(outcome.Results, UploadResult{Index: i, Error: err.Error()})
			if !continueOnError {
				break
			}
			continue
		}

		payment := &models.Payment{
			ID:           uuid.New(),
			OrderID:      orderID,
			Amount:       item.Amount,
			ProofLocator: item.ProofLocator,
		}
		if err := s.store.AddPayment(ctx, payment); err != nil {
			return outcome, fmt.Errorf("add payment: %w", err)
		}
		outcome.Results = append(outcome.Results, UploadResult{Index: i, ID: payment.ID.String()})

		fresh, err := s.store.GetOrder(ctx, orderID)
		if err != nil {
			return outcome, fmt.Errorf("refetch order after payment: %w", err)
		}
		if fresh.Status != outcome.Status {
			observability.IncrementOrderTransition(outcome.Status, fresh.Status)
			zap.L().Info("order advanced after payment upload",
				zap.String("order_id", orderID.String()),
				zap.String("status", fresh.Status))
		}
		outcome.Status = fresh.Status
	}
	return outcome, nil
}

// Cancel terminally cancels a non-terminal order. Requires the cancel
// capability; no mutation happens when the check fails.
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if !s.caps.CanCancelOrder(ctx) {
		return nil, fmt.Errorf("%w: cancel order", domain.ErrForbidden)
	}

	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if isTerminalStatus(order.Status) {
		return nil, fmt.Errorf("%w: order is already %s", domain.ErrPreconditionFailed, order.Status)
	}
	if !canTransition(order.Status, domain.OrderStatusCancelled) {
		return nil, fmt.Errorf("%w: order is %s and cannot be cancelled", domain.ErrPreconditionFailed, order.Status)
	}

	if err := s.store.UpdateOrderStatus(ctx, id, domain.OrderStatusCancelled); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	observability.IncrementOrderTransition(order.Status, domain.OrderStatusCancelled)

	return s.refetch(ctx, id)
}

// Delete physically removes the order and everything it owns. Requires the
// delete capability.
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	if !s.caps.CanDeleteOrder(ctx) {
		return fmt.Errorf("%w: delete order", domain.ErrForbidden)
	}
	if err := s.store.DeleteOrder(ctx, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

// DeleteMany removes a set of orders. Requires the bulk-delete capability.
func (s *OrderService) DeleteMany(ctx context.Context, ids []uuid.UUID) error {
	if !s.caps.CanDeleteManyOrders(ctx) {
		return fmt.Errorf("%w: delete orders", domain.ErrForbidden)
	}
	for _, id := range ids {
		if err := s.store.DeleteOrder(ctx, id); err != nil {
			return fmt.Errorf("delete order %s: %w", id, err)
		}
	}
	return nil
}

// RecordProfit stores the profit / service-charge figure on a completed order.
func (s *OrderService) RecordProfit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, currency string) (*models.Order, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: profit amount", domain.ErrInvalidAmount)
	}
	if strings.TrimSpace(currency) == "" {
		return nil, fmt.Errorf("%w: profit currency is required", domain.ErrPreconditionFailed)
	}

	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if normalizeStatus(order.Status) != domain.OrderStatusCompleted {
		return nil, fmt.Errorf("%w: order is %s, profit requires completed", domain.ErrPreconditionFailed, order.Status)
	}

	if err := s.store.SetOrderProfit(ctx, id, amount, strings.ToUpper(currency)); err != nil {
		return nil, fmt.Errorf("record profit: %w", err)
	}
	return s.refetch(ctx, id)
}

// DeriveAmounts fills in the counterpart buy/sell amount for order entry.
func (s *OrderService) DeriveAmounts(ctx context.Context, in DeriveAmountsInput) DeriveAmountsResult {
	return s.deriver.Derive(ctx, in)
}

func (s *OrderService) refetch(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refetch order: %w", err)
	}
	return order, nil
}

func validateUploadItem(item UploadItem) error {
	if item.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: upload amount", domain.ErrInvalidAmount)
	}
	if strings.TrimSpace(item.ProofLocator) == "" {
		return fmt.Errorf("%w: proof locator is required", domain.ErrPreconditionFailed)
	}
	return nil
}

func validatePaymentMethod(method models.PaymentMethod) error {
	switch method.Type {
	case domain.PaymentTypeCrypto:
		if strings.TrimSpace(method.Network) == "" {
			return fmt.Errorf("%w: crypto payment method requires a network", domain.ErrPreconditionFailed)
		}
		for _, addr := range method.Addresses {
			if strings.TrimSpace(addr) == "" {
				return fmt.Errorf("%w: crypto addresses must be non-empty", domain.ErrPreconditionFailed)
			}
		}
	case domain.PaymentTypeFiat:
		// Bank fields are free-form; none individually required.
	default:
		return fmt.Errorf("%w: payment method type must be %s or %s", domain.ErrPreconditionFailed, domain.PaymentTypeCrypto, domain.PaymentTypeFiat)
	}
	return nil
}

func validateBeneficiaryInput(in BeneficiaryInput) error {
	return validatePaymentMethod(models.PaymentMethod{
		Type:      in.PaymentType,
		Network:   in.Network,
		Addresses: in.Addresses,
	})
}

func beneficiaryFromInput(in BeneficiaryInput) *models.Beneficiary {
	return &models.Beneficiary{
		ID:            uuid.New(),
		PaymentType:   in.PaymentType,
		Network:       in.Network,
		Addresses:     in.Addresses,
		BankName:      in.BankName,
		AccountTitle:  in.AccountTitle,
		AccountNumber: in.AccountNumber,
		IBAN:          in.IBAN,
		SwiftCode:     in.SwiftCode,
		BankAddress:   in.BankAddress,
	}
}
