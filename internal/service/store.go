package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fxops/backoffice/internal/models"
)

// OrderFilter narrows order listings.
type OrderFilter struct {
	Status     string
	CustomerID *uuid.UUID
}

// OrderStore is the authoritative order/ledger store. It owns status
// advancement: uploading a receipt or payment may move the order forward,
// and callers learn about it only by re-reading the order.
type OrderStore interface {
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderDetails(ctx context.Context, id uuid.UUID) (*models.OrderDetails, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) error
	// SetOrderProcessing records the handler and payment method and moves the
	// order from pending to waiting_for_receipt in one write.
	SetOrderProcessing(ctx context.Context, id uuid.UUID, handlerID uuid.UUID, method models.PaymentMethod) error
	AddReceipt(ctx context.Context, receipt *models.Receipt) error
	AddPayment(ctx context.Context, payment *models.Payment) error
	AddOrderBeneficiary(ctx context.Context, beneficiary *models.Beneficiary) error
	SetOrderProfit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, currency string) error
	// DeleteOrder removes the order and its owned receipts, payments and
	// beneficiaries.
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

// BeneficiaryStore holds the customer-owned reusable beneficiary directory.
type BeneficiaryStore interface {
	ListCustomerBeneficiaries(ctx context.Context, customerID uuid.UUID) ([]models.Beneficiary, error)
	AddCustomerBeneficiary(ctx context.Context, beneficiary *models.Beneficiary) error
	UpdateCustomerBeneficiary(ctx context.Context, beneficiary *models.Beneficiary) error
	DeleteCustomerBeneficiary(ctx context.Context, customerID, beneficiaryID uuid.UUID) error
}

// AccountStore supplies live account balances.
type AccountStore interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
}

// ProfitStore holds profit calculations and their owned multiplier, rate and
// group rows.
type ProfitStore interface {
	ListCalculations(ctx context.Context) ([]models.ProfitCalculation, error)
	GetCalculation(ctx context.Context, id uuid.UUID) (*models.ProfitCalculation, error)
	GetDefaultCalculation(ctx context.Context) (*models.ProfitCalculation, error)
	CreateCalculation(ctx context.Context, calc *models.ProfitCalculation) error
	RenameCalculation(ctx context.Context, id uuid.UUID, name string) error
	DeleteCalculation(ctx context.Context, id uuid.UUID) error
	// SetDefaultCalculation flags id as the system-wide default, clearing any
	// previous default in the same write.
	SetDefaultCalculation(ctx context.Context, id uuid.UUID) error
	UnsetDefaultCalculation(ctx context.Context, id uuid.UUID) error

	ListGroups(ctx context.Context, calculationID uuid.UUID) ([]models.ProfitGroup, error)
	CreateGroup(ctx context.Context, group *models.ProfitGroup) error
	RenameGroup(ctx context.Context, calculationID, groupID uuid.UUID, name string) error
	// DeleteGroup removes the group and un-assigns (never deletes) every
	// multiplier row that referenced it.
	DeleteGroup(ctx context.Context, calculationID, groupID uuid.UUID) error

	ListMultipliers(ctx context.Context, calculationID uuid.UUID) ([]models.AccountMultiplier, error)
	UpsertMultiplier(ctx context.Context, multiplier *models.AccountMultiplier) error

	ListRates(ctx context.Context, calculationID uuid.UUID) ([]models.CalculationRate, error)
	UpsertRate(ctx context.Context, rate *models.CalculationRate) error
}
