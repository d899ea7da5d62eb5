package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is a back-office operator account.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Customer is a brokerage client on whose behalf orders are settled.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is a brokerage-held account with a live balance.
type Account struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	CurrencyCode string          `json:"currency_code"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PaymentMethod describes the counter-party destination recorded when an
// order is processed: a crypto network plus addresses, or bank details.
// No individual fiat field is required.
type PaymentMethod struct {
	Type          string   `json:"type"` // CRYPTO | FIAT
	Network       string   `json:"network,omitempty"`
	Addresses     []string `json:"addresses,omitempty"`
	BankName      string   `json:"bank_name,omitempty"`
	AccountTitle  string   `json:"account_title,omitempty"`
	AccountNumber string   `json:"account_number,omitempty"`
	IBAN          string   `json:"iban,omitempty"`
	SwiftCode     string   `json:"swift_code,omitempty"`
	BankAddress   string   `json:"bank_address,omitempty"`
}

// Order is a contract to exchange AmountBuy of FromCurrency for AmountSell
// of ToCurrency at Rate. AmountSell ≈ AmountBuy × Rate is a UI convenience
// only; the two fields may be edited independently.
type Order struct {
	ID             uuid.UUID        `json:"id"`
	CustomerID     uuid.UUID        `json:"customer_id"`
	FromCurrency   string           `json:"from_currency"`
	ToCurrency     string           `json:"to_currency"`
	AmountBuy      decimal.Decimal  `json:"amount_buy"`
	AmountSell     decimal.Decimal  `json:"amount_sell"`
	Rate           decimal.Decimal  `json:"rate"`
	Status         string           `json:"status"`
	HandlerID      *uuid.UUID       `json:"handler_id,omitempty"`
	PaymentMethod  *PaymentMethod   `json:"payment_method,omitempty"`
	ProfitAmount   *decimal.Decimal `json:"profit_amount,omitempty"`
	ProfitCurrency string           `json:"profit_currency,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Receipt is a proof-of-funds record for money collected from the
// counter-party. Immutable once created; owned exclusively by its order.
type Receipt struct {
	ID           uuid.UUID       `json:"id"`
	OrderID      uuid.UUID       `json:"order_id"`
	Amount       decimal.Decimal `json:"amount"`
	ProofLocator string          `json:"proof_locator"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Payment is a proof-of-funds record for money paid out to a beneficiary.
// Immutable once created; owned exclusively by its order.
type Payment struct {
	ID           uuid.UUID       `json:"id"`
	OrderID      uuid.UUID       `json:"order_id"`
	Amount       decimal.Decimal `json:"amount"`
	ProofLocator string          `json:"proof_locator"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Beneficiary is a payment destination. Exactly one of CustomerID (reusable,
// customer-owned) or OrderID (one-off, captured at settlement) is set.
type Beneficiary struct {
	ID            uuid.UUID  `json:"id"`
	CustomerID    *uuid.UUID `json:"customer_id,omitempty"`
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	PaymentType   string     `json:"payment_type"` // CRYPTO | FIAT
	Network       string     `json:"network,omitempty"`
	Addresses     []string   `json:"addresses,omitempty"`
	BankName      string     `json:"bank_name,omitempty"`
	AccountTitle  string     `json:"account_title,omitempty"`
	AccountNumber string     `json:"account_number,omitempty"`
	IBAN          string     `json:"iban,omitempty"`
	SwiftCode     string     `json:"swift_code,omitempty"`
	BankAddress   string     `json:"bank_address,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// OrderDetails is the authoritative read model for one order. The store owns
// the four derived totals; the client recomputes them with the same formula
// but never overrides what the store reports.
type OrderDetails struct {
	Order              Order           `json:"order"`
	Receipts           []Receipt       `json:"receipts"`
	Payments           []Payment       `json:"payments"`
	Beneficiaries      []Beneficiary   `json:"beneficiaries"`
	TotalReceiptAmount decimal.Decimal `json:"total_receipt_amount"`
	TotalPaymentAmount decimal.Decimal `json:"total_payment_amount"`
	ReceiptBalance     decimal.Decimal `json:"receipt_balance"`
	PaymentBalance     decimal.Decimal `json:"payment_balance"`
}

// ProfitCalculation is a named aggregation configuration. At most one
// calculation is flagged default system-wide.
type ProfitCalculation struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	TargetCurrency    string          `json:"target_currency"`
	InitialInvestment decimal.Decimal `json:"initial_investment"`
	IsDefault         bool            `json:"is_default"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ProfitGroup is a first-class named group within a calculation. Identity is
// the generated id; the display name can be renamed freely without touching
// membership.
type ProfitGroup struct {
	ID            uuid.UUID `json:"id"`
	CalculationID uuid.UUID `json:"calculation_id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
}

// AccountMultiplier scales one account's balance within one calculation and
// optionally assigns the account to a group. Absent rows mean multiplier 1.0
// and no group.
type AccountMultiplier struct {
	CalculationID uuid.UUID       `json:"calculation_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Multiplier    decimal.Decimal `json:"multiplier"`
	GroupID       *uuid.UUID      `json:"group_id,omitempty"`
}

// CalculationRate converts FromCurrency into ToCurrency within one
// calculation. Absent rows for a same-currency pair mean rate 1.0.
type CalculationRate struct {
	CalculationID uuid.UUID       `json:"calculation_id"`
	FromCurrency  string          `json:"from_currency"`
	ToCurrency    string          `json:"to_currency"`
	Rate          decimal.Decimal `json:"rate"`
}
