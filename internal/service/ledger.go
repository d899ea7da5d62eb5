package service

import (
	"github.com/shopspring/decimal"

	"github.com/fxops/backoffice/internal/models"
)

// SettlementTotals holds the reconciliation figures for one order:
//
//	receiptBalance = amountBuy  − Σ receipts.amount
//	paymentBalance = amountSell − Σ payments.amount
//
// The store computes the same figures server-side; both sides must agree on
// this formula.
type SettlementTotals struct {
	TotalReceiptAmount decimal.Decimal `json:"total_receipt_amount"`
	TotalPaymentAmount decimal.Decimal `json:"total_payment_amount"`
	ReceiptBalance     decimal.Decimal `json:"receipt_balance"`
	PaymentBalance     decimal.Decimal `json:"payment_balance"`
}

// ComputeSettlementTotals derives the four ledger totals for an order.
func ComputeSettlementTotals(order models.Order, receipts []models.Receipt, payments []models.Payment) SettlementTotals {
	totalReceipts := decimal.Zero
	for _, r := range receipts {
		totalReceipts = totalReceipts.Add(r.Amount)
	}
	totalPayments := decimal.Zero
	for _, p := range payments {
		totalPayments = totalPayments.Add(p.Amount)
	}
	return SettlementTotals{
		TotalReceiptAmount: totalReceipts,
		TotalPaymentAmount: totalPayments,
		ReceiptBalance:     order.AmountBuy.Sub(totalReceipts),
		PaymentBalance:     order.AmountSell.Sub(totalPayments),
	}
}
