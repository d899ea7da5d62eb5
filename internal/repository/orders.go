package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fxops/backoffice/internal/domain"
	"github.com/fxops/backoffice/internal/models"
	"github.com/fxops/backoffice/internal/service"
)

const orderColumns = `id, customer_id, from_currency, to_currency, amount_buy::text, amount_sell::text, rate::text,
	status, handler_id, payment_method, profit_amount::text, profit_currency, created_at, updated_at`

func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `INSERT INTO orders (id, customer_id, from_currency, to_currency, amount_buy, amount_sell, rate, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		order.ID, order.CustomerID, order.FromCurrency, order.ToCurrency,
		order.AmountBuy.String(), order.AmountSell.String(), order.Rate.String(), order.Status,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return mapStoreError(err, "create order")
	}
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		return nil, mapStoreError(err, "get order")
	}
	return order, nil
}

func (r *Repository) ListOrders(ctx context.Context, filter service.OrderFilter) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ($1 = '' OR status = $1) AND ($2::uuid IS NULL OR customer_id = $2) ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, filter.Status, filter.CustomerID)
	if err != nil {
		return nil, mapStoreError(err, "list orders")
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, mapStoreError(rows.Err(), "list orders")
}

// GetOrderDetails assembles the authoritative order read model including the
// four derived ledger totals.
func (r *Repository) GetOrderDetails(ctx context.Context, id uuid.UUID) (*models.OrderDetails, error) {
	order, err := r.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	receipts, err := r.listReceipts(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := r.listPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	beneficiaries, err := r.listOrderBeneficiaries(ctx, id)
	if err != nil {
		return nil, err
	}

	totals := service.ComputeSettlementTotals(*order, receipts, payments)
	return &models.OrderDetails{
		Order:              *order,
		Receipts:           receipts,
		Payments:           payments,
		Beneficiaries:      beneficiaries,
		TotalReceiptAmount: totals.TotalReceiptAmount,
		TotalPaymentAmount: totals.TotalPaymentAmount,
		ReceiptBalance:     totals.ReceiptBalance,
		PaymentBalance:     totals.PaymentBalance,
	}, nil
}

func (r *Repository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return mapStoreError(err, "update order status")
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("update order status: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *Repository) SetOrderProcessing(ctx context.Context, id uuid.UUID, handlerID uuid.UUID, method models.PaymentMethod) error {
	methodJSON, err := json.Marshal(method)
	if err != nil {
		return fmt.Errorf("encode payment method: %w", err)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $1, handler_id = $2, payment_method = $3, updated_at = NOW() WHERE id = $4 AND status = $5`,
		domain.OrderStatusWaitingForReceipt, handlerID, methodJSON, id, domain.OrderStatusPending)
	if err != nil {
		return mapStoreError(err, "set order processing")
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("set order processing: %w", domain.ErrNotFound)
	}
	return nil
}

// AddReceipt inserts the receipt and, in the same transaction, advances the
// order to waiting_for_payment once cumulative receipts cover amount_buy.
// The store owns this sufficiency rule; clients re-read the status.
func (r *Repository) AddReceipt(ctx context.Context, receipt *models.Receipt) error {
	return runInTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO receipts (id, order_id, amount, proof_locator, created_at) VALUES ($1, $2, $3, $4, NOW()) RETURNING created_at`,
			receipt.ID, receipt.OrderID, receipt.Amount.String(), receipt.ProofLocator,
		).Scan(&receipt.CreatedAt)
		if err != nil {
			return mapStoreError(err, "insert receipt")
		}

		_, err = tx.Exec(ctx, `UPDATE orders SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status = $3
			AND amount_buy <= (SELECT COALESCE(SUM(amount), 0) FROM receipts WHERE order_id = $2)`,
			domain.OrderStatusWaitingForPayment, receipt.OrderID, domain.OrderStatusWaitingForReceipt)
		if err != nil {
			return mapStoreError(err, "advance order after receipt")
		}
		return nil
	})
}

// AddPayment inserts the payment and advances the order to completed once
// cumulative payments cover amount_sell.
func (r *Repository) AddPayment(ctx context.Context, payment *models.Payment) error {
	return runInTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO payments (id, order_id, amount, proof_locator, created_at) VALUES ($1, $2, $3, $4, NOW()) RETURNING created_at`,
			payment.ID, payment.OrderID, payment.Amount.String(), payment.ProofLocator,
		).Scan(&payment.CreatedAt)
		if err != nil {
			return mapStoreError(err, "insert payment")
		}

		_, err = tx.Exec(ctx, `UPDATE orders SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status = $3
			AND amount_sell <= (SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $2)`,
			domain.OrderStatusCompleted, payment.OrderID, domain.OrderStatusWaitingForPayment)
		if err != nil {
			return mapStoreError(err, "advance order after payment")
		}
		return nil
	})
}

func (r *Repository) AddOrderBeneficiary(ctx context.Context, beneficiary *models.Beneficiary) error {
	return r.insertBeneficiary(ctx, beneficiary)
}

func (r *Repository) SetOrderProfit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, currency string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET profit_amount = $1, profit_currency = $2, updated_at = NOW() WHERE id = $3`,
		amount.String(), currency, id)
	if err != nil {
		return mapStoreError(err, "set order profit")
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("set order profit: %w", domain.ErrNotFound)
	}
	return nil
}

// DeleteOrder removes the order and its owned receipts, payments and
// beneficiaries in one transaction.
func (r *Repository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return runInTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, query := range []string{
			`DELETE FROM receipts WHERE order_id = $1`,
			`DELETE FROM payments WHERE order_id = $1`,
			`DELETE FROM beneficiaries WHERE order_id = $1`,
		} {
			if _, err := tx.Exec(ctx, query, id); err != nil {
				return mapStoreError(err, "delete order children")
			}
		}
		tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
		if err != nil {
			return mapStoreError(err, "delete order")
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("delete order: %w", domain.ErrNotFound)
		}
		return nil
	})
}

func (r *Repository) listReceipts(ctx context.Context, orderID uuid.UUID) ([]models.Receipt, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, order_id, amount::text, proof_locator, created_at FROM receipts WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, mapStoreError(err, "list receipts")
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var rec models.Receipt
		var amount string
		if err := rows.Scan(&rec.ID, &rec.OrderID, &amount, &rec.ProofLocator, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse receipt amount: %w", err)
		}
		receipts = append(receipts, rec)
	}
	return receipts, mapStoreError(rows.Err(), "list receipts")
}

func (r *Repository) listPayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, order_id, amount::text, proof_locator, created_at FROM payments WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, mapStoreError(err, "list payments")
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		var amount string
		if err := rows.Scan(&p.ID, &p.OrderID, &amount, &p.ProofLocator, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse payment amount: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, mapStoreError(rows.Err(), "list payments")
}

type orderRow interface {
	Scan(dest ...any) error
}

func scanOrder(row orderRow) (*models.Order, error) {
	var (
		order                       models.Order
		amountBuy, amountSell, rate string
		methodJSON                  []byte
		profitAmount                *string
		profitCurrency              *string
	)
	err := row.Scan(&order.ID, &order.CustomerID, &order.FromCurrency, &order.ToCurrency,
		&amountBuy, &amountSell, &rate, &order.Status, &order.HandlerID, &methodJSON,
		&profitAmount, &profitCurrency, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if order.AmountBuy, err = decimal.NewFromString(amountBuy); err != nil {
		return nil, fmt.Errorf("parse amount_buy: %w", err)
	}
	if order.AmountSell, err = decimal.NewFromString(amountSell); err != nil {
		return nil, fmt.Errorf("parse amount_sell: %w", err)
	}
	if order.Rate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("parse rate: %w", err)
	}
	if profitAmount != nil {
		parsed, err := decimal.NewFromString(*profitAmount)
		if err != nil {
			return nil, fmt.Errorf("parse profit_amount: %w", err)
		}
		order.ProfitAmount = &parsed
	}
	if profitCurrency != nil {
		order.ProfitCurrency = *profitCurrency
	}
	if len(methodJSON) > 0 {
		var method models.PaymentMethod
		if err := json.Unmarshal(methodJSON, &method); err != nil {
			return nil, fmt.Errorf("decode payment method: %w", err)
		}
		order.PaymentMethod = &method
	}
	return &order, nil
}
