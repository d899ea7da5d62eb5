package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fxops/backoffice/internal/domain"
	"github.com/fxops/backoffice/internal/models"
)

const beneficiaryColumns = `id, customer_id, order_id, payment_type, network, addresses,
	bank_name, account_title, account_number, iban, swift_code, bank_address, created_at`

func (r *Repository) insertBeneficiary(ctx context.Context, b *models.Beneficiary) error {
	query := `INSERT INTO beneficiaries (id, customer_id, order_id, payment_type, network, addresses,
		bank_name, account_title, account_number, iban, swift_code, bank_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW()) RETURNING created_at`
	err := r.db.QueryRow(ctx, query,
		b.ID, b.CustomerID, b.OrderID, b.PaymentType, b.Network, b.Addresses,
		b.BankName, b.AccountTitle, b.AccountNumber, b.IBAN, b.SwiftCode, b.BankAddress,
	).Scan(&b.CreatedAt)
	if err != nil {
		return mapStoreError(err, "insert beneficiary")
	}
	return nil
}

func (r *Repository) ListCustomerBeneficiaries(ctx context.Context, customerID uuid.UUID) ([]models.Beneficiary, error) {
	return r.listBeneficiaries(ctx, `customer_id = $1`, customerID)
}

func (r *Repository) listOrderBeneficiaries(ctx context.Context, orderID uuid.UUID) ([]models.Beneficiary, error) {
	return r.listBeneficiaries(ctx, `order_id = $1`, orderID)
}

func (r *Repository) listBeneficiaries(ctx context.Context, where string, arg any) ([]models.Beneficiary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+beneficiaryColumns+` FROM beneficiaries WHERE `+where+` ORDER BY created_at`, arg)
	if err != nil {
		return nil, mapStoreError(err, "list beneficiaries")
	}
	defer rows.Close()

	var beneficiaries []models.Beneficiary
	for rows.Next() {
		var b models.Beneficiary
		if err := rows.Scan(&b.ID, &b.CustomerID, &b.OrderID, &b.PaymentType, &b.Network, &b.Addresses,
			&b.BankName, &b.AccountTitle, &b.AccountNumber, &b.IBAN, &b.SwiftCode, &b.BankAddress, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan beneficiary: %w", err)
		}
		beneficiaries = append(beneficiaries, b)
	}
	return beneficiaries, mapStoreError(rows.Err(), "list beneficiaries")
}

func (r *Repository) AddCustomerBeneficiary(ctx context.Context, beneficiary *models.Beneficiary) error {
	return r.insertBeneficiary(ctx, beneficiary)
}

func (r *Repository) UpdateCustomerBeneficiary(ctx context.Context, b *models.Beneficiary) error {
	query := `UPDATE beneficiaries SET payment_type = $1, network = $2, addresses = $3, bank_name = $4,
		account_title = $5, account_number = $6, iban = $7, swift_code = $8, bank_address = $9
		WHERE id = $10 AND customer_id = $11`
	tag, err := r.db.Exec(ctx, query,
		b.PaymentType, b.Network, b.Addresses, b.BankName,
		b.AccountTitle, b.AccountNumber, b.IBAN, b.SwiftCode, b.BankAddress,
		b.ID, b.CustomerID)
	if err != nil {
		return mapStoreError(err, "update beneficiary")
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("update beneficiary: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *Repository) DeleteCustomerBeneficiary(ctx context.Context, customerID, beneficiaryID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM beneficiaries WHERE id = $1 AND customer_id = $2`, beneficiaryID, customerID)
	if err != nil {
		return mapStoreError(err, "delete beneficiary")
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("delete beneficiary: %w", domain.ErrNotFound)
	}
	return nil
}
