package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fxops/backoffice/internal/domain"
	"github.com/fxops/backoffice/internal/models"
)

func (r *Repository) ListCalculations(ctx context.Context) ([]models.ProfitCalculation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, target_currency, initial_investment::text, is_default, created_at FROM profit_calculations ORDER BY created_at`)
	if err != nil {
		return nil, mapStoreError(err, "list calculations")
	}
	defer rows.Close()

	var calcs []models.ProfitCalculation
	for rows.Next() {
		calc, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		calcs = append(calcs, *calc)
	}
	return calcs, mapStoreError(rows.Err(), "list calculations")
}

func (r *Repository) GetCalculation(ctx context.Context, id uuid.UUID) (*models.ProfitCalculation, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, name, target_currency, initial_investment::text, is_default, created_at FROM profit_calculations WHERE id = $1`, id)
	calc, err := scanCalculation(row)
	if err != nil {
		return nil, mapStoreError(err, "get calculation")
	}
	return calc, nil
}

func (r *Repository) GetDefaultCalculation(ctx context.Context) (*models.ProfitCalculation, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, name, target_currency, initial_investment::text, is_default, created_at FROM profit_calculations WHERE is_default LIMIT 1`)
	calc, err := scanCalculation(row)
	if err != nil {
		return nil, mapStoreError(err, "get default calculation")
	}
	return calc, nil
}

func (r *Repository) CreateCalculation(ctx context.Context, calc *models.ProfitCalculation) error {
	query := `INSERT INTO profit_calculations (id, name, target_currency, initial_investment, is_default, created_at)
		VALUES ($1, $2, $3, $4, false, NOW()) RETURNING created_at`
	err := r.db.QueryRow(ctx, query, calc.ID, calc.Name, calc.TargetCurrency, calc.InitialInvestment.String()).Scan(&calc.CreatedAt)
	if err != nil {
		return mapStoreError(err, "create calculation")
	}
	return nil
}

func (r *Repository) RenameCalculation(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := r.db.Exec(ctx, `UPDATE profit_calculations SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return mapStoreError(err, "rename calculation")
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("rename calculation: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *Repository) DeleteCalculation(ctx context.Context, id uuid.UUID) error {
	return runInTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, query := range []string{
			`DELETE FROM account_multipliers WHERE calculation_id = $1`,
			`DELETE FROM calculation_rates WHERE calculation_id = $1`,
			`DELETE FROM profit_groups WHERE calculation_id = $1`,
		} {
			if _, err := tx.Exec(ctx, query, id); err != nil {
				return mapStoreError(err, "delete calculation children")
			}
		}
		tag, err := tx.Exec(ctx, `DELETE FROM profit_calculations WHERE id = $1`, id)
		if err != nil {
			return mapStoreError(err, "delete calculation")
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("delete calculation: %w", domain.ErrNotFound)
		}
		return nil
	})
}

// SetDefaultCalculation clears any previous default in the same transaction,
// keeping the at-most-one-default invariant.
func (r *Repository) SetDefaultCalculation(ctx context.Context, id uuid.UUID) error {
	return runInTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE profit_calculations SET is_default = false WHERE is_default`); err != nil {
			return mapStoreError(err, "clear default calculation")
		}
		tag, err := tx.Exec(ctx, `UPDATE profit_calculations SET is_default = true WHERE id = $1`, id)
		if err != nil {
			return mapStoreError(err, "set default calculation")
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("set default calculation: %w", domain.ErrNotFound)
		}
		return nil
	})
}

func (r *Repository) UnsetDefaultCalculation(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE profit_calculations SET is_default = false WHERE id = $1`, id)
	if err != nil {
		return mapStoreError(err, "unset default calculation")
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("unset default calculation: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *Repository) ListGroups(ctx context.Context, calculationID uuid.UUID) ([]models.ProfitGroup, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, calculation_id, name, created_at FROM profit_groups WHERE calculation_id = $1 ORDER BY created_at`, calculationID)
	if err != nil {
		return nil, mapStoreError(err, "list groups")
	}
	defer rows.Close()

	var groups []models.ProfitGroup
	for rows.Next() {
		var g models.ProfitGroup
		if err := rows.Scan(&g.ID, &g.CalculationID, &g.Name, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, mapStoreError(rows.Err(), "list groups")
}

func (r *Repository) CreateGroup(ctx context.Context, group *models.ProfitGroup) error {
	query := `INSERT INTO profit_groups (id, calculation_id, name, created_at) VALUES ($1, $2, $3, NOW()) RETURNING created_at`
	if err := r.db.QueryRow(ctx, query, group.ID, group.CalculationID, group.Name).Scan(&group.CreatedAt); err != nil {
		return mapStoreError(err, "create group")
	}
	return nil
}

func (r *Repository) RenameGroup(ctx context.Context, calculationID, groupID uuid.UUID, name string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE profit_groups SET name = $1 WHERE id = $2 AND calculation_id = $3`, name, groupID, calculationID)
	if err != nil {
		return mapStoreError(err, "rename group")
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("rename group: %w", domain.ErrNotFound)
	}
	return nil
}

// DeleteGroup un-assigns every multiplier row that referenced the group, then
// removes the group itself.
func (r *Repository) DeleteGroup(ctx context.Context, calculationID, groupID uuid.UUID) error {
	return runInTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE account_multipliers SET group_id = NULL WHERE calculation_id = $1 AND group_id = $2`,
			calculationID, groupID); err != nil {
			return mapStoreError(err, "unassign group members")
		}
		tag, err := tx.Exec(ctx,
			`DELETE FROM profit_groups WHERE id = $1 AND calculation_id = $2`, groupID, calculationID)
		if err != nil {
			return mapStoreError(err, "delete group")
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("delete group: %w", domain.ErrNotFound)
		}
		return nil
	})
}

func (r *Repository) ListMultipliers(ctx context.Context, calculationID uuid.UUID) ([]models.AccountMultiplier, error) {
	rows, err := r.db.Query(ctx,
		`SELECT calculation_id, account_id, multiplier::text, group_id FROM account_multipliers WHERE calculation_id = $1`, calculationID)
	if err != nil {
		return nil, mapStoreError(err, "list multipliers")
	}
	defer rows.Close()

	var multipliers []models.AccountMultiplier
	for rows.Next() {
		var m models.AccountMultiplier
		var multiplier string
		if err := rows.Scan(&m.CalculationID, &m.AccountID, &multiplier, &m.GroupID); err != nil {
			return nil, fmt.Errorf("scan multiplier: %w", err)
		}
		if m.Multiplier, err = decimal.NewFromString(multiplier); err != nil {
			return nil, fmt.Errorf("parse multiplier: %w", err)
		}
		multipliers = append(multipliers, m)
	}
	return multipliers, mapStoreError(rows.Err(), "list multipliers")
}

func (r *Repository) UpsertMultiplier(ctx context.Context, m *models.AccountMultiplier) error {
	query := `INSERT INTO account_multipliers (calculation_id, account_id, multiplier, group_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (calculation_id, account_id) DO UPDATE SET multiplier = EXCLUDED.multiplier, group_id = EXCLUDED.group_id`
	if _, err := r.db.Exec(ctx, query, m.CalculationID, m.AccountID, m.Multiplier.String(), m.GroupID); err != nil {
		return mapStoreError(err, "upsert multiplier")
	}
	return nil
}

func (r *Repository) ListRates(ctx context.Context, calculationID uuid.UUID) ([]models.CalculationRate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT calculation_id, from_currency, to_currency, rate::text FROM calculation_rates WHERE calculation_id = $1`, calculationID)
	if err != nil {
		return nil, mapStoreError(err, "list rates")
	}
	defer rows.Close()

	var rates []models.CalculationRate
	for rows.Next() {
		var cr models.CalculationRate
		var rate string
		if err := rows.Scan(&cr.CalculationID, &cr.FromCurrency, &cr.ToCurrency, &rate); err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		if cr.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("parse rate: %w", err)
		}
		rates = append(rates, cr)
	}
	return rates, mapStoreError(rows.Err(), "list rates")
}

func (r *Repository) UpsertRate(ctx context.Context, cr *models.CalculationRate) error {
	query := `INSERT INTO calculation_rates (calculation_id, from_currency, to_currency, rate)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (calculation_id, from_currency, to_currency) DO UPDATE SET rate = EXCLUDED.rate`
	if _, err := r.db.Exec(ctx, query, cr.CalculationID, cr.FromCurrency, cr.ToCurrency, cr.Rate.String()); err != nil {
		return mapStoreError(err, "upsert rate")
	}
	return nil
}

type calcRow interface {
	Scan(dest ...any) error
}

func scanCalculation(row calcRow) (*models.ProfitCalculation, error) {
	var calc models.ProfitCalculation
	var investment string
	err := row.Scan(&calc.ID, &calc.Name, &calc.TargetCurrency, &investment, &calc.IsDefault, &calc.CreatedAt)
	if err != nil {
		return nil, err
	}
	if calc.InitialInvestment, err = decimal.NewFromString(investment); err != nil {
		return nil, fmt.Errorf("parse initial investment: %w", err)
	}
	return &calc, nil
}
