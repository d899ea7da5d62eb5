package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fxops/backoffice/internal/domain"
	"github.com/fxops/backoffice/internal/models"
)

// Repository is the pgx-backed store behind the workflow and profit engines.
// It implements the service store ports; numeric columns travel as text and
// are parsed into shopspring decimals.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, username, email, role, created_at) VALUES ($1, $2, $3, $4, NOW()) RETURNING created_at`
	if err := r.db.QueryRow(ctx, query, user.ID, user.Username, user.Email, user.Role).Scan(&user.CreatedAt); err != nil {
		return mapStoreError(err, "create user")
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, username, email, role, created_at FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, mapStoreError(err, "get user")
	}
	return user, nil
}

func (r *Repository) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `INSERT INTO customers (id, name, email, created_at) VALUES ($1, $2, $3, NOW()) RETURNING created_at`
	if err := r.db.QueryRow(ctx, query, customer.ID, customer.Name, customer.Email).Scan(&customer.CreatedAt); err != nil {
		return mapStoreError(err, "create customer")
	}
	return nil
}

func (r *Repository) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer := &models.Customer{}
	query := `SELECT id, name, email, created_at FROM customers WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&customer.ID, &customer.Name, &customer.Email, &customer.CreatedAt)
	if err != nil {
		return nil, mapStoreError(err, "get customer")
	}
	return customer, nil
}

func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `INSERT INTO accounts (id, name, currency_code, balance, created_at) VALUES ($1, $2, $3, $4, NOW()) RETURNING created_at`
	err := r.db.QueryRow(ctx, query, account.ID, account.Name, account.CurrencyCode, account.Balance.String()).Scan(&account.CreatedAt)
	if err != nil {
		return mapStoreError(err, "create account")
	}
	return nil
}

func (r *Repository) ListAccounts(ctx context.Context) ([]models.Account, error) {
	query := `SELECT id, name, currency_code, balance::text, created_at FROM accounts ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, mapStoreError(err, "list accounts")
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		var balance string
		if err := rows.Scan(&a.ID, &a.Name, &a.CurrencyCode, &balance, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if a.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("parse account balance: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, mapStoreError(rows.Err(), "list accounts")
}

// mapStoreError classifies a database error. pgx.ErrNoRows is a missing row;
// a PgError means postgres processed the statement and rejected it, which
// keeps its own mapping downstream; anything else is the store being
// unreachable and carries ErrUpstream.
func mapStoreError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", operation, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return fmt.Errorf("%s: %w: %w", operation, domain.ErrUpstream, err)
}
