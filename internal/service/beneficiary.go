package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fxops/backoffice/internal/domain"
	"github.com/fxops/backoffice/internal/models"
)

// BeneficiaryService manages the customer-owned reusable beneficiary
// directory. Order-owned beneficiaries are attached through the workflow
// engine instead.
type BeneficiaryService struct {
	store BeneficiaryStore
}

// NewBeneficiaryService wires the directory service.
func NewBeneficiaryService(store BeneficiaryStore) *BeneficiaryService {
	return &BeneficiaryService{store: store}
}

// List returns a customer's beneficiaries.
func (s *BeneficiaryService) List(ctx context.Context, customerID uuid.UUID) ([]models.Beneficiary, error) {
	beneficiaries, err := s.store.ListCustomerBeneficiaries(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list customer beneficiaries: %w", err)
	}
	return beneficiaries, nil
}

// Add stores a new reusable beneficiary for the customer.
func (s *BeneficiaryService) Add(ctx context.Context, customerID uuid.UUID, in BeneficiaryInput) (*models.Beneficiary, error) {
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer is required", domain.ErrPreconditionFailed)
	}
	if err := validateBeneficiaryInput(in); err != nil {
		return nil, err
	}

	beneficiary := beneficiaryFromInput(in)
	beneficiary.CustomerID = &customerID
	if err := s.store.AddCustomerBeneficiary(ctx, beneficiary); err != nil {
		return nil, fmt.Errorf("add customer beneficiary: %w", err)
	}
	return beneficiary, nil
}

// Update replaces the fields of an existing customer beneficiary.
func (s *BeneficiaryService) Update(ctx context.Context, customerID, beneficiaryID uuid.UUID, in BeneficiaryInput) (*models.Beneficiary, error) {
	if err := validateBeneficiaryInput(in); err != nil {
		return nil, err
	}

	beneficiary := beneficiaryFromInput(in)
	beneficiary.ID = beneficiaryID
	beneficiary.CustomerID = &customerID
	if err := s.store.UpdateCustomerBeneficiary(ctx, beneficiary); err != nil {
		return nil, fmt.Errorf("update customer beneficiary: %w", err)
	}
	return beneficiary, nil
}

// Delete removes a customer beneficiary. Orders that copied it keep their
// own order-owned records.
func (s *BeneficiaryService) Delete(ctx context.Context, customerID, beneficiaryID uuid.UUID) error {
	if err := s.store.DeleteCustomerBeneficiary(ctx, customerID, beneficiaryID); err != nil {
		return fmt.Errorf("delete customer beneficiary: %w", err)
	}
	return nil
}

// AccountService exposes live account balances to the console and the
// profit engine.
type AccountService struct {
	store AccountStore
}

// NewAccountService wires the account read service.
func NewAccountService(store AccountStore) *AccountService {
	return &AccountService{store: store}
}

// List returns all accounts with live balances.
func (s *AccountService) List(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}
