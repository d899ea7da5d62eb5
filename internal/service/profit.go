package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fxops/backoffice/internal/domain"
	"github.com/fxops/backoffice/internal/models"
	"github.com/fxops/backoffice/internal/observability"
)

// ProfitService rolls live account balances up into a single profit figure
// per calculation: balance × multiplier, partitioned into groups, summed per
// currency, converted to the target currency, minus the initial investment.
// Summarize is a pure read; it is cheap enough to run on every input change.
type ProfitService struct {
	store    ProfitStore
	accounts AccountStore
}

// NewProfitService wires the aggregation engine.
func NewProfitService(store ProfitStore, accounts AccountStore) *ProfitService {
	return &ProfitService{store: store, accounts: accounts}
}

// AccountContribution is one account's line in a summary.
type AccountContribution struct {
	AccountID  uuid.UUID       `json:"account_id"`
	Currency   string          `json:"currency"`
	Balance    decimal.Decimal `json:"balance"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Calculated decimal.Decimal `json:"calculated"`
	GroupID    *uuid.UUID      `json:"group_id,omitempty"`
}

// GroupSummary is one group's per-currency sums and converted total. The
// ungrouped bucket has a nil GroupID.
type GroupSummary struct {
	GroupID   *uuid.UUID            `json:"group_id,omitempty"`
	Name      string                `json:"name"`
	Totals    domain.CurrencyTotals `json:"totals"`
	Converted decimal.Decimal       `json:"converted"`
}

// ProfitSummary is the full aggregation result for one calculation. Totals
// holds the calculated amounts per currency across all groups, sorted by
// currency code.
type ProfitSummary struct {
	CalculationID     uuid.UUID             `json:"calculation_id"`
	Name              string                `json:"name"`
	TargetCurrency    string                `json:"target_currency"`
	Accounts          []AccountContribution `json:"accounts"`
	Groups            []GroupSummary        `json:"groups"`
	Totals            []domain.Money        `json:"totals"`
	ConvertedTotal    decimal.Decimal       `json:"converted_total"`
	InitialInvestment decimal.Decimal       `json:"initial_investment"`
	Profit            decimal.Decimal       `json:"profit"`
}

// Summarize computes the aggregation for one calculation. Missing multiplier
// rows default to 1.0, missing conversion rates contribute nothing, and
// empty groups still appear with a zero sum.
func (s *ProfitService) Summarize(ctx context.Context, calculationID uuid.UUID) (*ProfitSummary, error) {
	start := time.Now()

	calc, err := s.store.GetCalculation(ctx, calculationID)
	if err != nil {
		return nil, fmt.Errorf("get calculation: %w", err)
	}
	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	multipliers, err := s.store.ListMultipliers(ctx, calculationID)
	if err != nil {
		return nil, fmt.Errorf("list multipliers: %w", err)
	}
	rates, err := s.store.ListRates(ctx, calculationID)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	groups, err := s.store.ListGroups(ctx, calculationID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	multiplierByAccount := make(map[uuid.UUID]models.AccountMultiplier, len(multipliers))
	for _, m := range multipliers {
		multiplierByAccount[m.AccountID] = m
	}
	rateToTarget := make(map[string]decimal.Decimal, len(rates))
	for _, r := range rates {
		if r.ToCurrency == calc.TargetCurrency {
			rateToTarget[r.FromCurrency] = r.Rate
		}
	}
	lookupRate := func(from string) (decimal.Decimal, bool) {
		r, ok := rateToTarget[from]
		return r, ok
	}

	one := decimal.NewFromInt(1)
	totalsByGroup := make(map[uuid.UUID]domain.CurrencyTotals, len(groups))
	for _, g := range groups {
		totalsByGroup[g.ID] = domain.CurrencyTotals{}
	}
	ungrouped := domain.CurrencyTotals{}
	overall := make(map[string]domain.Money)

	contributions := make([]AccountContribution, 0, len(accounts))
	for _, account := range accounts {
		multiplier := one
		var groupID *uuid.UUID
		if row, ok := multiplierByAccount[account.ID]; ok {
			multiplier = row.Multiplier
			groupID = row.GroupID
		}
		calculated := account.Balance.Mul(multiplier)

		if groupID != nil {
			if totals, ok := totalsByGroup[*groupID]; ok {
				totals.Add(account.CurrencyCode, calculated)
			} else {
				// Stale assignment to a removed group counts as ungrouped.
				groupID = nil
				ungrouped.Add(account.CurrencyCode, calculated)
			}
		} else {
			ungrouped.Add(account.CurrencyCode, calculated)
		}

		line := domain.NewMoney(calculated, account.CurrencyCode)
		if existing, ok := overall[line.Currency]; ok {
			merged, err := existing.Add(line)
			if err != nil {
				return nil, fmt.Errorf("merge currency totals: %w", err)
			}
			overall[line.Currency] = merged
		} else {
			overall[line.Currency] = line
		}

		contributions = append(contributions, AccountContribution{
			AccountID:  account.ID,
			Currency:   account.CurrencyCode,
			Balance:    account.Balance,
			Multiplier: multiplier,
			Calculated: calculated,
			GroupID:    groupID,
		})
	}

	summaries := make([]GroupSummary, 0, len(groups)+1)
	convertedTotal := decimal.Zero
	for _, g := range groups {
		totals := totalsByGroup[g.ID]
		converted := totals.ConvertTo(calc.TargetCurrency, lookupRate)
		convertedTotal = convertedTotal.Add(converted)
		groupID := g.ID
		summaries = append(summaries, GroupSummary{
			GroupID:   &groupID,
			Name:      g.Name,
			Totals:    totals,
			Converted: converted,
		})
	}
	if len(ungrouped) > 0 {
		converted := ungrouped.ConvertTo(calc.TargetCurrency, lookupRate)
		convertedTotal = convertedTotal.Add(converted)
		summaries = append(summaries, GroupSummary{
			Name:      "Ungrouped",
			Totals:    ungrouped,
			Converted: converted,
		})
	}

	currencies := make([]string, 0, len(overall))
	for currency := range overall {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)
	totals := make([]domain.Money, 0, len(currencies))
	for _, currency := range currencies {
		totals = append(totals, overall[currency])
	}

	summary := &ProfitSummary{
		CalculationID:     calc.ID,
		Name:              calc.Name,
		TargetCurrency:    calc.TargetCurrency,
		Accounts:          contributions,
		Groups:            summaries,
		Totals:            totals,
		ConvertedTotal:    convertedTotal,
		InitialInvestment: calc.InitialInvestment,
		Profit:            convertedTotal.Sub(calc.InitialInvestment),
	}

	observability.ObserveProfitRecompute(time.Since(start))
	return summary, nil
}

// DefaultSummary computes the summary of the system-wide default calculation.
func (s *ProfitService) DefaultSummary(ctx context.Context) (*ProfitSummary, error) {
	calc, err := s.store.GetDefaultCalculation(ctx)
	if err != nil {
		return nil, fmt.Errorf("get default calculation: %w", err)
	}
	return s.Summarize(ctx, calc.ID)
}

// CreateCalculation stores a new named calculation.
func (s *ProfitService) CreateCalculation(ctx context.Context, name, targetCurrency string, initialInvestment decimal.Decimal) (*models.ProfitCalculation, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: calculation name is required", domain.ErrPreconditionFailed)
	}
	if strings.TrimSpace(targetCurrency) == "" {
		return nil, fmt.Errorf("%w: target currency is required", domain.ErrPreconditionFailed)
	}
	calc := &models.ProfitCalculation{
		ID:                uuid.New(),
		Name:              name,
		TargetCurrency:    strings.ToUpper(targetCurrency),
		InitialInvestment: initialInvestment,
	}
	if err := s.store.CreateCalculation(ctx, calc); err != nil {
		return nil, fmt.Errorf("create calculation: %w", err)
	}
	return calc, nil
}

// ListCalculations returns all calculations.
func (s *ProfitService) ListCalculations(ctx context.Context) ([]models.ProfitCalculation, error) {
	return s.store.ListCalculations(ctx)
}

// RenameCalculation updates a calculation's display name.
func (s *ProfitService) RenameCalculation(ctx context.Context, id uuid.UUID, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: calculation name is required", domain.ErrPreconditionFailed)
	}
	return s.store.RenameCalculation(ctx, id, name)
}

// DeleteCalculation removes a calculation and its owned rows.
func (s *ProfitService) DeleteCalculation(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteCalculation(ctx, id)
}

// SetDefault flags a calculation as the system-wide default.
func (s *ProfitService) SetDefault(ctx context.Context, id uuid.UUID) error {
	return s.store.SetDefaultCalculation(ctx, id)
}

// UnsetDefault clears a calculation's default flag.
func (s *ProfitService) UnsetDefault(ctx context.Context, id uuid.UUID) error {
	return s.store.UnsetDefaultCalculation(ctx, id)
}

// CreateGroup adds a named group. A name equal (case-sensitive) to an
// existing group in the same calculation is rejected with no mutation.
func (s *ProfitService) CreateGroup(ctx context.Context, calculationID uuid.UUID, name string) (*models.ProfitGroup, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: group name is required", domain.ErrPreconditionFailed)
	}
	groups, err := s.store.ListGroups(ctx, calculationID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	for _, g := range groups {
		if g.Name == name {
			return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateGroup, name)
		}
	}

	group := &models.ProfitGroup{
		ID:            uuid.New(),
		CalculationID: calculationID,
		Name:          name,
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

// RenameGroup changes a group's display name. Membership follows the group
// id, so every multiplier row that referenced the group keeps its assignment
// and multiplier value.
func (s *ProfitService) RenameGroup(ctx context.Context, calculationID, groupID uuid.UUID, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: group name is required", domain.ErrPreconditionFailed)
	}
	groups, err := s.store.ListGroups(ctx, calculationID)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	for _, g := range groups {
		if g.Name == name && g.ID != groupID {
			return fmt.Errorf("%w: %q", domain.ErrDuplicateGroup, name)
		}
	}
	if err := s.store.RenameGroup(ctx, calculationID, groupID, name); err != nil {
		return fmt.Errorf("rename group: %w", err)
	}
	return nil
}

// DeleteGroup removes a group. Accounts that referenced it are un-assigned,
// never deleted; they report a nil group afterwards.
func (s *ProfitService) DeleteGroup(ctx context.Context, calculationID, groupID uuid.UUID) error {
	if err := s.store.DeleteGroup(ctx, calculationID, groupID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// SetMultiplier upserts an account's multiplier and group assignment within
// a calculation. Negative multipliers are clamped to 0 at this boundary, not
// rejected.
func (s *ProfitService) SetMultiplier(ctx context.Context, calculationID, accountID uuid.UUID, multiplier decimal.Decimal, groupID *uuid.UUID) error {
	if multiplier.Sign() < 0 {
		multiplier = decimal.Zero
	}
	row := &models.AccountMultiplier{
		CalculationID: calculationID,
		AccountID:     accountID,
		Multiplier:    multiplier,
		GroupID:       groupID,
	}
	if err := s.store.UpsertMultiplier(ctx, row); err != nil {
		return fmt.Errorf("upsert multiplier: %w", err)
	}
	return nil
}

// SetRate upserts a conversion rate within a calculation.
func (s *ProfitService) SetRate(ctx context.Context, calculationID uuid.UUID, fromCurrency, toCurrency string, rate decimal.Decimal) error {
	if rate.Sign() < 0 {
		return fmt.Errorf("%w: exchange rate", domain.ErrInvalidAmount)
	}
	row := &models.CalculationRate{
		CalculationID: calculationID,
		FromCurrency:  strings.ToUpper(fromCurrency),
		ToCurrency:    strings.ToUpper(toCurrency),
		Rate:          rate,
	}
	if err := s.store.UpsertRate(ctx, row); err != nil {
		return fmt.Errorf("upsert rate: %w", err)
	}
	return nil
}
