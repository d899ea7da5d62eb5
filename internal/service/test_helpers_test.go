package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fxops/backoffice/internal/domain"
	"github.com/fxops/backoffice/internal/gateway"
	"github.com/fxops/backoffice/internal/models"
)

// memStore is an in-memory stand-in for the pgx repository. It reproduces the
// store-side contract the services rely on: receipt and payment inserts
// advance the order status once cumulative amounts cover the order targets,
// and callers observe the change only by re-reading.
type memStore struct {
	mu sync.Mutex

	orders                map[uuid.UUID]*models.Order
	receipts              map[uuid.UUID][]models.Receipt
	payments              map[uuid.UUID][]models.Payment
	orderBeneficiaries    map[uuid.UUID][]models.Beneficiary
	customerBeneficiaries map[uuid.UUID][]models.Beneficiary

	accounts []models.Account

	calcs       map[uuid.UUID]*models.ProfitCalculation
	groups      map[uuid.UUID][]models.ProfitGroup
	multipliers map[uuid.UUID][]models.AccountMultiplier
	rates       map[uuid.UUID][]models.CalculationRate
}

func newMemStore() *memStore {
	return &memStore{
		orders:                make(map[uuid.UUID]*models.Order),
		receipts:              make(map[uuid.UUID][]models.Receipt),
		payments:              make(map[uuid.UUID][]models.Payment),
		orderBeneficiaries:    make(map[uuid.UUID][]models.Beneficiary),
		customerBeneficiaries: make(map[uuid.UUID][]models.Beneficiary),
		calcs:                 make(map[uuid.UUID]*models.ProfitCalculation),
		groups:                make(map[uuid.UUID][]models.ProfitGroup),
		multipliers:           make(map[uuid.UUID][]models.AccountMultiplier),
		rates:                 make(map[uuid.UUID][]models.CalculationRate),
	}
}

// --- OrderStore ---

func (s *memStore) ListOrders(_ context.Context, filter OrderFilter) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (s *memStore) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("get order: %w", domain.ErrNotFound)
	}
	clone := *o
	return &clone, nil
}

func (s *memStore) CreateOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *order
	s.orders[order.ID] = &clone
	return nil
}

func (s *memStore) GetOrderDetails(ctx context.Context, id uuid.UUID) (*models.OrderDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("get order details: %w", domain.ErrNotFound)
	}
	totals := ComputeSettlementTotals(*o, s.receipts[id], s.payments[id])
	return &models.OrderDetails{
		Order:              *o,
		Receipts:           append([]models.Receipt(nil), s.receipts[id]...),
		Payments:           append([]models.Payment(nil), s.payments[id]...),
		Beneficiaries:      append([]models.Beneficiary(nil), s.orderBeneficiaries[id]...),
		TotalReceiptAmount: totals.TotalReceiptAmount,
		TotalPaymentAmount: totals.TotalPaymentAmount,
		ReceiptBalance:     totals.ReceiptBalance,
		PaymentBalance:     totals.PaymentBalance,
	}, nil
}

func (s *memStore) UpdateOrderStatus(_ context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("update order status: %w", domain.ErrNotFound)
	}
	o.Status = status
	return nil
}

func (s *memStore) SetOrderProcessing(_ context.Context, id uuid.UUID, handlerID uuid.UUID, method models.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("set order processing: %w", domain.ErrNotFound)
	}
	if o.Status != domain.OrderStatusPending {
		return fmt.Errorf("set order processing: %w", domain.ErrPreconditionFailed)
	}
	o.HandlerID = &handlerID
	o.PaymentMethod = &method
	o.Status = domain.OrderStatusWaitingForReceipt
	return nil
}

func (s *memStore) AddReceipt(_ context.Context, receipt *models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[receipt.OrderID]
	if !ok {
		return fmt.Errorf("add receipt: %w", domain.ErrNotFound)
	}
	s.receipts[receipt.OrderID] = append(s.receipts[receipt.OrderID], *receipt)

	total := decimal.Zero
	for _, r := range s.receipts[receipt.OrderID] {
		total = total.Add(r.Amount)
	}
	if o.Status == domain.OrderStatusWaitingForReceipt && total.GreaterThanOrEqual(o.AmountBuy) {
		o.Status = domain.OrderStatusWaitingForPayment
	}
	return nil
}

func (s *memStore) AddPayment(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[payment.OrderID]
	if !ok {
		return fmt.Errorf("add payment: %w", domain.ErrNotFound)
	}
	s.payments[payment.OrderID] = append(s.payments[payment.OrderID], *payment)

	total := decimal.Zero
	for _, p := range s.payments[payment.OrderID] {
		total = total.Add(p.Amount)
	}
	if o.Status == domain.OrderStatusWaitingForPayment && total.GreaterThanOrEqual(o.AmountSell) {
		o.Status = domain.OrderStatusCompleted
	}
	return nil
}

func (s *memStore) AddOrderBeneficiary(_ context.Context, beneficiary *models.Beneficiary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if beneficiary.OrderID == nil {
		return fmt.Errorf("add order beneficiary: missing order id")
	}
	s.orderBeneficiaries[*beneficiary.OrderID] = append(s.orderBeneficiaries[*beneficiary.OrderID], *beneficiary)
	return nil
}

func (s *memStore) SetOrderProfit(_ context.Context, id uuid.UUID, amount decimal.Decimal, currency string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("set order profit: %w", domain.ErrNotFound)
	}
	o.ProfitAmount = &amount
	o.ProfitCurrency = currency
	return nil
}

func (s *memStore) DeleteOrder(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return fmt.Errorf("delete order: %w", domain.ErrNotFound)
	}
	delete(s.orders, id)
	delete(s.receipts, id)
	delete(s.payments, id)
	delete(s.orderBeneficiaries, id)
	return nil
}

// --- BeneficiaryStore ---

func (s *memStore) ListCustomerBeneficiaries(_ context.Context, customerID uuid.UUID) ([]models.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Beneficiary(nil), s.customerBeneficiaries[customerID]...), nil
}

func (s *memStore) AddCustomerBeneficiary(_ context.Context, beneficiary *models.Beneficiary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if beneficiary.CustomerID == nil {
		return fmt.Errorf("add customer beneficiary: missing customer id")
	}
	s.customerBeneficiaries[*beneficiary.CustomerID] = append(s.customerBeneficiaries[*beneficiary.CustomerID], *beneficiary)
	return nil
}

func (s *memStore) UpdateCustomerBeneficiary(_ context.Context, beneficiary *models.Beneficiary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.customerBeneficiaries[*beneficiary.CustomerID]
	for i := range list {
		if list[i].ID == beneficiary.ID {
			list[i] = *beneficiary
			return nil
		}
	}
	return fmt.Errorf("update customer beneficiary: %w", domain.ErrNotFound)
}

func (s *memStore) DeleteCustomerBeneficiary(_ context.Context, customerID, beneficiaryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.customerBeneficiaries[customerID]
	for i := range list {
		if list[i].ID == beneficiaryID {
			s.customerBeneficiaries[customerID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete customer beneficiary: %w", domain.ErrNotFound)
}

// --- AccountStore ---

func (s *memStore) ListAccounts(_ context.Context) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Account(nil), s.accounts...), nil
}

// --- ProfitStore ---

func (s *memStore) ListCalculations(_ context.Context) ([]models.ProfitCalculation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProfitCalculation
	for _, c := range s.calcs {
		out = append(out, *c)
	}
	return out, nil
}

func (s *memStore) GetCalculation(_ context.Context, id uuid.UUID) (*models.ProfitCalculation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calcs[id]
	if !ok {
		return nil, fmt.Errorf("get calculation: %w", domain.ErrNotFound)
	}
	clone := *c
	return &clone, nil
}

func (s *memStore) GetDefaultCalculation(_ context.Context) (*models.ProfitCalculation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calcs {
		if c.IsDefault {
			clone := *c
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("get default calculation: %w", domain.ErrNotFound)
}

func (s *memStore) CreateCalculation(_ context.Context, calc *models.ProfitCalculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *calc
	s.calcs[calc.ID] = &clone
	return nil
}

func (s *memStore) RenameCalculation(_ context.Context, id uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calcs[id]
	if !ok {
		return fmt.Errorf("rename calculation: %w", domain.ErrNotFound)
	}
	c.Name = name
	return nil
}

func (s *memStore) DeleteCalculation(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calcs[id]; !ok {
		return fmt.Errorf("delete calculation: %w", domain.ErrNotFound)
	}
	delete(s.calcs, id)
	delete(s.groups, id)
	delete(s.multipliers, id)
	delete(s.rates, id)
	return nil
}

func (s *memStore) SetDefaultCalculation(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.calcs[id]
	if !ok {
		return fmt.Errorf("set default calculation: %w", domain.ErrNotFound)
	}
	for _, c := range s.calcs {
		c.IsDefault = false
	}
	target.IsDefault = true
	return nil
}

func (s *memStore) UnsetDefaultCalculation(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calcs[id]
	if !ok {
		return fmt.Errorf("unset default calculation: %w", domain.ErrNotFound)
	}
	c.IsDefault = false
	return nil
}

func (s *memStore) ListGroups(_ context.Context, calculationID uuid.UUID) ([]models.ProfitGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ProfitGroup(nil), s.groups[calculationID]...), nil
}

func (s *memStore) CreateGroup(_ context.Context, group *models.ProfitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group.CalculationID] = append(s.groups[group.CalculationID], *group)
	return nil
}

func (s *memStore) RenameGroup(_ context.Context, calculationID, groupID uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.groups[calculationID]
	for i := range list {
		if list[i].ID == groupID {
			list[i].Name = name
			return nil
		}
	}
	return fmt.Errorf("rename group: %w", domain.ErrNotFound)
}

func (s *memStore) DeleteGroup(_ context.Context, calculationID, groupID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.groups[calculationID]
	for i := range list {
		if list[i].ID == groupID {
			s.groups[calculationID] = append(list[:i], list[i+1:]...)
			// Un-assign, never delete, the multiplier rows.
			mults := s.multipliers[calculationID]
			for j := range mults {
				if mults[j].GroupID != nil && *mults[j].GroupID == groupID {
					mults[j].GroupID = nil
				}
			}
			return nil
		}
	}
	return fmt.Errorf("delete group: %w", domain.ErrNotFound)
}

func (s *memStore) ListMultipliers(_ context.Context, calculationID uuid.UUID) ([]models.AccountMultiplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AccountMultiplier(nil), s.multipliers[calculationID]...), nil
}

func (s *memStore) UpsertMultiplier(_ context.Context, multiplier *models.AccountMultiplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.multipliers[multiplier.CalculationID]
	for i := range list {
		if list[i].AccountID == multiplier.AccountID {
			list[i] = *multiplier
			return nil
		}
	}
	s.multipliers[multiplier.CalculationID] = append(list, *multiplier)
	return nil
}

func (s *memStore) ListRates(_ context.Context, calculationID uuid.UUID) ([]models.CalculationRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CalculationRate(nil), s.rates[calculationID]...), nil
}

func (s *memStore) UpsertRate(_ context.Context, rate *models.CalculationRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.rates[rate.CalculationID]
	for i := range list {
		if list[i].FromCurrency == rate.FromCurrency && list[i].ToCurrency == rate.ToCurrency {
			list[i] = *rate
			return nil
		}
	}
	s.rates[rate.CalculationID] = append(list, *rate)
	return nil
}

// --- fixtures ---

// workflowFixture wires an OrderService over the in-memory store with a
// switchable caller role.
type workflowFixture struct {
	store *memStore
	role  string
	svc   *OrderService
}

func newWorkflowFixture() *workflowFixture {
	f := &workflowFixture{store: newMemStore(), role: domain.RoleAdmin}
	caps := NewRoleCapabilities(func(context.Context) string { return f.role })
	deriver := NewAmountDeriver(gateway.NewStaticRateFeed())
	f.svc = NewOrderService(f.store, f.store, caps, deriver)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func cryptoBeneficiary() BeneficiaryInput {
	return BeneficiaryInput{
		PaymentType: domain.PaymentTypeCrypto,
		Network:     "TRC20",
		Addresses:   []string{"TXYZabc123"},
	}
}
