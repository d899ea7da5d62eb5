package service

import (
	"strings"

	"github.com/fxops/backoffice/internal/domain"
)

var orderTransitions = map[string]map[string]struct{}{
	domain.OrderStatusPending: {
		domain.OrderStatusWaitingForReceipt: {},
		domain.OrderStatusCancelled:         {},
	},
	domain.OrderStatusWaitingForReceipt: {
		domain.OrderStatusWaitingForPayment: {},
		domain.OrderStatusCancelled:         {},
	},
	domain.OrderStatusWaitingForPayment: {
		domain.OrderStatusCompleted: {},
		domain.OrderStatusCancelled: {},
	},
	domain.OrderStatusCompleted: {},
	domain.OrderStatusCancelled: {},
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

func canTransition(current, next string) bool {
	current = normalizeStatus(current)
	next = normalizeStatus(next)
	nextStates, ok := orderTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

func isTerminalStatus(status string) bool {
	switch normalizeStatus(status) {
	case domain.OrderStatusCompleted, domain.OrderStatusCancelled:
		return true
	}
	return false
}

// availableActions returns the UI affordances legal for an order in the given
// status. Cancel is never offered once completed or cancelled; the payment
// upload appears only after beneficiaries exist.
func availableActions(status string, hasBeneficiaries bool) []string {
	switch normalizeStatus(status) {
	case domain.OrderStatusPending:
		return []string{domain.ActionProcess, domain.ActionCancel, domain.ActionDelete}
	case domain.OrderStatusWaitingForReceipt:
		return []string{domain.ActionUploadReceipt, domain.ActionCancel, domain.ActionDelete}
	case domain.OrderStatusWaitingForPayment:
		if hasBeneficiaries {
			return []string{domain.ActionUploadPayment, domain.ActionCancel, domain.ActionDelete}
		}
		return []string{domain.ActionAddBeneficiary, domain.ActionCancel, domain.ActionDelete}
	case domain.OrderStatusCompleted, domain.OrderStatusCancelled:
		return []string{domain.ActionView, domain.ActionDelete}
	}
	return nil
}
