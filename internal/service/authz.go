package service

import (
	"context"

	"github.com/fxops/backoffice/internal/domain"
)

// Capabilities is the authorization port consulted before any capability-gated
// order action. The workflow engine calls it synchronously and never performs
// the mutation when the predicate is false, regardless of what the store would
// allow.
type Capabilities interface {
	CanCancelOrder(ctx context.Context) bool
	CanDeleteOrder(ctx context.Context) bool
	CanDeleteManyOrders(ctx context.Context) bool
}

// RoleFunc extracts the caller's role from the request context.
type RoleFunc func(ctx context.Context) string

// RoleCapabilities derives capabilities from the session role claim.
type RoleCapabilities struct {
	role RoleFunc
}

// NewRoleCapabilities builds the default role-backed capability check.
func NewRoleCapabilities(role RoleFunc) *RoleCapabilities {
	return &RoleCapabilities{role: role}
}

func (c *RoleCapabilities) CanCancelOrder(ctx context.Context) bool {
	switch c.role(ctx) {
	case domain.RoleAdmin, domain.RoleOperator:
		return true
	}
	return false
}

func (c *RoleCapabilities) CanDeleteOrder(ctx context.Context) bool {
	return c.role(ctx) == domain.RoleAdmin
}

func (c *RoleCapabilities) CanDeleteManyOrders(ctx context.Context) bool {
	return c.role(ctx) == domain.RoleAdmin
}
