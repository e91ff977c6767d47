package application

import (
	"context"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
)

// Scope builds the row filter for p. Restaurant memberships are looked up on
// every call. Roles without a defined scope get a filter no row can match.
func (s *Service) Scope(ctx context.Context, p auth.Principal) (domain.ListFilter, error) {
	switch p.Role {
	case auth.RoleCustomer:
		return domain.ListFilter{UserID: p.UserID}, nil
	case auth.RoleRestaurantOwner, auth.RoleRestaurantStaff:
		ids, err := s.catalog.RestaurantIDsForUser(ctx, p.UserID)
		if err != nil {
			return domain.ListFilter{}, err
		}
		if len(ids) == 0 {
			return domain.ListFilter{UserID: domain.NoAccess}, nil
		}
		return domain.ListFilter{RestaurantIDs: ids}, nil
	case auth.RoleAdmin, auth.RoleSuperAdmin:
		return domain.ListFilter{Unrestricted: true}, nil
	}
	return domain.ListFilter{UserID: domain.NoAccess}, nil
}

// visibleOrder loads an order and hides it from principals outside its scope.
func (s *Service) visibleOrder(ctx context.Context, p auth.Principal, id string) (domain.Order, error) {
	f, err := s.Scope(ctx, p)
	if err != nil {
		return domain.Order{}, err
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !f.Allows(o) {
		return domain.Order{}, apperr.NotFound("order %s not found", id)
	}
	return o, nil
}

// managedOrder is visibleOrder restricted to restaurant staff and admins.
func (s *Service) managedOrder(ctx context.Context, p auth.Principal, id string) (domain.Order, error) {
	switch p.Role {
	case auth.RoleRestaurantOwner, auth.RoleRestaurantStaff, auth.RoleAdmin, auth.RoleSuperAdmin:
	default:
		return domain.Order{}, apperr.Forbidden("role %s cannot manage orders", p.Role)
	}
	return s.visibleOrder(ctx, p, id)
}
