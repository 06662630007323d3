package services

import (
	"fmt"
	"slices"

	"bakery/internal/models"
)

// TransitionTable lists, per current status, the statuses a baker may move an order to.
type TransitionTable map[models.OrderStatus][]models.OrderStatus

// Allows reports whether from -> to is in the table.
func (t TransitionTable) Allows(from, to models.OrderStatus) bool {
	return slices.Contains(t[from], to)
}

// StrictTransitions follows the fulfillment flow. An order can be declined until
// preparation starts; delivered and declined are final.
func StrictTransitions() TransitionTable {
	return TransitionTable{
		models.StatusPending:   {models.StatusAccepted, models.StatusDeclined},
		models.StatusAccepted:  {models.StatusPreparing, models.StatusShipped, models.StatusDelivered, models.StatusDeclined},
		models.StatusPreparing: {models.StatusShipped, models.StatusDelivered},
		models.StatusShipped:   {models.StatusDelivered},
	}
}

// PermissiveTransitions lets the owning baker set any known status from any status.
func PermissiveTransitions() TransitionTable {
	t := make(TransitionTable, len(models.Statuses))
	for _, from := range models.Statuses {
		t[from] = slices.Clone(models.Statuses)
	}
	return t
}

// TransitionsFor returns the table named by policy: strict or permissive.
func TransitionsFor(policy string) (TransitionTable, error) {
	switch policy {
	case "", "strict":
		return StrictTransitions(), nil
	case "permissive":
		return PermissiveTransitions(), nil
	default:
		return nil, fmt.Errorf("unknown transition policy %q", policy)
	}
}
