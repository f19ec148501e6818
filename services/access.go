package services

import (
	"github.com/vortexlabs/cupido-api/config"
	"github.com/vortexlabs/cupido-api/models"
	"github.com/vortexlabs/cupido-api/utils"
)

// Access is the form access gate's verdict for a token
type Access struct {
	Order           *models.Order
	Plan            models.PlanConfig
	AllowedToSubmit bool
	Reason          string // set when AllowedToSubmit is false
	Remaining       int
}

// ResolveAccess validates a form token against its order. The token is not
// rotated: it stays valid across submissions until the quota is exhausted,
// which is what lets the multi-message plan submit again for message 2.
func ResolveAccess(token string) (*Access, error) {
	order, err := GetOrderByToken(token)
	if err != nil {
		return nil, err
	}

	plan, ok := models.GetPlan(order.Plan)
	if !ok {
		return nil, NewServiceError(CodeInvalidTransition, "order %d has unknown plan %q", order.ID, order.Plan)
	}

	access := &Access{
		Order:     order,
		Plan:      plan,
		Remaining: plan.MaxMessages - order.MessagesSent,
	}

	switch order.Status {
	case models.OrderStatusPending:
		access.Reason = ReasonNotPaid
	case models.OrderStatusDelivered:
		access.Reason = ReasonAlreadyComplete
	case models.OrderStatusRefunded, models.OrderStatusCanceled:
		access.Reason = ReasonClosed
	case models.OrderStatusApproved, models.OrderStatusSubmitted:
		if access.Remaining > 0 {
			access.AllowedToSubmit = true
		} else {
			access.Reason = ReasonQuotaExhausted
		}
	default:
		access.Reason = ReasonClosed
	}

	return access, nil
}

// OrderSummary is one entry in the buyer's phone-lookup result
type OrderSummary struct {
	ID        uint            `json:"id"`
	Plan      models.PlanType `json:"plan"`
	PlanLabel string          `json:"plan_label"`
	FormToken string          `json:"form_token"`
	Status    string          `json:"status"`
	Remaining int             `json:"remaining"`
	Usable    bool            `json:"usable"`
	CreatedAt string          `json:"created_at"`
}

// LookupOrdersByPhone returns the buyer's orders with per-order usability,
// so a buyer who lost the form link can recover it.
func LookupOrdersByPhone(phone string) ([]OrderSummary, error) {
	if !utils.ValidatePhone(phone) {
		return nil, ErrInvalidPhone
	}

	db := config.GetDB()
	var orders []models.Order
	if err := db.Where("buyer_phone = ?", utils.NormalizePhone(phone)).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}

	summaries := make([]OrderSummary, 0, len(orders))
	for i := range orders {
		order := &orders[i]
		plan, ok := models.GetPlan(order.Plan)
		if !ok {
			continue
		}

		remaining := plan.MaxMessages - order.MessagesSent
		if remaining < 0 {
			remaining = 0
		}

		usable := remaining > 0 &&
			(order.Status == models.OrderStatusApproved || order.Status == models.OrderStatusSubmitted)
		// A submitted premium order already has its presentation; nothing
		// left to do even if the message counter has room.
		if plan.HasPresentation && order.Status == models.OrderStatusSubmitted {
			usable = false
		}

		summaries = append(summaries, OrderSummary{
			ID:        order.ID,
			Plan:      order.Plan,
			PlanLabel: plan.Label,
			FormToken: order.FormToken,
			Status:    order.Status,
			Remaining: remaining,
			Usable:    usable,
			CreatedAt: order.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return summaries, nil
}
