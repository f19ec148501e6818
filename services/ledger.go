package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vortexlabs/cupido-api/config"
	"github.com/vortexlabs/cupido-api/models"
	"github.com/vortexlabs/cupido-api/utils"
)

// WebhookOrderInfo carries the buyer and product fields extracted from a
// commerce-provider payment webhook.
type WebhookOrderInfo struct {
	SaleID      string
	Event       string
	BuyerName   string
	BuyerEmail  string
	BuyerPhone  string
	ProductID   string
	ProductName string
}

// CreateOrderFromWebhook creates an order for a confirmed payment and sends
// the form link to the buyer. Idempotent on sale ID: a retried webhook for a
// known sale returns the existing order.
func CreateOrderFromWebhook(info WebhookOrderInfo) (*models.Order, error) {
	db := config.GetDB()

	if info.BuyerPhone == "" {
		return nil, NewServiceError(CodeInvalidInput, "webhook payload has no buyer phone")
	}

	if info.SaleID != "" {
		var existing models.Order
		err := db.Where("sale_id = ?", info.SaleID).First(&existing).Error
		if err == nil {
			log.Printf("Order %d already exists for sale %s", existing.ID, info.SaleID)
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	plan := models.ResolvePlan(info.ProductID, info.ProductName)
	isTest := strings.Contains(strings.ToLower(info.Event), "test")

	order := models.Order{
		Plan:       plan,
		Status:     models.OrderStatusPending,
		BuyerName:  info.BuyerName,
		BuyerEmail: info.BuyerEmail,
		BuyerPhone: utils.NormalizePhone(info.BuyerPhone),
		FormToken:  uuid.NewString(),
		IsTest:     isTest,
	}

	if err := db.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := MarkPaid(order.ID, info.SaleID); err != nil {
		return nil, err
	}

	if err := db.First(&order, order.ID).Error; err != nil {
		return nil, err
	}

	log.Printf("Order %d created (plan=%s, buyer=%s)", order.ID, plan, utils.MaskPhone(order.BuyerPhone))

	// Best-effort: the buyer gets the form link over the same channel the
	// recipient will be messaged on. A failed notification does not undo
	// the order; the buyer can still recover the link via phone lookup.
	formURL := fmt.Sprintf("%s/form/%s", config.GetConfig().AppBaseURL, order.FormToken)
	planCfg, _ := models.GetPlan(plan)
	text := fmt.Sprintf(
		"💘 *Cupido*\n\nSeu pedido foi confirmado! (%s)\n\nPreencha o formulário para enviar sua mensagem:\n\n👉 %s",
		planCfg.Label, formURL,
	)
	if err := GetWhatsAppService().SendText(order.BuyerPhone, text); err != nil {
		log.Printf("Failed to send form link for order %d: %v", order.ID, err)
	}

	return &order, nil
}

// MarkPaid transitions an order from pending to approved, binding the sale
// identifier. Idempotent when retried with the same sale ID on the same
// order; fails with DUPLICATE_SALE when the sale ID is already bound to a
// different order.
func MarkPaid(orderID uint, saleID string) error {
	db := config.GetDB()

	if saleID != "" {
		var existing models.Order
		err := db.Where("sale_id = ?", saleID).First(&existing).Error
		if err == nil && existing.ID != orderID {
			return NewServiceError(CodeDuplicateSale, "sale %s is already attached to order %d", saleID, existing.ID)
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	updates := map[string]interface{}{"status": models.OrderStatusApproved}
	if saleID != "" {
		updates["sale_id"] = saleID
	}

	result := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, models.OrderStatusPending).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var order models.Order
		if err := db.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewServiceError(CodeNotFound, "order %d not found", orderID)
			}
			return err
		}
		// Retried webhook for an already-approved order is a no-op
		if order.Status == models.OrderStatusApproved &&
			(saleID == "" || (order.SaleID != nil && *order.SaleID == saleID)) {
			return nil
		}
		return NewServiceError(CodeInvalidTransition, "cannot mark order %d paid in status %s", orderID, order.Status)
	}

	return nil
}

// RecordMessageSubmitted increments the order's messages_sent counter and
// moves the order to submitted. The increment is a conditional update so two
// concurrent submissions cannot both claim the same slot. Returns the
// remaining message quota.
func RecordMessageSubmitted(orderID uint) (int, error) {
	db := config.GetDB()

	var remaining int
	err := db.Transaction(func(tx *gorm.DB) error {
		r, err := recordMessageSubmitted(tx, orderID)
		if err != nil {
			return err
		}
		remaining = r
		return nil
	})
	if err != nil {
		return 0, err
	}

	return remaining, nil
}

// recordMessageSubmitted is the transactional body of RecordMessageSubmitted,
// exposed so the submission pipeline can claim the slot and insert the
// message row in one transaction.
func recordMessageSubmitted(tx *gorm.DB, orderID uint) (int, error) {
	var order models.Order
	if err := tx.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, NewServiceError(CodeNotFound, "order %d not found", orderID)
		}
		return 0, err
	}

	plan, ok := models.GetPlan(order.Plan)
	if !ok {
		return 0, NewServiceError(CodeInvalidTransition, "order %d has unknown plan %q", orderID, order.Plan)
	}

	result := tx.Model(&models.Order{}).
		Where("id = ? AND status IN ? AND messages_sent < ?",
			orderID,
			[]string{models.OrderStatusApproved, models.OrderStatusSubmitted},
			plan.MaxMessages,
		).
		Updates(map[string]interface{}{
			"messages_sent": gorm.Expr("messages_sent + 1"),
			"status":        models.OrderStatusSubmitted,
		})
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected == 0 {
		// Re-read to distinguish quota exhaustion from a bad state
		if err := tx.First(&order, orderID).Error; err != nil {
			return 0, err
		}
		if order.MessagesSent >= plan.MaxMessages {
			return 0, ErrQuotaExhausted
		}
		return 0, NewServiceError(CodeInvalidTransition, "cannot submit against order %d in status %s", orderID, order.Status)
	}

	if err := tx.First(&order, orderID).Error; err != nil {
		return 0, err
	}
	return plan.MaxMessages - order.MessagesSent, nil
}

// MarkDelivered finalizes a submitted order
func MarkDelivered(orderID uint) error {
	db := config.GetDB()

	now := time.Now()
	result := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, models.OrderStatusSubmitted).
		Updates(map[string]interface{}{
			"status":       models.OrderStatusDelivered,
			"delivered_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return transitionError(db, orderID, "deliver")
	}

	log.Printf("Order %d delivered", orderID)
	return nil
}

// RefundOrder moves a non-terminal order to refunded
func RefundOrder(orderID uint) error {
	return closeOrder(orderID, models.OrderStatusRefunded)
}

// CancelOrder moves a non-terminal order to canceled
func CancelOrder(orderID uint) error {
	return closeOrder(orderID, models.OrderStatusCanceled)
}

func closeOrder(orderID uint, status string) error {
	db := config.GetDB()

	result := db.Model(&models.Order{}).
		Where("id = ? AND status IN ?", orderID, []string{
			models.OrderStatusPending,
			models.OrderStatusApproved,
			models.OrderStatusSubmitted,
		}).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return transitionError(db, orderID, status)
	}

	log.Printf("Order %d %s", orderID, status)
	return nil
}

func transitionError(db *gorm.DB, orderID uint, action string) error {
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewServiceError(CodeNotFound, "order %d not found", orderID)
		}
		return err
	}
	return NewServiceError(CodeInvalidTransition, "cannot %s order %d in status %s", action, orderID, order.Status)
}

// GetOrderByToken fetches the order owning a form token
func GetOrderByToken(token string) (*models.Order, error) {
	db := config.GetDB()

	var order models.Order
	if err := db.Where("form_token = ?", token).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &order, nil
}

// SetRecipientPhone stores the recipient phone on the order. Called on the
// first accepted submission.
func SetRecipientPhone(orderID uint, phone string) error {
	db := config.GetDB()
	return db.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("recipient_phone", phone).Error
}
