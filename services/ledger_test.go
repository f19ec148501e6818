package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vortexlabs/cupido-api/models"
)

// assertServiceCode checks that an error is a ServiceError with the code
func assertServiceCode(t *testing.T, err error, code string) {
	t.Helper()

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ServiceError with code %s, got %v", code, err)
	}
	assert.Equal(t, code, svcErr.Code)
}

func TestCreateOrderFromWebhook(t *testing.T) {
	_, mocks := setupServiceTest(t)

	info := WebhookOrderInfo{
		SaleID:      "sale-123",
		Event:       "sale.approved",
		BuyerName:   "Maria",
		BuyerEmail:  "maria@example.com",
		BuyerPhone:  "11987654321",
		ProductName: "Mensagem Anônima + Áudio",
	}

	order, err := CreateOrderFromWebhook(info)
	assert.NoError(t, err)
	assert.Equal(t, models.PlanAudio, order.Plan)
	assert.Equal(t, models.OrderStatusApproved, order.Status)
	assert.Equal(t, "5511987654321", order.BuyerPhone)
	assert.NotEmpty(t, order.FormToken)
	assert.NotNil(t, order.SaleID)
	assert.Equal(t, "sale-123", *order.SaleID)
	assert.False(t, order.IsTest)

	// The buyer gets the form link on their own number
	sent := mocks.WhatsApp.Sent()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "5511987654321", sent[0].Phone)
		assert.Contains(t, sent[0].Text, order.FormToken)
	}
}

func TestCreateOrderFromWebhookIdempotent(t *testing.T) {
	db, _ := setupServiceTest(t)

	info := WebhookOrderInfo{
		SaleID:     "sale-retry",
		Event:      "sale.approved",
		BuyerPhone: "11987654321",
	}

	first, err := CreateOrderFromWebhook(info)
	assert.NoError(t, err)

	// A retried webhook for the same sale returns the existing order
	second, err := CreateOrderFromWebhook(info)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateOrderFromWebhookValidation(t *testing.T) {
	setupServiceTest(t)

	_, err := CreateOrderFromWebhook(WebhookOrderInfo{Event: "sale.approved"})
	assertServiceCode(t, err, CodeInvalidInput)
}

func TestCreateOrderFromWebhookTestEvent(t *testing.T) {
	setupServiceTest(t)

	order, err := CreateOrderFromWebhook(WebhookOrderInfo{
		Event:      "sale.approved.test",
		BuyerPhone: "11987654321",
	})
	assert.NoError(t, err)
	assert.True(t, order.IsTest)
}

func TestMarkPaid(t *testing.T) {
	db, _ := setupServiceTest(t)
	order := createTestOrder(t, db, models.PlanBasic, models.OrderStatusPending)

	err := MarkPaid(order.ID, "sale-1")
	assert.NoError(t, err)

	var reloaded models.Order
	db.First(&reloaded, order.ID)
	assert.Equal(t, models.OrderStatusApproved, reloaded.Status)
	assert.Equal(t, "sale-1", *reloaded.SaleID)

	// Retried confirmation for the same sale is a no-op
	err = MarkPaid(order.ID, "sale-1")
	assert.NoError(t, err)
}

func TestMarkPaidDuplicateSale(t *testing.T) {
	db, _ := setupServiceTest(t)
	first := createTestOrder(t, db, models.PlanBasic, models.OrderStatusPending)
	second := createTestOrder(t, db, models.PlanBasic, models.OrderStatusPending)

	assert.NoError(t, MarkPaid(first.ID, "sale-1"))

	// The same sale cannot pay for a second order
	err := MarkPaid(second.ID, "sale-1")
	assertServiceCode(t, err, CodeDuplicateSale)

	var reloaded models.Order
	db.First(&reloaded, second.ID)
	assert.Equal(t, models.OrderStatusPending, reloaded.Status)
}

func TestMarkPaidInvalidTransition(t *testing.T) {
	db, _ := setupServiceTest(t)
	order := createTestOrder(t, db, models.PlanBasic, models.OrderStatusDelivered)

	err := MarkPaid(order.ID, "sale-late")
	assertServiceCode(t, err, CodeInvalidTransition)
}

func TestMarkPaidNotFound(t *testing.T) {
	setupServiceTest(t)

	err := MarkPaid(9999, "sale-x")
	assertServiceCode(t, err, CodeNotFound)
}

func TestRecordMessageSubmittedBasic(t *testing.T) {
	db, _ := setupServiceTest(t)
	order := createTestOrder(t, db, models.PlanBasic, models.OrderStatusApproved)

	remaining, err := RecordMessageSubmitted(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, 0, remaining)

	var reloaded models.Order
	db.First(&reloaded, order.ID)
	assert.Equal(t, models.OrderStatusSubmitted, reloaded.Status)
	assert.Equal(t, 1, reloaded.MessagesSent)

	// The single slot is spent
	_, err = RecordMessageSubmitted(order.ID)
	assert.ErrorIs(t, err, ErrQuotaExhausted)
}

func TestRecordMessageSubmittedMulti(t *testing.T) {
	db, _ := setupServiceTest(t)
	order := createTestOrder(t, db, models.PlanMulti, models.OrderStatusApproved)

	// The counter only ever moves forward
	for want := 4; want >= 0; want-- {
		remaining, err := RecordMessageSubmitted(order.ID)
		assert.NoError(t, err)
		assert.Equal(t, want, remaining)
	}

	_, err := RecordMessageSubmitted(order.ID)
	assert.ErrorIs(t, err, ErrQuotaExhausted)

	var reloaded models.Order
	db.First(&reloaded, order.ID)
	assert.Equal(t, 5, reloaded.MessagesSent)
}

func TestRecordMessageSubmittedBadState(t *testing.T) {
	db, _ := setupServiceTest(t)

	pending := createTestOrder(t, db, models.PlanBasic, models.OrderStatusPending)
	_, err := RecordMessageSubmitted(pending.ID)
	assertServiceCode(t, err, CodeInvalidTransition)

	refunded := createTestOrder(t, db, models.PlanBasic, models.OrderStatusRefunded)
	_, err = RecordMessageSubmitted(refunded.ID)
	assertServiceCode(t, err, CodeInvalidTransition)

	_, err = RecordMessageSubmitted(9999)
	assertServiceCode(t, err, CodeNotFound)
}

func TestMarkDelivered(t *testing.T) {
	db, _ := setupServiceTest(t)
	order := createTestOrder(t, db, models.PlanBasic, models.OrderStatusSubmitted)

	assert.NoError(t, MarkDelivered(order.ID))

	var reloaded models.Order
	db.First(&reloaded, order.ID)
	assert.Equal(t, models.OrderStatusDelivered, reloaded.Status)
	assert.NotNil(t, reloaded.DeliveredAt)

	// Delivered is terminal
	err := MarkDelivered(order.ID)
	assertServiceCode(t, err, CodeInvalidTransition)
}

func TestRefundAndCancel(t *testing.T) {
	db, _ := setupServiceTest(t)

	approved := createTestOrder(t, db, models.PlanBasic, models.OrderStatusApproved)
	assert.NoError(t, RefundOrder(approved.ID))

	var reloaded models.Order
	db.First(&reloaded, approved.ID)
	assert.Equal(t, models.OrderStatusRefunded, reloaded.Status)

	pending := createTestOrder(t, db, models.PlanBasic, models.OrderStatusPending)
	assert.NoError(t, CancelOrder(pending.ID))
	reloaded = models.Order{}
	db.First(&reloaded, pending.ID)
	assert.Equal(t, models.OrderStatusCanceled, reloaded.Status)

	// Terminal orders cannot be closed again
	delivered := createTestOrder(t, db, models.PlanBasic, models.OrderStatusDelivered)
	err := RefundOrder(delivered.ID)
	assertServiceCode(t, err, CodeInvalidTransition)
}

func TestGetOrderByToken(t *testing.T) {
	db, _ := setupServiceTest(t)
	order := createTestOrder(t, db, models.PlanBasic, models.OrderStatusApproved)

	found, err := GetOrderByToken(order.FormToken)
	assert.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = GetOrderByToken("no-such-token")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}
