package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/vortexlabs/cupido-api/models"
)

// createDeliverableOrder inserts a submitted order with a recipient attached
func createDeliverableOrder(t *testing.T, db *gorm.DB, plan models.PlanType) *models.Order {
	t.Helper()

	order := createTestOrder(t, db, plan, models.OrderStatusSubmitted)
	if err := db.Model(order).Update("recipient_phone", "5521912345678").Error; err != nil {
		t.Fatalf("Failed to set recipient phone: %v", err)
	}
	order.RecipientPhone = "5521912345678"
	return order
}

// createPendingMessage inserts an undelivered message for the order
func createPendingMessage(t *testing.T, db *gorm.DB, orderID uint, index int, scheduledAt *time.Time) *models.Message {
	t.Helper()

	message := models.Message{
		OrderID:        orderID,
		MessageIndex:   index,
		Content:        "conteúdo",
		SenderNickname: "Alguém",
		ScheduledAt:    scheduledAt,
	}
	if err := db.Create(&message).Error; err != nil {
		t.Fatalf("Failed to create test message: %v", err)
	}
	return &message
}

func TestRunDeliveryScan(t *testing.T) {
	db, mocks := setupServiceTest(t)
	order := createDeliverableOrder(t, db, models.PlanMulti)

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	immediate := createPendingMessage(t, db, order.ID, 0, nil)
	due := createPendingMessage(t, db, order.ID, 1, &past)
	notYet := createPendingMessage(t, db, order.ID, 2, &future)

	alreadyDone := createPendingMessage(t, db, order.ID, 3, nil)
	db.Model(alreadyDone).Update("delivered", true)

	parked := createPendingMessage(t, db, order.ID, 4, nil)
	db.Model(parked).Update("failed", true)

	delivered := RunDeliveryScan()
	assert.Equal(t, 2, delivered)
	assert.Equal(t, 2, mocks.WhatsApp.SentCount())

	var reloaded models.Message
	db.First(&reloaded, immediate.ID)
	assert.True(t, reloaded.Delivered)
	reloaded = models.Message{}
	db.First(&reloaded, due.ID)
	assert.True(t, reloaded.Delivered)
	reloaded = models.Message{}
	db.First(&reloaded, notYet.ID)
	assert.False(t, reloaded.Delivered)
	reloaded = models.Message{}
	db.First(&reloaded, parked.ID)
	assert.False(t, reloaded.Delivered)

	// A second scan finds nothing left
	assert.Equal(t, 0, RunDeliveryScan())
}

func TestRunDeliveryScanOrdering(t *testing.T) {
	db, mocks := setupServiceTest(t)
	order := createDeliverableOrder(t, db, models.PlanMulti)

	earlier := time.Now().Add(-2 * time.Hour)
	later := time.Now().Add(-time.Hour)

	// The schedule timestamp outranks the message index
	createPendingMessage(t, db, order.ID, 0, &later)
	createPendingMessage(t, db, order.ID, 1, &earlier)

	assert.Equal(t, 2, RunDeliveryScan())

	sent := mocks.WhatsApp.Sent()
	if assert.Len(t, sent, 2) {
		assert.Contains(t, sent[0].Text, "(2/5)")
		assert.Contains(t, sent[1].Text, "(1/5)")
	}
}

func TestDeliverMessageClaim(t *testing.T) {
	db, mocks := setupServiceTest(t)
	order := createDeliverableOrder(t, db, models.PlanBasic)
	message := createPendingMessage(t, db, order.ID, 0, nil)

	assert.True(t, DeliverMessage(message.ID))

	// The delivered flag is the claim: a second attempt finds nothing to do
	assert.False(t, DeliverMessage(message.ID))
	assert.Equal(t, 1, mocks.WhatsApp.SentCount())
}

func TestDeliverMessageReleaseOnFailure(t *testing.T) {
	db, mocks := setupServiceTest(t)
	order := createDeliverableOrder(t, db, models.PlanBasic)
	message := createPendingMessage(t, db, order.ID, 0, nil)

	mocks.WhatsApp.FailNext(1)
	assert.False(t, DeliverMessage(message.ID))

	var reloaded models.Message
	db.First(&reloaded, message.ID)
	assert.False(t, reloaded.Delivered)
	assert.Equal(t, 1, reloaded.Attempts)

	// The released message is picked up again and succeeds
	assert.Equal(t, 1, RunDeliveryScan())
	assert.Equal(t, 1, mocks.WhatsApp.SentCount())
}

func TestDeliverMessageParkedAfterMaxAttempts(t *testing.T) {
	db, mocks := setupServiceTest(t)
	order := createDeliverableOrder(t, db, models.PlanBasic)
	message := createPendingMessage(t, db, order.ID, 0, nil)

	mocks.WhatsApp.FailNext(MaxDeliveryAttempts)
	for i := 0; i < MaxDeliveryAttempts; i++ {
		assert.False(t, DeliverMessage(message.ID))
	}

	var reloaded models.Message
	db.First(&reloaded, message.ID)
	assert.True(t, reloaded.Failed)
	assert.Equal(t, MaxDeliveryAttempts, reloaded.Attempts)

	// Parked messages leave the scan set
	assert.Equal(t, 0, RunDeliveryScan())
	assert.Equal(t, 0, mocks.WhatsApp.SentCount())
}

func TestDeliverMessageWithAudio(t *testing.T) {
	db, mocks := setupServiceTest(t)
	order := createDeliverableOrder(t, db, models.PlanAudio)
	message := createPendingMessage(t, db, order.ID, 0, nil)

	audioKey := "audio/1_0.mp3"
	db.Model(message).Update("audio_key", audioKey)

	assert.True(t, DeliverMessage(message.ID))

	// Audio first, then the text
	sent := mocks.WhatsApp.Sent()
	if assert.Len(t, sent, 2) {
		assert.Contains(t, sent[0].AudioURL, audioKey)
		assert.NotEmpty(t, sent[1].Text)
	}
}

func TestDeliverMessageAudioFailureDegradesToText(t *testing.T) {
	db, mocks := setupServiceTest(t)
	order := createDeliverableOrder(t, db, models.PlanAudio)
	message := createPendingMessage(t, db, order.ID, 0, nil)
	db.Model(message).Update("audio_key", "audio/1_0.mp3")

	mocks.WhatsApp.FailNext(1)
	assert.True(t, DeliverMessage(message.ID))

	// The failed audio send does not block the text delivery
	sent := mocks.WhatsApp.Sent()
	if assert.Len(t, sent, 1) {
		assert.NotEmpty(t, sent[0].Text)
	}
}

func TestSchedulerLoop(t *testing.T) {
	db, mocks := setupServiceTest(t)
	order := createDeliverableOrder(t, db, models.PlanBasic)
	createPendingMessage(t, db, order.ID, 0, nil)

	scheduler := NewScheduler(20 * time.Millisecond)
	scheduler.Start()
	defer scheduler.Stop()

	assert.Eventually(t, func() bool {
		return mocks.WhatsApp.SentCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
