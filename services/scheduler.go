package services

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/vortexlabs/cupido-api/config"
	"github.com/vortexlabs/cupido-api/models"
)

// MaxDeliveryAttempts bounds retries for a message the channel keeps
// rejecting; after this many failed sends the message is marked failed and
// no longer scanned.
const MaxDeliveryAttempts = 10

// Scheduler periodically scans for due undelivered messages and drives them
// through the messaging channel.
type Scheduler struct {
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler creates a scheduler with the given scan interval
func NewScheduler(interval time.Duration) *Scheduler {
	return &Scheduler{
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the periodic scan loop
func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.Printf("Delivery scheduler started (interval %s)", s.interval)
		for {
			select {
			case <-ticker.C:
				RunDeliveryScan()
			case <-s.stop:
				log.Println("Delivery scheduler stopped")
				return
			}
		}
	}()
}

// Stop terminates the scan loop and waits for it to exit
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

// RunDeliveryScan selects every undelivered message that is due and attempts
// delivery. Due messages are ordered by schedule time first, then by index
// within the order, so the schedule timestamp takes precedence over index.
// Returns the number of messages delivered.
func RunDeliveryScan() int {
	db := config.GetDB()
	now := time.Now()

	// Messages with narration still being synthesized are held back so the
	// text is never sent ahead of its audio.
	var messages []models.Message
	err := db.Where("delivered = ? AND failed = ? AND audio_pending = ? AND (scheduled_at IS NULL OR scheduled_at <= ?)", false, false, false, now).
		Order("COALESCE(scheduled_at, created_at) ASC, message_index ASC").
		Find(&messages).Error
	if err != nil {
		log.Printf("Delivery scan query failed: %v", err)
		return 0
	}

	delivered := 0
	for i := range messages {
		if DeliverMessage(messages[i].ID) {
			delivered++
		}
	}

	if delivered > 0 {
		log.Printf("Delivery scan: %d of %d due messages delivered", delivered, len(messages))
	}
	return delivered
}

// DeliverMessage attempts to deliver one message. The delivered flag is the
// serialization point: the message is claimed with a conditional update
// before sending, so a scan and an immediate hand-off racing on the same
// message cannot double-send. A failed send releases the claim and counts
// an attempt. Returns true when the message was sent.
func DeliverMessage(messageID uint) bool {
	db := config.GetDB()

	claim := db.Model(&models.Message{}).
		Where("id = ? AND delivered = ? AND failed = ?", messageID, false, false).
		Update("delivered", true)
	if claim.Error != nil {
		log.Printf("Failed to claim message %d: %v", messageID, claim.Error)
		return false
	}
	if claim.RowsAffected == 0 {
		// Already delivered, failed, or claimed by a concurrent worker
		return false
	}

	var message models.Message
	if err := db.Preload("Order").First(&message, messageID).Error; err != nil {
		log.Printf("Failed to load message %d: %v", messageID, err)
		releaseClaim(db, &message, messageID)
		return false
	}

	if err := sendMessage(&message); err != nil {
		log.Printf("Delivery of message %d failed (attempt %d): %v", messageID, message.Attempts+1, err)
		releaseClaim(db, &message, messageID)
		return false
	}

	return true
}

// releaseClaim puts a claimed message back into the scan set, counting the
// failed attempt. After MaxDeliveryAttempts the message is parked as failed.
func releaseClaim(db *gorm.DB, message *models.Message, messageID uint) {
	updates := map[string]interface{}{
		"delivered": false,
		"attempts":  gorm.Expr("attempts + 1"),
	}
	if message.Attempts+1 >= MaxDeliveryAttempts {
		updates["failed"] = true
		log.Printf("Message %d exceeded %d delivery attempts, marking failed", messageID, MaxDeliveryAttempts)
	}
	if err := db.Model(&models.Message{}).Where("id = ?", messageID).Updates(updates).Error; err != nil {
		log.Printf("Failed to release claim on message %d: %v", messageID, err)
	}
}

func sendMessage(message *models.Message) error {
	order := &message.Order
	if order.RecipientPhone == "" {
		return fmt.Errorf("order %d has no recipient phone", order.ID)
	}

	plan, ok := models.GetPlan(order.Plan)
	if !ok {
		return fmt.Errorf("order %d has unknown plan %q", order.ID, order.Plan)
	}

	wa := GetWhatsAppService()

	// Audio is sent first when the asset is ready. A missing or failing
	// audio send degrades to text-only delivery.
	if message.AudioKey != nil && *message.AudioKey != "" {
		audioURL := GetS3Service().PublicURL(*message.AudioKey)
		if err := wa.SendAudio(order.RecipientPhone, audioURL); err != nil {
			log.Printf("Audio send failed for message %d, delivering text only: %v", message.ID, err)
		}
	}

	return wa.SendText(order.RecipientPhone, formatMessageText(plan, message))
}

// formatMessageText builds the recipient-facing text for a message
func formatMessageText(plan models.PlanConfig, message *models.Message) string {
	if plan.MaxMessages > 1 {
		return fmt.Sprintf(
			"💘 *Mensagem Anônima do Cupido* (%d/%d)\n\n_%s_\n\n— %s",
			message.MessageIndex+1, plan.MaxMessages, message.Content, message.SenderNickname,
		)
	}

	withAudio := ""
	if message.AudioText != nil && *message.AudioText != "" {
		withAudio = " com áudio"
	}
	return fmt.Sprintf(
		"💘 *Mensagem Anônima do Cupido*\n\nAlguém especial te enviou uma mensagem%s:\n\n_%s_\n\n— %s",
		withAudio, message.Content, message.SenderNickname,
	)
}
