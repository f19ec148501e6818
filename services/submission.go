package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vortexlabs/cupido-api/config"
	"github.com/vortexlabs/cupido-api/models"
	"github.com/vortexlabs/cupido-api/utils"
)

// MinScheduleLead is the minimum lead time for a scheduled delivery
const MinScheduleLead = 5 * time.Minute

// DefaultSenderNickname is used when the buyer leaves the nickname blank
const DefaultSenderNickname = "Alguém especial"

// SubmissionRequest is one message payload from the buyer's form
type SubmissionRequest struct {
	RecipientPhone string     `json:"recipient_phone"`
	Message        string     `json:"message"`
	SenderNickname string     `json:"sender_nickname"`
	AudioText      string     `json:"audio_text"`
	ScheduledAt    *time.Time `json:"scheduled_at"`
}

// SubmissionResult reports the outcome of an accepted submission
type SubmissionResult struct {
	Remaining int    `json:"remaining"`
	Status    string `json:"status"` // "sent" or "scheduled"
}

// SubmitMessage runs the submission pipeline: gate check, validation,
// quota claim, persistence, optional audio synthesis, and either immediate
// hand-off to the delivery path or a deferred schedule.
func SubmitMessage(token string, req SubmissionRequest) (*SubmissionResult, error) {
	access, err := ResolveAccess(token)
	if err != nil {
		return nil, err
	}
	if !access.AllowedToSubmit {
		// Quota exhaustion gets its own error so the client can render
		// "all messages already sent" instead of a generic denial.
		if access.Reason == ReasonQuotaExhausted {
			return nil, ErrQuotaExhausted
		}
		return nil, NewAccessDenied(access.Reason)
	}

	order := access.Order
	plan := access.Plan

	// Presentation plans deliver through the slideshow upload, never through
	// direct messages. Accepting one here would burn the only quota slot and
	// leave the order stuck short of a presentation.
	if plan.HasPresentation {
		return nil, NewServiceError(CodeInvalidInput, "plan %s delivers a presentation, not direct messages", plan.Type)
	}
	if !utils.ValidatePhone(req.RecipientPhone) {
		return nil, ErrInvalidPhone
	}
	content := strings.TrimSpace(req.Message)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	audioText := strings.TrimSpace(req.AudioText)
	if audioText != "" {
		if !plan.HasAudio {
			return nil, NewServiceError(CodeInvalidInput, "plan %s does not include audio", plan.Type)
		}
		if len([]rune(audioText)) > plan.AudioCharLimit {
			return nil, NewServiceError(CodeAudioTextTooLong, "narration text exceeds the %d character limit", plan.AudioCharLimit)
		}
	}

	// A schedule that is too soon is rejected outright, never silently
	// downgraded to an immediate send.
	if req.ScheduledAt != nil && time.Until(*req.ScheduledAt) < MinScheduleLead {
		return nil, ErrInvalidSchedule
	}

	nickname := strings.TrimSpace(req.SenderNickname)
	if nickname == "" {
		nickname = DefaultSenderNickname
	}

	message := models.Message{
		OrderID:        order.ID,
		Content:        content,
		SenderNickname: nickname,
		ScheduledAt:    req.ScheduledAt,
	}
	if audioText != "" {
		message.AudioText = &audioText
		message.AudioPending = true
	}

	// The quota claim and the message row commit or roll back together, so
	// a failed insert never leaks a quota slot. The conditional increment in
	// the ledger is the serialization point, and the new count determines
	// this message's index.
	db := config.GetDB()
	var remaining int
	err = db.Transaction(func(tx *gorm.DB) error {
		r, err := recordMessageSubmitted(tx, order.ID)
		if err != nil {
			return err
		}
		remaining = r
		message.MessageIndex = plan.MaxMessages - remaining - 1
		if err := tx.Create(&message).Error; err != nil {
			return fmt.Errorf("failed to persist message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := SetRecipientPhone(order.ID, utils.NormalizePhone(req.RecipientPhone)); err != nil {
		return nil, err
	}

	// Audio synthesis never blocks the submission: a failure degrades the
	// message to text-only delivery. Delivery waits for the synthesis
	// outcome either way, so the recipient never gets the text without the
	// audio that was paid for.
	if audioText != "" {
		go synthesizeNarration(&message, audioText)
	}

	result := &SubmissionResult{Remaining: remaining}
	if req.ScheduledAt != nil {
		result.Status = "scheduled"
	} else {
		result.Status = "sent"
		if audioText == "" && !DeliverMessage(message.ID) {
			// Left undelivered; the scheduler's next scan retries it.
			log.Printf("Immediate delivery of message %d failed, left for scheduler", message.ID)
		}
	}

	if remaining == 0 {
		if err := MarkDelivered(order.ID); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// synthesizeNarration generates the narration audio, attaches the asset key
// to the message, and lifts the delivery hold. Runs detached from the
// request; a synthesis failure is logged and the message degrades to
// text-only. Unscheduled messages are handed off to delivery here, once the
// audio outcome is known.
func synthesizeNarration(message *models.Message, text string) {
	updates := map[string]interface{}{"audio_pending": false}

	key, err := GetTTSService().SynthesizeToStorage(text, message.OrderID, message.MessageIndex)
	if err != nil {
		log.Printf("Audio synthesis failed for message %d, delivering text only: %v", message.ID, err)
	} else {
		updates["audio_key"] = key
		log.Printf("Audio attached to message %d (%s)", message.ID, key)
	}

	db := config.GetDB()
	if err := db.Model(&models.Message{}).
		Where("id = ?", message.ID).
		Updates(updates).Error; err != nil {
		log.Printf("Failed to update audio state of message %d: %v", message.ID, err)
		return
	}

	if message.ScheduledAt == nil {
		if !DeliverMessage(message.ID) {
			log.Printf("Immediate delivery of message %d failed, left for scheduler", message.ID)
		}
	}
}
