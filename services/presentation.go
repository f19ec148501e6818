package services

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vortexlabs/cupido-api/config"
	"github.com/vortexlabs/cupido-api/models"
	"github.com/vortexlabs/cupido-api/utils"
)

// Slide image limits for a premium presentation
const (
	MinPresentationImages = 1
	MaxPresentationImages = 10
)

// DefaultPresentationTitle is used when the buyer leaves the title blank
const DefaultPresentationTitle = "Uma história para você"

// PresentationRequest is the premium upload payload (minus the image files)
type PresentationRequest struct {
	RecipientPhone string
	Title          string
	SenderNickname string
	AudioText      string
	Captions       []string // per-slide captions, padded with "" when short
}

// BuildPresentation validates a premium upload, stores the images, persists
// the slideshow, and finalizes the owning order. Premium has no further
// message quota, so the order is delivered as soon as the share link goes
// out.
func BuildPresentation(token string, req PresentationRequest, files []*multipart.FileHeader) (*models.Presentation, error) {
	access, err := ResolveAccess(token)
	if err != nil {
		return nil, err
	}
	if !access.AllowedToSubmit {
		if access.Reason == ReasonQuotaExhausted {
			return nil, ErrQuotaExhausted
		}
		return nil, NewAccessDenied(access.Reason)
	}

	order := access.Order
	plan := access.Plan

	if !plan.HasPresentation {
		return nil, NewServiceError(CodeInvalidInput, "plan %s does not include a presentation", plan.Type)
	}
	if !utils.ValidatePhone(req.RecipientPhone) {
		return nil, ErrInvalidPhone
	}
	if len(files) < MinPresentationImages || len(files) > MaxPresentationImages {
		return nil, NewServiceError(CodeInvalidUpload, "between %d and %d images are required", MinPresentationImages, MaxPresentationImages)
	}
	for _, fileHeader := range files {
		if err := utils.ValidateImageFile(fileHeader); err != nil {
			return nil, NewServiceError(CodeInvalidUpload, "%s: %s", fileHeader.Filename, err.Error())
		}
	}

	audioText := strings.TrimSpace(req.AudioText)
	if audioText != "" && len([]rune(audioText)) > plan.AudioCharLimit {
		return nil, NewServiceError(CodeAudioTextTooLong, "narration text exceeds the %d character limit", plan.AudioCharLimit)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultPresentationTitle
	}
	nickname := strings.TrimSpace(req.SenderNickname)
	if nickname == "" {
		nickname = DefaultSenderNickname
	}

	// Claim the premium order's single quota slot before doing any upload
	// work; a concurrent double-submit loses here, not after the uploads.
	remaining, err := RecordMessageSubmitted(order.ID)
	if err != nil {
		return nil, err
	}

	slides := make([]models.Slide, 0, len(files))
	for i, fileHeader := range files {
		key, err := uploadSlideImage(order.ID, fileHeader)
		if err != nil {
			return nil, err
		}

		caption := ""
		if i < len(req.Captions) {
			caption = req.Captions[i]
		}
		slides = append(slides, models.Slide{
			Position: i,
			ImageKey: key,
			Caption:  caption,
		})
	}

	presentation := models.Presentation{
		ID:      uuid.NewString(),
		OrderID: order.ID,
		Title:   title,
		Slides:  slides,
	}

	db := config.GetDB()
	if err := db.Create(&presentation).Error; err != nil {
		return nil, fmt.Errorf("failed to persist presentation: %w", err)
	}

	if err := SetRecipientPhone(order.ID, utils.NormalizePhone(req.RecipientPhone)); err != nil {
		return nil, err
	}

	// Record the send as a message row; the share link below is its
	// delivery, so it never enters the scheduler's scan.
	message := models.Message{
		OrderID:        order.ID,
		MessageIndex:   plan.MaxMessages - remaining - 1,
		Content:        title,
		SenderNickname: nickname,
		Delivered:      true,
	}
	if err := db.Create(&message).Error; err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	if audioText != "" {
		go synthesizePresentationAudio(presentation.ID, order.ID, audioText)
	}

	shareURL := fmt.Sprintf("%s/p/%s", config.GetConfig().AppBaseURL, presentation.ID)
	text := fmt.Sprintf(
		"💘 *Mensagem Anônima do Cupido*\n\nAlguém especial preparou algo muito especial pra você!\n\nAbra o link abaixo para ver:\n\n👉 %s\n\n💌 Feito com amor!",
		shareURL,
	)
	recipient := utils.NormalizePhone(req.RecipientPhone)
	if err := GetWhatsAppService().SendText(recipient, text); err != nil {
		log.Printf("Failed to send presentation link for order %d: %v", order.ID, err)
	}

	if err := MarkDelivered(order.ID); err != nil {
		return nil, err
	}

	log.Printf("Presentation %s created for order %d (%d slides)", presentation.ID, order.ID, len(slides))
	return &presentation, nil
}

// GetPresentation fetches a presentation for the public viewer, counting the
// view. Every fetch increments the counter; there is no per-viewer
// deduplication.
func GetPresentation(id string) (*models.Presentation, error) {
	db := config.GetDB()

	result := db.Model(&models.Presentation{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, NewServiceError(CodeNotFound, "presentation not found")
	}

	var presentation models.Presentation
	if err := db.Preload("Slides", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&presentation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewServiceError(CodeNotFound, "presentation not found")
		}
		return nil, err
	}

	s3 := GetS3Service()
	for i := range presentation.Slides {
		url, err := s3.GetPresignedURL(presentation.Slides[i].ImageKey)
		if err != nil {
			log.Printf("Failed to presign slide image %s: %v", presentation.Slides[i].ImageKey, err)
			continue
		}
		presentation.Slides[i].ImageURL = url
	}
	if presentation.AudioKey != nil {
		presentation.AudioURL = s3.PublicURL(*presentation.AudioKey)
	}

	return &presentation, nil
}

func uploadSlideImage(orderID uint, fileHeader *multipart.FileHeader) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("warning: failed to close upload: %v", closeErr)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	key := fmt.Sprintf("presentations/%d/%s.%s", orderID, uuid.NewString(), utils.ImageExtension(fileHeader.Filename))
	if err := GetS3Service().UploadBytes(key, content, utils.ImageContentType(fileHeader.Filename)); err != nil {
		return "", err
	}

	return key, nil
}

// synthesizePresentationAudio generates the optional narration track and
// attaches it to the presentation. Failures degrade to a silent slideshow.
func synthesizePresentationAudio(presentationID string, orderID uint, text string) {
	key, err := GetTTSService().SynthesizeToStorage(text, orderID, 0)
	if err != nil {
		log.Printf("Narration synthesis failed for presentation %s: %v", presentationID, err)
		return
	}

	db := config.GetDB()
	if err := db.Model(&models.Presentation{}).
		Where("id = ?", presentationID).
		Update("audio_key", key).Error; err != nil {
		log.Printf("Failed to attach narration to presentation %s: %v", presentationID, err)
	}
}
