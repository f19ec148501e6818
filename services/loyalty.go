package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/vortexlabs/cupido-api/config"
	"github.com/vortexlabs/cupido-api/models"
	"github.com/vortexlabs/cupido-api/utils"
)

// LoyaltyAccessTTL is how long chat access stays unlocked after payment
const LoyaltyAccessTTL = 48 * time.Hour

// blur mask sizing for locked chat content
const (
	blurVisiblePrefix = 3
	blurMaxGlyphs     = 30
)

// RegisterLoyaltyUser creates a loyalty-test account
func RegisterLoyaltyUser(name, email, phone, password string) (*models.LoyaltyUser, error) {
	db := config.GetDB()

	email = strings.ToLower(strings.TrimSpace(email))

	var existing models.LoyaltyUser
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, NewServiceError(CodeInvalidInput, "email is already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.LoyaltyUser{
		Name:         strings.TrimSpace(name),
		Email:        email,
		Phone:        utils.NormalizePhone(phone),
		PasswordHash: string(hash),
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	log.Printf("Loyalty user registered: %s", email)
	return &user, nil
}

// LoginLoyaltyUser checks credentials and returns the account
func LoginLoyaltyUser(email, password string) (*models.LoyaltyUser, error) {
	db := config.GetDB()

	var user models.LoyaltyUser
	err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewServiceError(CodeUnauthorized, "incorrect email or password")
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, NewServiceError(CodeUnauthorized, "incorrect email or password")
	}

	return &user, nil
}

// CreateLoyaltyTest creates a pending test and sends the seed message to the
// target through the secondary channel number.
func CreateLoyaltyTest(userID uint, targetPhone, firstMessage string) (*models.LoyaltyTest, error) {
	if !utils.ValidatePhone(targetPhone) {
		return nil, ErrInvalidPhone
	}
	firstMessage = strings.TrimSpace(firstMessage)
	if firstMessage == "" {
		return nil, ErrEmptyMessage
	}

	db := config.GetDB()
	test := models.LoyaltyTest{
		UserID:       userID,
		TargetPhone:  utils.NormalizePhone(targetPhone),
		FirstMessage: firstMessage,
		Status:       models.LoyaltyStatusPending,
	}
	if err := db.Create(&test).Error; err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	cfg := config.GetConfig()
	if err := GetWhatsAppService().SendTextAs(test.TargetPhone, firstMessage, cfg.LoyaltyWhatsAppToken); err != nil {
		log.Printf("Failed to send seed message for test %d: %v", test.ID, err)
	}

	seed := models.LoyaltyMessage{
		TestID:    test.ID,
		Direction: models.DirectionOutbound,
		Content:   firstMessage,
	}
	if err := db.Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("failed to record seed message: %w", err)
	}

	log.Printf("Loyalty test %d created (target %s)", test.ID, utils.MaskPhone(test.TargetPhone))
	return &test, nil
}

// ListLoyaltyTests returns the user's tests, newest first, refreshing any
// whose access window has elapsed.
func ListLoyaltyTests(userID uint) ([]models.LoyaltyTest, error) {
	db := config.GetDB()

	var tests []models.LoyaltyTest
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tests).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	for i := range tests {
		refreshTestStatus(&tests[i], now)
	}
	return tests, nil
}

// LoyaltyMessagesResult is the chat read payload: the full history plus the
// blurred/unblurred verdict for this moment in time.
type LoyaltyMessagesResult struct {
	Messages   []models.LoyaltyMessage `json:"messages"`
	Blurred    bool                    `json:"blurred"`
	TestStatus string                  `json:"test_status"`
	ExpiresAt  *time.Time              `json:"expires_at,omitempty"`
}

// GetLoyaltyMessages returns a test's chat history. Expiry is observed at
// read time: the first read past expires_at persists the expired status and
// the content comes back blurred.
func GetLoyaltyMessages(testID, userID uint) (*LoyaltyMessagesResult, error) {
	test, err := getOwnedTest(testID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	refreshTestStatus(test, now)
	blurred := !test.IsActive(now)

	db := config.GetDB()
	var messages []models.LoyaltyMessage
	if err := db.Where("test_id = ?", testID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}

	for i := range messages {
		messages[i].Blurred = blurred
		if blurred {
			messages[i].Content = blurContent(messages[i].Content)
		}
	}

	return &LoyaltyMessagesResult{
		Messages:   messages,
		Blurred:    blurred,
		TestStatus: test.Status,
		ExpiresAt:  test.ExpiresAt,
	}, nil
}

// SendLoyaltyMessage sends a chat message to the target. Only permitted
// while the test is unlocked.
func SendLoyaltyMessage(testID, userID uint, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}

	test, err := getOwnedTest(testID, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	refreshTestStatus(test, now)
	if !test.IsActive(now) {
		return ErrLocked
	}

	cfg := config.GetConfig()
	if err := GetWhatsAppService().SendTextAs(test.TargetPhone, content, cfg.LoyaltyWhatsAppToken); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	db := config.GetDB()
	message := models.LoyaltyMessage{
		TestID:    testID,
		Direction: models.DirectionOutbound,
		Content:   content,
	}
	if err := db.Create(&message).Error; err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}

	return nil
}

// ActivateLoyaltyTestByEmail unlocks the buyer's most recent pending test
// when their payment is confirmed. Returns the activated test ID.
func ActivateLoyaltyTestByEmail(email, saleID string) (uint, error) {
	db := config.GetDB()

	var user models.LoyaltyUser
	err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, NewServiceError(CodeNotFound, "no account found for %s", email)
		}
		return 0, err
	}

	var test models.LoyaltyTest
	err = db.Where("user_id = ? AND status = ?", user.ID, models.LoyaltyStatusPending).
		Order("created_at DESC").
		First(&test).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, NewServiceError(CodeNotFound, "no pending test for user %d", user.ID)
		}
		return 0, err
	}

	now := time.Now()
	expires := now.Add(LoyaltyAccessTTL)
	updates := map[string]interface{}{
		"status":     models.LoyaltyStatusActive,
		"paid_at":    now,
		"expires_at": expires,
	}
	if saleID != "" {
		updates["sale_id"] = saleID
	}

	// Guarded on pending so a retried webhook cannot re-stamp the window
	result := db.Model(&models.LoyaltyTest{}).
		Where("id = ? AND status = ?", test.ID, models.LoyaltyStatusPending).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}

	log.Printf("Loyalty test %d activated (sale %s)", test.ID, saleID)
	return test.ID, nil
}

// HandleInboundLoyaltyMessage records a reply from the target and notifies
// the test owner. Returns false when no test matches the sender.
func HandleInboundLoyaltyMessage(senderPhone, content string) (bool, error) {
	db := config.GetDB()

	phone := utils.NormalizePhone(senderPhone)
	var test models.LoyaltyTest
	err := db.Where("target_phone = ? AND status IN ?", phone,
		[]string{models.LoyaltyStatusPending, models.LoyaltyStatusActive}).
		Order("created_at DESC").
		First(&test).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("No loyalty test found for phone %s", utils.MaskPhone(phone))
			return false, nil
		}
		return false, err
	}

	message := models.LoyaltyMessage{
		TestID:    test.ID,
		Direction: models.DirectionInbound,
		Content:   content,
	}
	if err := db.Create(&message).Error; err != nil {
		return false, fmt.Errorf("failed to record inbound message: %w", err)
	}

	notifyTestOwner(&test, content)
	return true, nil
}

// notifyTestOwner pings the test owner on the main channel when the target
// replies. The message itself stays behind the paywall; only a short
// preview leaks.
func notifyTestOwner(test *models.LoyaltyTest, content string) {
	db := config.GetDB()

	var user models.LoyaltyUser
	if err := db.First(&user, test.UserID).Error; err != nil {
		log.Printf("Failed to load owner of test %d: %v", test.ID, err)
		return
	}

	preview := content
	if len([]rune(preview)) > 50 {
		preview = string([]rune(preview)[:50]) + "..."
	}

	chatURL := fmt.Sprintf("%s/loyalty/chat/%d", config.GetConfig().AppBaseURL, test.ID)
	notification := fmt.Sprintf(
		"🔔 *Teste de Fidelidade*\n\nO número %s respondeu!\n\n💬 _%s_\n\nAcesse o chat para ver:\n👉 %s",
		utils.MaskPhone(test.TargetPhone), preview, chatURL,
	)

	if err := GetWhatsAppService().SendText(user.Phone, notification); err != nil {
		log.Printf("Failed to notify owner of test %d: %v", test.ID, err)
	}
}

// getOwnedTest loads a test, enforcing ownership
func getOwnedTest(testID, userID uint) (*models.LoyaltyTest, error) {
	db := config.GetDB()

	var test models.LoyaltyTest
	if err := db.First(&test, testID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewServiceError(CodeNotFound, "test not found")
		}
		return nil, err
	}
	if test.UserID != userID {
		return nil, NewAccessDenied("test belongs to another account")
	}
	return &test, nil
}

// refreshTestStatus persists the expired status the first time a test is
// observed past its access window. Status is derived from the timestamps;
// the stored column is only a cache of this function's output.
func refreshTestStatus(test *models.LoyaltyTest, now time.Time) {
	if test.Status != models.LoyaltyStatusActive {
		return
	}
	if test.ExpiresAt != nil && now.Before(*test.ExpiresAt) {
		return
	}

	db := config.GetDB()
	if err := db.Model(&models.LoyaltyTest{}).
		Where("id = ? AND status = ?", test.ID, models.LoyaltyStatusActive).
		Update("status", models.LoyaltyStatusExpired).Error; err != nil {
		log.Printf("Failed to expire test %d: %v", test.ID, err)
		return
	}
	test.Status = models.LoyaltyStatusExpired
	log.Printf("Loyalty test %d expired", test.ID)
}

// blurContent hides chat content while the test is locked, leaving a short
// readable prefix as a teaser.
func blurContent(content string) string {
	runes := []rune(content)
	if len(runes) <= blurVisiblePrefix {
		return strings.Repeat("█", 10)
	}
	hidden := len(runes) - blurVisiblePrefix
	if hidden > blurMaxGlyphs {
		hidden = blurMaxGlyphs
	}
	return string(runes[:blurVisiblePrefix]) + strings.Repeat("█", hidden)
}
