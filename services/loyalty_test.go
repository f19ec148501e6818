package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vortexlabs/cupido-api/models"
)

func registerTestUser(t *testing.T, email string) *models.LoyaltyUser {
	t.Helper()

	user, err := RegisterLoyaltyUser("Ana", email, "11987654321", "secret123")
	if err != nil {
		t.Fatalf("Failed to register test user: %v", err)
	}
	return user
}

func TestRegisterLoyaltyUser(t *testing.T) {
	setupServiceTest(t)

	user, err := RegisterLoyaltyUser("Ana", "  Ana@Example.com ", "11987654321", "secret123")
	assert.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, "5511987654321", user.Phone)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	// The email is taken, whatever the casing
	_, err = RegisterLoyaltyUser("Outra", "ANA@example.com", "11987654321", "secret123")
	assertServiceCode(t, err, CodeInvalidInput)
}

func TestLoginLoyaltyUser(t *testing.T) {
	setupServiceTest(t)
	registerTestUser(t, "ana@example.com")

	user, err := LoginLoyaltyUser("ana@example.com", "secret123")
	assert.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)

	_, err = LoginLoyaltyUser("ana@example.com", "wrong")
	assertServiceCode(t, err, CodeUnauthorized)

	// Unknown accounts get the same answer as bad passwords
	_, err = LoginLoyaltyUser("nobody@example.com", "secret123")
	assertServiceCode(t, err, CodeUnauthorized)
}

func TestCreateLoyaltyTest(t *testing.T) {
	db, mocks := setupServiceTest(t)
	user := registerTestUser(t, "ana@example.com")

	test, err := CreateLoyaltyTest(user.ID, "21912345678", "Oi, tudo bem?")
	assert.NoError(t, err)
	assert.Equal(t, models.LoyaltyStatusPending, test.Status)
	assert.Equal(t, "5521912345678", test.TargetPhone)

	// The seed message goes out through the secondary channel number
	sent := mocks.WhatsApp.Sent()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "5521912345678", sent[0].Phone)
		assert.Equal(t, "Oi, tudo bem?", sent[0].Text)
		assert.Equal(t, "loyalty-channel-token", sent[0].Token)
	}

	var seed models.LoyaltyMessage
	assert.NoError(t, db.Where("test_id = ?", test.ID).First(&seed).Error)
	assert.Equal(t, models.DirectionOutbound, seed.Direction)
}

func TestCreateLoyaltyTestValidation(t *testing.T) {
	setupServiceTest(t)

	_, err := CreateLoyaltyTest(1, "12", "Oi")
	assert.ErrorIs(t, err, ErrInvalidPhone)

	_, err = CreateLoyaltyTest(1, "21912345678", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestGetLoyaltyMessagesBlurredWhilePending(t *testing.T) {
	_, mocks := setupServiceTest(t)
	user := registerTestUser(t, "ana@example.com")

	test, err := CreateLoyaltyTest(user.ID, "21912345678", "Oi, tudo bem? Me conta as novidades")
	assert.NoError(t, err)
	mocks.WhatsApp.Clear()

	result, err := GetLoyaltyMessages(test.ID, user.ID)
	assert.NoError(t, err)
	assert.True(t, result.Blurred)
	assert.Equal(t, models.LoyaltyStatusPending, result.TestStatus)

	// Only a short teaser prefix stays readable
	if assert.Len(t, result.Messages, 1) {
		content := result.Messages[0].Content
		assert.True(t, result.Messages[0].Blurred)
		assert.True(t, strings.HasPrefix(content, "Oi,"))
		assert.Contains(t, content, "█")
		assert.NotContains(t, content, "novidades")
	}
}

func TestActivateLoyaltyTestByEmail(t *testing.T) {
	db, _ := setupServiceTest(t)
	user := registerTestUser(t, "ana@example.com")
	test, err := CreateLoyaltyTest(user.ID, "21912345678", "Oi")
	assert.NoError(t, err)

	testID, err := ActivateLoyaltyTestByEmail("Ana@Example.com", "sale-loyalty-1")
	assert.NoError(t, err)
	assert.Equal(t, test.ID, testID)

	var reloaded models.LoyaltyTest
	db.First(&reloaded, test.ID)
	assert.Equal(t, models.LoyaltyStatusActive, reloaded.Status)
	assert.NotNil(t, reloaded.PaidAt)
	if assert.NotNil(t, reloaded.ExpiresAt) {
		assert.WithinDuration(t, reloaded.PaidAt.Add(LoyaltyAccessTTL), *reloaded.ExpiresAt, time.Second)
	}

	// Activation unlocks the chat
	result, err := GetLoyaltyMessages(test.ID, user.ID)
	assert.NoError(t, err)
	assert.False(t, result.Blurred)
	assert.Equal(t, "Oi", result.Messages[0].Content)
}

func TestActivateLoyaltyTestByEmailNoMatch(t *testing.T) {
	setupServiceTest(t)

	_, err := ActivateLoyaltyTestByEmail("nobody@example.com", "sale-1")
	assertServiceCode(t, err, CodeNotFound)

	registerTestUser(t, "ana@example.com")
	_, err = ActivateLoyaltyTestByEmail("ana@example.com", "sale-1")
	assertServiceCode(t, err, CodeNotFound)
}

func TestSendLoyaltyMessage(t *testing.T) {
	db, mocks := setupServiceTest(t)
	user := registerTestUser(t, "ana@example.com")
	test, err := CreateLoyaltyTest(user.ID, "21912345678", "Oi")
	assert.NoError(t, err)

	// Locked while the payment is pending
	err = SendLoyaltyMessage(test.ID, user.ID, "E aí?")
	assert.ErrorIs(t, err, ErrLocked)

	_, err = ActivateLoyaltyTestByEmail("ana@example.com", "sale-1")
	assert.NoError(t, err)
	mocks.WhatsApp.Clear()

	assert.NoError(t, SendLoyaltyMessage(test.ID, user.ID, "E aí?"))

	sent := mocks.WhatsApp.Sent()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "loyalty-channel-token", sent[0].Token)
		assert.Equal(t, "E aí?", sent[0].Text)
	}

	var count int64
	db.Model(&models.LoyaltyMessage{}).Where("test_id = ?", test.ID).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestLoyaltyTestExpiry(t *testing.T) {
	db, _ := setupServiceTest(t)
	user := registerTestUser(t, "ana@example.com")
	test, err := CreateLoyaltyTest(user.ID, "21912345678", "Oi")
	assert.NoError(t, err)
	_, err = ActivateLoyaltyTestByEmail("ana@example.com", "sale-1")
	assert.NoError(t, err)

	// Rewind the access window into the past
	expired := time.Now().Add(-time.Minute)
	db.Model(&models.LoyaltyTest{}).Where("id = ?", test.ID).Update("expires_at", expired)

	// The first read past the window persists the expired status
	result, err := GetLoyaltyMessages(test.ID, user.ID)
	assert.NoError(t, err)
	assert.True(t, result.Blurred)
	assert.Equal(t, models.LoyaltyStatusExpired, result.TestStatus)

	var reloaded models.LoyaltyTest
	db.First(&reloaded, test.ID)
	assert.Equal(t, models.LoyaltyStatusExpired, reloaded.Status)

	err = SendLoyaltyMessage(test.ID, user.ID, "ainda aí?")
	assert.ErrorIs(t, err, ErrLocked)
}

func TestLoyaltyTestOwnership(t *testing.T) {
	setupServiceTest(t)
	owner := registerTestUser(t, "ana@example.com")
	stranger := registerTestUser(t, "bia@example.com")

	test, err := CreateLoyaltyTest(owner.ID, "21912345678", "Oi")
	assert.NoError(t, err)

	_, err = GetLoyaltyMessages(test.ID, stranger.ID)
	assertServiceCode(t, err, CodeAccessDenied)

	err = SendLoyaltyMessage(test.ID, stranger.ID, "oi")
	assertServiceCode(t, err, CodeAccessDenied)

	_, err = GetLoyaltyMessages(9999, owner.ID)
	assertServiceCode(t, err, CodeNotFound)
}

func TestListLoyaltyTests(t *testing.T) {
	setupServiceTest(t)
	user := registerTestUser(t, "ana@example.com")
	other := registerTestUser(t, "bia@example.com")

	_, err := CreateLoyaltyTest(user.ID, "21912345678", "Oi")
	assert.NoError(t, err)
	_, err = CreateLoyaltyTest(user.ID, "21987654321", "Olá")
	assert.NoError(t, err)
	_, err = CreateLoyaltyTest(other.ID, "11911112222", "Hey")
	assert.NoError(t, err)

	tests, err := ListLoyaltyTests(user.ID)
	assert.NoError(t, err)
	assert.Len(t, tests, 2)
	for _, test := range tests {
		assert.Equal(t, user.ID, test.UserID)
	}
}

func TestHandleInboundLoyaltyMessage(t *testing.T) {
	db, mocks := setupServiceTest(t)
	user := registerTestUser(t, "ana@example.com")
	test, err := CreateLoyaltyTest(user.ID, "21912345678", "Oi")
	assert.NoError(t, err)
	mocks.WhatsApp.Clear()

	matched, err := HandleInboundLoyaltyMessage("5521912345678@s.whatsapp.net", "Quem é você?")
	assert.NoError(t, err)
	assert.True(t, matched)

	var inbound models.LoyaltyMessage
	assert.NoError(t, db.Where("test_id = ? AND direction = ?", test.ID, models.DirectionInbound).
		First(&inbound).Error)
	assert.Equal(t, "Quem é você?", inbound.Content)

	// The owner is pinged on the main channel with a teaser, not the chat
	sent := mocks.WhatsApp.Sent()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, user.Phone, sent[0].Phone)
		assert.Equal(t, "", sent[0].Token)
		assert.Contains(t, sent[0].Text, "Quem é você?")
	}
}

func TestHandleInboundLoyaltyMessageNoMatch(t *testing.T) {
	_, mocks := setupServiceTest(t)

	matched, err := HandleInboundLoyaltyMessage("5521999990000", "oi")
	assert.NoError(t, err)
	assert.False(t, matched)
	assert.Equal(t, 0, mocks.WhatsApp.SentCount())
}

func TestBlurContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "short content is fully hidden",
			content: "Oi",
			want:    strings.Repeat("█", 10),
		},
		{
			name:    "longer content keeps a three rune teaser",
			content: "Oi, tudo bem?",
			want:    "Oi," + strings.Repeat("█", 10),
		},
		{
			name:    "mask length is capped",
			content: strings.Repeat("x", 100),
			want:    "xxx" + strings.Repeat("█", 30),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, blurContent(tt.content))
		})
	}
}
