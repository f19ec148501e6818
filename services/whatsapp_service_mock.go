package services

import (
	"errors"
	"sync"
)

// SentMessage records one outbound message for test assertions
type SentMessage struct {
	Phone    string
	Text     string
	AudioURL string
	Token    string
}

// MockWhatsAppService is a mock implementation of WhatsAppInterface for testing
type MockWhatsAppService struct {
	sent     []SentMessage
	failures int // number of upcoming sends that should fail
	mu       sync.Mutex
}

// NewMockWhatsAppService creates a new mock WhatsApp service
func NewMockWhatsAppService() *MockWhatsAppService {
	return &MockWhatsAppService{}
}

// SetAsMockForTesting sets this mock as the global WhatsApp service instance for testing
func (m *MockWhatsAppService) SetAsMockForTesting() {
	SetWhatsAppService(m)
}

// FailNext makes the next n sends fail
func (m *MockWhatsAppService) FailNext(n int) {
	m.mu.Lock()
	m.failures = n
	m.mu.Unlock()
}

func (m *MockWhatsAppService) maybeFail() error {
	if m.failures > 0 {
		m.failures--
		return errors.New("mock whatsapp send failure")
	}
	return nil
}

// SendText simulates sending a text message
func (m *MockWhatsAppService) SendText(phone, text string) error {
	return m.SendTextAs(phone, text, "")
}

// SendTextAs simulates sending a text message from a secondary number
func (m *MockWhatsAppService) SendTextAs(phone, text, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.maybeFail(); err != nil {
		return err
	}
	m.sent = append(m.sent, SentMessage{Phone: phone, Text: text, Token: token})
	return nil
}

// SendAudio simulates sending an audio message
func (m *MockWhatsAppService) SendAudio(phone, audioURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.maybeFail(); err != nil {
		return err
	}
	m.sent = append(m.sent, SentMessage{Phone: phone, AudioURL: audioURL})
	return nil
}

// Sent returns a copy of all recorded messages
func (m *MockWhatsAppService) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentCount returns the number of recorded messages
func (m *MockWhatsAppService) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// Clear removes all recorded messages
func (m *MockWhatsAppService) Clear() {
	m.mu.Lock()
	m.sent = nil
	m.failures = 0
	m.mu.Unlock()
}
