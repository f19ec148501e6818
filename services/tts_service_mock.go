package services

import (
	"errors"
	"fmt"
	"sync"
)

// MockTTSService is a mock implementation of TTSInterface for testing
type MockTTSService struct {
	synthesized []string      // narration texts, in call order
	shouldFail  bool
	gate        chan struct{} // non-nil while Block is in effect
	mu          sync.Mutex
}

// NewMockTTSService creates a new mock text-to-speech service
func NewMockTTSService() *MockTTSService {
	return &MockTTSService{}
}

// SetAsMockForTesting sets this mock as the global TTS service instance for testing
func (m *MockTTSService) SetAsMockForTesting() {
	SetTTSService(m)
}

// SetShouldFail makes synthesis calls fail
func (m *MockTTSService) SetShouldFail(fail bool) {
	m.mu.Lock()
	m.shouldFail = fail
	m.mu.Unlock()
}

// Block makes synthesis calls wait until Unblock
func (m *MockTTSService) Block() {
	m.mu.Lock()
	if m.gate == nil {
		m.gate = make(chan struct{})
	}
	m.mu.Unlock()
}

// Unblock releases synthesis calls held by Block. Safe to call repeatedly.
func (m *MockTTSService) Unblock() {
	m.mu.Lock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
	m.mu.Unlock()
}

// SynthesizeToStorage simulates audio synthesis and upload
func (m *MockTTSService) SynthesizeToStorage(text string, orderID uint, messageIndex int) (string, error) {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFail {
		return "", errors.New("mock tts failure")
	}

	m.synthesized = append(m.synthesized, text)
	return fmt.Sprintf("audio/%d_%d.mp3", orderID, messageIndex), nil
}

// Synthesized returns a copy of all narration texts seen
func (m *MockTTSService) Synthesized() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.synthesized))
	copy(out, m.synthesized)
	return out
}

// Clear resets the mock state and releases any held synthesis calls
func (m *MockTTSService) Clear() {
	m.mu.Lock()
	m.synthesized = nil
	m.shouldFail = false
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
	m.mu.Unlock()
}
