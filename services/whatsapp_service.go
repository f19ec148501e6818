package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	appConfig "github.com/vortexlabs/cupido-api/config"
)

// WhatsAppInterface is the outbound messaging channel. SendTextAs sends
// through a secondary number identified by its own API token (used by the
// loyalty-test feature); an empty token falls back to the default number.
type WhatsAppInterface interface {
	SendText(phone, text string) error
	SendTextAs(phone, text, token string) error
	SendAudio(phone, audioURL string) error
}

// WhatsAppService sends messages through the UAZAPI HTTP gateway
type WhatsAppService struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var whatsAppServiceInstance WhatsAppInterface

// InitWhatsAppService initializes the WhatsApp service from configuration
func InitWhatsAppService() WhatsAppInterface {
	cfg := appConfig.GetConfig()
	whatsAppServiceInstance = &WhatsAppService{
		baseURL: cfg.WhatsAppBaseURL,
		token:   cfg.WhatsAppToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	return whatsAppServiceInstance
}

// GetWhatsAppService returns the initialized WhatsApp service instance
func GetWhatsAppService() WhatsAppInterface {
	return whatsAppServiceInstance
}

// SetWhatsAppService sets the WhatsApp service instance (primarily for testing)
func SetWhatsAppService(service WhatsAppInterface) {
	whatsAppServiceInstance = service
}

// SendText sends a text message from the default number
func (s *WhatsAppService) SendText(phone, text string) error {
	return s.SendTextAs(phone, text, "")
}

// SendTextAs sends a text message, optionally from a secondary number
func (s *WhatsAppService) SendTextAs(phone, text, token string) error {
	payload := map[string]interface{}{
		"number":       phone,
		"text":         text,
		"track_source": "cupido",
	}
	return s.post("/send/text", payload, token)
}

// SendAudio sends an audio message referenced by URL
func (s *WhatsAppService) SendAudio(phone, audioURL string) error {
	payload := map[string]interface{}{
		"number":       phone,
		"media_url":    audioURL,
		"media_type":   "audio",
		"track_source": "cupido",
	}
	return s.post("/send/media", payload, "")
}

func (s *WhatsAppService) post(path string, payload map[string]interface{}, token string) error {
	if token == "" {
		token = s.token
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("token", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp gateway returned status %d", resp.StatusCode)
	}

	return nil
}
