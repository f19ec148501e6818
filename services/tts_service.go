package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appConfig "github.com/vortexlabs/cupido-api/config"
)

// TTSInterface synthesizes narration audio and stores it in the blob store.
// Returns the blob key of the uploaded MP3.
type TTSInterface interface {
	SynthesizeToStorage(text string, orderID uint, messageIndex int) (string, error)
}

// ElevenLabsService implements TTSInterface via the Eleven Labs API
type ElevenLabsService struct {
	apiKey     string
	voiceID    string
	modelID    string
	httpClient *http.Client
}

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

var ttsServiceInstance TTSInterface

// InitTTSService initializes the text-to-speech service from configuration
func InitTTSService() TTSInterface {
	cfg := appConfig.GetConfig()
	ttsServiceInstance = &ElevenLabsService{
		apiKey:  cfg.ElevenLabsAPIKey,
		voiceID: cfg.ElevenLabsVoiceID,
		modelID: cfg.ElevenLabsModelID,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	return ttsServiceInstance
}

// GetTTSService returns the initialized text-to-speech service instance
func GetTTSService() TTSInterface {
	return ttsServiceInstance
}

// SetTTSService sets the text-to-speech service instance (primarily for testing)
func SetTTSService(service TTSInterface) {
	ttsServiceInstance = service
}

// SynthesizeToStorage generates MP3 audio from text and uploads it to the
// blob store under audio/{orderID}_{messageIndex}.mp3
func (s *ElevenLabsService) SynthesizeToStorage(text string, orderID uint, messageIndex int) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("ELEVENLABS_API_KEY not configured")
	}

	audio, err := s.generate(text)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("audio/%d_%d.mp3", orderID, messageIndex)
	if err := GetS3Service().UploadBytes(key, audio, "audio/mpeg"); err != nil {
		return "", fmt.Errorf("failed to store audio: %w", err)
	}

	return key, nil
}

func (s *ElevenLabsService) generate(text string) ([]byte, error) {
	payload := map[string]interface{}{
		"text":     text,
		"model_id": s.modelID,
		"voice_settings": map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", elevenLabsBaseURL, s.voiceID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts service returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio response: %w", err)
	}

	return audio, nil
}
