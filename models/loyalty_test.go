package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoyaltyTestIsActive(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name      string
		status    string
		expiresAt *time.Time
		want      bool
	}{
		{"active within window", LoyaltyStatusActive, &future, true},
		{"active past window", LoyaltyStatusActive, &past, false},
		{"active without window", LoyaltyStatusActive, nil, false},
		{"pending", LoyaltyStatusPending, &future, false},
		{"expired", LoyaltyStatusExpired, &future, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test := LoyaltyTest{Status: tt.status, ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, test.IsActive(now))
		})
	}
}
