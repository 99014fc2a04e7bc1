package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "configuration",
			err:  &ConfigurationError{Missing: []string{"CLOUDFLARE_ZONE_ID", "NETLIFY_SITE_ID"}},
			want: "CLOUDFLARE_ZONE_ID, NETLIFY_SITE_ID is not set",
		},
		{
			name: "validation",
			err:  &ValidationError{Reason: "missing business name"},
			want: "missing business name",
		},
		{
			name: "provider",
			err:  &ProviderError{Op: "create record", Message: "[9005] content for CNAME record is invalid"},
			want: "dns provider error during create record: [9005] content for CNAME record is invalid",
		},
		{
			name: "record store",
			err:  &RecordStoreError{Op: "list pending", Message: "INVALID_PERMISSIONS"},
			want: "record store error during list pending: INVALID_PERMISSIONS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestConfigWriteErrorUnwraps(t *testing.T) {
	cause := errors.New("HTTP 502: bad gateway")
	err := fmt.Errorf("row failed: %w", &ConfigWriteError{Key: "BUSINESS_NAME_joes", Attempts: 3, Err: cause})

	var cwe *ConfigWriteError
	assert.True(t, errors.As(err, &cwe))
	assert.Equal(t, "BUSINESS_NAME_joes", cwe.Key)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestPublicDropsInternalFields(t *testing.T) {
	rec := BusinessRecord{
		ID:          "rec123",
		Name:        "Joe's Plumbing",
		Address:     "1 Main St",
		Phone:       "555-0100",
		MapsURL:     "https://www.google.com/maps?q=1",
		Subdomain:   "joe-s-plumbing.example.com",
		Provisioned: true,
	}

	assert.Equal(t, LookupResponse{
		BusinessName: "Joe's Plumbing",
		Address:      "1 Main St",
		Phone:        "555-0100",
		MapsURL:      "https://www.google.com/maps?q=1",
	}, rec.Public())
}
