package model

import (
	"fmt"
	"strings"
)

// ConfigurationError names every required configuration value that is missing.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not set", strings.Join(e.Missing, ", "))
}

// ValidationError means a source row cannot be provisioned as is.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ProviderError is a failed DNS/CDN call.
type ProviderError struct {
	Op      string
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("dns provider error during %s: %s", e.Op, e.Message)
}

// ConfigWriteError is a site-config write that still failed on the last attempt.
type ConfigWriteError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *ConfigWriteError) Error() string {
	return fmt.Sprintf("failed to set site config %s after %d attempts: %v", e.Key, e.Attempts, e.Err)
}

func (e *ConfigWriteError) Unwrap() error {
	return e.Err
}

// RecordStoreError is a failed record-store call.
type RecordStoreError struct {
	Op      string
	Message string
}

func (e *RecordStoreError) Error() string {
	return fmt.Sprintf("record store error during %s: %s", e.Op, e.Message)
}
