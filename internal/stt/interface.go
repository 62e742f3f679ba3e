// Package stt adapts third-party speech-recognition APIs to a single Provider interface.
package stt

import "context"

// Audio is the input handed to a provider
type Audio struct {
	Data     []byte
	MimeType string
	Filename string
}

// Provider defines the interface for speech-to-text providers
type Provider interface {
	// Transcribe recognizes speech in audio. Errors are *apperr.Error with
	// KindProvider or KindEmptyResult.
	Transcribe(ctx context.Context, audio Audio) (*Result, error)

	// Name returns the name of the provider (e.g., "deepgram", "google")
	Name() string
}
