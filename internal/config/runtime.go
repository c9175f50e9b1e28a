package config

import (
	"sync"

	"github.com/gpresearch2025/ai-voice-agent/internal/hours"
)

// VoiceSettings is the snapshot of call-flow settings the controller
// reads on every webhook. Department numbers are explicit optionals:
// empty string means the department is not offered.
type VoiceSettings struct {
	Window        hours.Window
	SalesNumber   string
	SupportNumber string
}

// Runtime holds the mutable subset of configuration the dashboard can
// change while the process is running. Reads vastly outnumber writes.
type Runtime struct {
	mu    sync.RWMutex
	voice VoiceSettings
}

// NewRuntime builds the runtime settings from validated startup config.
func NewRuntime(v VoiceConfig) (*Runtime, error) {
	w, err := hours.NewWindow(v.HoursStart, v.HoursEnd, v.Timezone)
	if err != nil {
		return nil, err
	}
	return &Runtime{voice: VoiceSettings{
		Window:        w,
		SalesNumber:   v.SalesNumber,
		SupportNumber: v.SupportNumber,
	}}, nil
}

// Voice returns the current settings snapshot.
func (r *Runtime) Voice() VoiceSettings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.voice
}

// VoiceUpdate is a partial update; nil fields are left unchanged.
type VoiceUpdate struct {
	HoursStart    *string
	HoursEnd      *string
	Timezone      *string
	SalesNumber   *string
	SupportNumber *string
}

// UpdateVoice validates and applies a partial update, returning the new
// snapshot. A failed validation leaves the current settings untouched.
func (r *Runtime) UpdateVoice(u VoiceUpdate) (VoiceSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.voice
	start := next.Window.Start.String()
	end := next.Window.End.String()
	tz := next.Window.TZName
	if u.HoursStart != nil {
		start = *u.HoursStart
	}
	if u.HoursEnd != nil {
		end = *u.HoursEnd
	}
	if u.Timezone != nil {
		tz = *u.Timezone
	}
	w, err := hours.NewWindow(start, end, tz)
	if err != nil {
		return VoiceSettings{}, err
	}
	next.Window = w

	if u.SalesNumber != nil {
		next.SalesNumber = *u.SalesNumber
	}
	if u.SupportNumber != nil {
		next.SupportNumber = *u.SupportNumber
	}

	r.voice = next
	return next, nil
}
