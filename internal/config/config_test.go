package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:       AppConfig{Env: "local", Port: 8080},
		DB:        DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "voiceagent"},
		Model:     ModelConfig{Name: "llama-3.3-70b-versatile"},
		Dashboard: DashboardConfig{Secret: "secret", TokenTTL: time.Hour},
		Voice: VoiceConfig{
			HoursStart:        "09:00",
			HoursEnd:          "17:00",
			Timezone:          "America/New_York",
			StaleCallMaxAge:   15 * time.Minute,
			ReaperInterval:    time.Minute,
			MaxCallsPerOrigin: 3,
		},
	}
}

func TestValidate_AcceptsMinimalLocalConfig(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_EmptyConfigReportsErrors(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequirements(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	// Production must be explicit about SSL mode and have a model key.
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE and MODEL_API_KEY")
	}
	c.DB.SSLMode = "require"
	c.Model.APIKey = "k"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid production config, got %v", err)
	}
}

func TestValidate_RejectsMalformedBusinessHours(t *testing.T) {
	for _, tc := range []struct{ start, end, tz string }{
		{"9am", "17:00", "America/New_York"},
		{"09:00", "17:00", "Nowhere/Nope"},
		{"17:00", "09:00", "America/New_York"},
	} {
		c := validConfig()
		c.Voice.HoursStart = tc.start
		c.Voice.HoursEnd = tc.end
		c.Voice.Timezone = tc.tz
		if err := c.Validate(); err == nil {
			t.Errorf("expected error for hours %s-%s %s", tc.start, tc.end, tc.tz)
		}
	}
}

func TestRuntime_UpdateVoiceValidatesBeforeApplying(t *testing.T) {
	rt, err := NewRuntime(validConfig().Voice)
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}

	bad := "26:00"
	if _, err := rt.UpdateVoice(VoiceUpdate{HoursStart: &bad}); err == nil {
		t.Fatalf("expected error for invalid start time")
	}
	if got := rt.Voice().Window.Start.String(); got != "09:00" {
		t.Fatalf("failed update must not apply, start = %s", got)
	}

	newStart, sales := "08:30", "+15550009999"
	next, err := rt.UpdateVoice(VoiceUpdate{HoursStart: &newStart, SalesNumber: &sales})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if next.Window.Start.String() != "08:30" || next.SalesNumber != sales {
		t.Fatalf("update not applied: %+v", next)
	}
	if rt.Voice().SupportNumber != "" {
		t.Fatalf("untouched field changed")
	}
}
