package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hxlyu/allweather/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.Config
		wantLevel zerolog.Level
	}{
		{
			name:      "debug level",
			cfg:       &config.Config{Env: "development", LogLevel: "debug", LogFormat: "json"},
			wantLevel: zerolog.DebugLevel,
		},
		{
			name:      "info level",
			cfg:       &config.Config{Env: "production", LogLevel: "info", LogFormat: "json"},
			wantLevel: zerolog.InfoLevel,
		},
		{
			name:      "warn level",
			cfg:       &config.Config{Env: "staging", LogLevel: "warn", LogFormat: "json"},
			wantLevel: zerolog.WarnLevel,
		},
		{
			name:      "unknown level falls back to info",
			cfg:       &config.Config{Env: "development", LogLevel: "loud", LogFormat: "json"},
			wantLevel: zerolog.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(tt.cfg)
			if log == nil {
				t.Fatal("New() returned nil")
			}
			if got := zerolog.GlobalLevel(); got != tt.wantLevel {
				t.Errorf("global level = %v, want %v", got, tt.wantLevel)
			}
		})
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug")

	log.WithFields(map[string]interface{}{
		"asset": "510300.SH",
		"rows":  42,
	}).Info("loaded series")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}

	if entry["asset"] != "510300.SH" {
		t.Errorf("asset field = %v, want 510300.SH", entry["asset"])
	}
	if entry["message"] != "loaded series" {
		t.Errorf("message = %v", entry["message"])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug")

	log.WithError(errors.New("factor table empty")).Error("adjustment failed")

	if !strings.Contains(buf.String(), "factor table empty") {
		t.Errorf("error field missing from output: %s", buf.String())
	}
}
