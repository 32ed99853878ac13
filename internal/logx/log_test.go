package logx_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gaspardpetit/webmap3d-bridge/internal/logx"
)

func TestConfigureLogLevel(t *testing.T) {
	defer logx.Configure("info")
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"all", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"WARNING", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"none", zerolog.Disabled},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		logx.Configure(tt.in)
		if zerolog.GlobalLevel() != tt.want {
			t.Fatalf("Configure(%q) level = %s; want %s", tt.in, zerolog.GlobalLevel(), tt.want)
		}
	}
}

func TestComponentField(t *testing.T) {
	prev := logx.Log
	defer func() { logx.Log = prev }()
	var buf bytes.Buffer
	logx.Log = zerolog.New(&buf)
	l := logx.Component("bridge")
	l.Info().Msg("hello")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["component"] != "bridge" || rec["message"] != "hello" {
		t.Fatalf("unexpected record %v", rec)
	}
}
