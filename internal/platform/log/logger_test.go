package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLoggerDefaultsToJSONAtInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(Options{Output: &buf})
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}

	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", logger.GetLevel())
	}

	logger.WithField("volume_id", "abc").Info("volume created")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "volume created" || entry["volume_id"] != "abc" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}

func TestNewLoggerTextFormatAndLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(Options{Level: "DEBUG", Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}

	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger.Debug("listing news")
	if !strings.Contains(buf.String(), "msg=\"listing news\"") {
		t.Fatalf("expected text formatted output, got %q", buf.String())
	}
}

func TestNewLoggerRejectsUnknownSettings(t *testing.T) {
	t.Parallel()

	if _, err := NewLogger(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}

	if _, err := NewLogger(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestInitSentryDisabledWithoutDSN(t *testing.T) {
	t.Parallel()

	hub, flush, err := InitSentry(logrus.New(), SentrySettings{})
	if err != nil {
		t.Fatalf("InitSentry returned error: %v", err)
	}
	if hub != nil {
		t.Fatalf("expected nil hub without DSN")
	}
	flush()

	Capture(context.Background(), nil, errString("ignored"))
}

type errString string

func (e errString) Error() string { return string(e) }
