package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestLoggerWritesJSONEntries(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.log(LevelInfo, "user_login", nil, map[string]interface{}{"ip": "127.0.0.1"}, nil)

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log line, got %q: %v", buf.String(), err)
	}
	if entry.Level != LevelInfo {
		t.Fatalf("expected level info, got %s", entry.Level)
	}
	if entry.Action != "user_login" {
		t.Fatalf("expected action user_login, got %s", entry.Action)
	}
	if entry.Details["ip"] != "127.0.0.1" {
		t.Fatalf("expected ip detail, got %v", entry.Details)
	}
}

func TestLoggerIncludesUserAndError(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	userID := "user-123"

	l.log(LevelError, "group_create_failed", &userID, nil, errors.New("boom"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed decoding log line: %v", err)
	}
	if entry.UserID == nil || *entry.UserID != userID {
		t.Fatalf("expected user id %q, got %v", userID, entry.UserID)
	}
	if entry.Error != "boom" {
		t.Fatalf("expected error field, got %q", entry.Error)
	}
}

func TestRedactSensitiveFields(t *testing.T) {
	payload := map[string]interface{}{
		"username": "alice",
		"password": "hunter2",
		"fileUrl":  "https://drive.example/abc",
	}

	redactSensitiveFields(payload)

	if payload["username"] != "alice" {
		t.Fatalf("expected username untouched, got %v", payload["username"])
	}
	if payload["password"] != "[REDACTED]" {
		t.Fatalf("expected password redacted, got %v", payload["password"])
	}
	if payload["fileUrl"] != "[REDACTED]" {
		t.Fatalf("expected fileUrl redacted, got %v", payload["fileUrl"])
	}
}
