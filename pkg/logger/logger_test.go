package logger

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func newLogServer(t *testing.T) (*httptest.Server, func() []LogsSchema) {
	var mu sync.Mutex
	var received []LogsSchema
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Failed to read request body: %v", err)
			return
		}
		var schema LogsSchema
		if err := json.Unmarshal(body, &schema); err != nil {
			t.Errorf("Failed to unmarshal logs payload: %v", err)
			return
		}
		mu.Lock()
		received = append(received, schema)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	return server, func() []LogsSchema {
		mu.Lock()
		defer mu.Unlock()
		out := make([]LogsSchema, len(received))
		copy(out, received)
		return out
	}
}

func TestHTTPWriterFlushesOnCapacity(t *testing.T) {
	server, getReceived := newLogServer(t)
	defer server.Close()

	writer := NewHTTPWriter()
	writer.URL = server.URL
	writer.Capacity = 2
	defer writer.Close()

	for i := 0; i < 2; i++ {
		logLine := `{"level":"info","timestamp":"2024-01-01T00:00:00.000Z","message":"test message"}`
		n, err := writer.Write([]byte(logLine))
		if err != nil {
			t.Errorf("HTTPWriter.Write failed: %v", err)
		}
		if n != len(logLine) {
			t.Errorf("Expected %d bytes written, got %d", len(logLine), n)
		}
	}

	// Give the HTTP request time to complete
	time.Sleep(100 * time.Millisecond)

	received := getReceived()
	if len(received) != 1 {
		t.Fatalf("Expected 1 flush, got %d", len(received))
	}
	if len(received[0].Logs) != 2 {
		t.Errorf("Expected 2 log records in flush, got %d", len(received[0].Logs))
	}
	if received[0].Logs[0].Message != "test message" {
		t.Errorf("Expected message 'test message', got '%s'", received[0].Logs[0].Message)
	}
}

func TestHTTPWriterConvertsLevels(t *testing.T) {
	server, getReceived := newLogServer(t)
	defer server.Close()

	writer := NewHTTPWriter()
	writer.URL = server.URL
	writer.Capacity = 1
	defer writer.Close()

	writer.Write([]byte(`{"level":"warn","message":"something looks off"}`))
	time.Sleep(100 * time.Millisecond)

	received := getReceived()
	if len(received) != 1 || len(received[0].Logs) != 1 {
		t.Fatalf("Expected a single flushed record, got %v", received)
	}
	record := received[0].Logs[0]
	if record.Level != "warning" {
		t.Errorf("Expected level 'warning', got '%s'", record.Level)
	}
	if record.Timestamp == "" {
		t.Error("Expected a timestamp to be filled in")
	}
}

func TestHTTPWriterMasksSecrets(t *testing.T) {
	server, getReceived := newLogServer(t)
	defer server.Close()

	writer := NewHTTPWriter()
	writer.URL = server.URL
	writer.Capacity = 1
	defer writer.Close()

	writer.Write([]byte(`{"level":"info","message":"connecting with AKIA1234567890ABCDEF"}`))
	time.Sleep(100 * time.Millisecond)

	received := getReceived()
	if len(received) != 1 || len(received[0].Logs) != 1 {
		t.Fatalf("Expected a single flushed record, got %v", received)
	}
	message := received[0].Logs[0].Message
	if strings.Contains(message, "AKIA1234567890ABCDEF") {
		t.Errorf("Expected AWS key to be masked, got '%s'", message)
	}
	if !strings.Contains(message, "[REDACTED]") {
		t.Errorf("Expected a [REDACTED] marker, got '%s'", message)
	}
}

func TestHTTPWriterSurvivesEndpointFailure(t *testing.T) {
	writer := NewHTTPWriter()
	writer.URL = "http://127.0.0.1:0/logs"
	writer.Capacity = 1
	defer writer.Close()

	_, err := writer.Write([]byte(`{"level":"error","message":"endpoint is down"}`))
	if err != nil {
		t.Errorf("Write should not propagate delivery failures, got %v", err)
	}
}

func TestConvertLogLevelToPortLogLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected string
		wantErr  bool
	}{
		{"debug", "debug", false},
		{"INFO", "info", false},
		{"warn", "warning", false},
		{"error", "error", false},
		{"fatal", "fatal", false},
		{"verbose", "", true},
	}

	for _, tt := range tests {
		got, err := convertLogLevelToPortLogLevel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("convertLogLevelToPortLogLevel(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("convertLogLevelToPortLogLevel(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.expected {
			t.Errorf("convertLogLevelToPortLogLevel(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}
