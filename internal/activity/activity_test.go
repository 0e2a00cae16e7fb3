// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package activity

import (
	"testing"
	"time"
)

// =============================================================================
// TIMESTAMP TESTS
// =============================================================================

func TestParseTimestampValid(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return fixed }

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", "2025-03-10T08:30:00Z", time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)},
		{"rfc3339 nano", "2025-03-10T08:30:00.123456789Z", time.Date(2025, 3, 10, 8, 30, 0, 123456789, time.UTC)},
		{"offset", "2025-03-10T08:30:00+02:00", time.Date(2025, 3, 10, 8, 30, 0, 0, time.FixedZone("", 2*3600))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamp(tt.raw, now)
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseTimestampFallsBackToNow(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return fixed }

	for _, raw := range []string{"", "not-a-date", "2025-13-99T99:99:99Z", "1718000000"} {
		got := ParseTimestamp(raw, now)
		if !got.Equal(fixed) {
			t.Errorf("ParseTimestamp(%q) = %v, want fallback %v", raw, got, fixed)
		}
	}
}

func TestParseTimestampNilNow(t *testing.T) {
	before := time.Now()
	got := ParseTimestamp("garbage", nil)
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("ParseTimestamp with nil now clock returned %v, want wall clock time", got)
	}
}

// =============================================================================
// ENVELOPE TESTS
// =============================================================================

func TestNewActivity(t *testing.T) {
	act := New(SenderUser, "hello")

	if act.ID == "" {
		t.Error("New did not assign an ID")
	}
	if !act.IsFromUser() {
		t.Error("activity from SenderUser should report IsFromUser")
	}
	if act.Type != TypeMessage {
		t.Errorf("expected message type, got %q", act.Type)
	}
	if _, err := time.Parse(time.RFC3339Nano, act.Timestamp); err != nil {
		t.Errorf("New produced unparseable timestamp %q: %v", act.Timestamp, err)
	}
}

func TestIsFromUserBotSender(t *testing.T) {
	act := New("copilot-bot", "hi")
	if act.IsFromUser() {
		t.Error("bot sender should not report IsFromUser")
	}
}

func TestIsStreaming(t *testing.T) {
	act := New("bot", "partial")
	if act.IsStreaming() {
		t.Error("activity without StreamID should not be streaming")
	}
	act.StreamID = "stream-1"
	if !act.IsStreaming() {
		t.Error("activity with StreamID should be streaming")
	}
}

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateID()
		if seen[id] {
			t.Fatalf("GenerateID produced duplicate %q", id)
		}
		seen[id] = true
	}
}
