package history

import (
	"fmt"
	"testing"

	"github.com/restbench/restbench/internal/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(":memory:")
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func sampleEntry(requestID string, status int) types.HistoryEntry {
	return types.HistoryEntry{
		RequestID:    requestID,
		CollectionID: "col-1",
		RequestName:  "get user",
		Method:       "GET",
		URL:          "https://api.example.com/users/1",
		Headers:      map[string]string{"Accept": "application/json"},
		Body:         `{"q":"{{term}}"}`,
		QueryParams: []types.QueryParam{
			{Key: "verbose", Value: "1", Enabled: true},
		},
		ResponseStatus: status,
		ResponseText:   "200 OK",
		ResponseHeader: map[string]string{"Content-Type": "application/json"},
		ResponseBody:   `{"id":1}`,
		ResponseTimeMs: 42,
	}
}

func TestRecordAndList(t *testing.T) {
	m := newTestManager(t)

	if err := m.Record(sampleEntry("req-1", 200)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := m.List(0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	got := entries[0]
	if got.RequestID != "req-1" || got.Method != "GET" {
		t.Errorf("Unexpected entry %+v", got)
	}
	if got.Headers["Accept"] != "application/json" {
		t.Errorf("Headers did not round-trip: %v", got.Headers)
	}
	if got.Body != `{"q":"{{term}}"}` {
		t.Errorf("Pre-resolution body must be stored verbatim, got %q", got.Body)
	}
	if len(got.QueryParams) != 1 || got.QueryParams[0].Key != "verbose" {
		t.Errorf("Query params did not round-trip: %v", got.QueryParams)
	}
	if got.ResponseTimeMs != 42 {
		t.Errorf("Expected response time 42, got %d", got.ResponseTimeMs)
	}
	if got.Timestamp == "" {
		t.Error("Expected a defaulted timestamp")
	}
}

func TestRecord_FailedDispatch(t *testing.T) {
	m := newTestManager(t)

	entry := sampleEntry("req-err", 0)
	entry.ResponseText = "Network Error"
	entry.ResponseBody = ""
	entry.Error = "dial tcp: connection refused"
	if err := m.Record(entry); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := m.List(0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if entries[0].ResponseStatus != 0 {
		t.Errorf("Expected status 0 for failures, got %d", entries[0].ResponseStatus)
	}
	if entries[0].Error != "dial tcp: connection refused" {
		t.Errorf("Error message lost: %q", entries[0].Error)
	}
}

func TestList_LimitAndOrder(t *testing.T) {
	m := newTestManager(t)

	for i := 0; i < 5; i++ {
		entry := sampleEntry(fmt.Sprintf("req-%d", i), 200)
		entry.Timestamp = fmt.Sprintf("2026-08-30 10:00:0%d", i)
		if err := m.Record(entry); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := m.List(2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].RequestID != "req-4" || entries[1].RequestID != "req-3" {
		t.Errorf("Expected newest first, got %s then %s", entries[0].RequestID, entries[1].RequestID)
	}
}

func TestListForRequest(t *testing.T) {
	m := newTestManager(t)

	for _, id := range []string{"a", "b", "a", "a"} {
		if err := m.Record(sampleEntry(id, 200)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := m.ListForRequest("a")
	if err != nil {
		t.Fatalf("ListForRequest failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 entries for request a, got %d", len(entries))
	}
	for _, e := range entries {
		if e.RequestID != "a" {
			t.Errorf("Foreign entry leaked in: %+v", e)
		}
	}
}

func TestCountClearDelete(t *testing.T) {
	m := newTestManager(t)

	for i := 0; i < 3; i++ {
		if err := m.Record(sampleEntry("req", 200)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	count, err := m.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("Expected 3, got %d", count)
	}

	entries, _ := m.List(1)
	if err := m.Delete(entries[0].ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if count, _ = m.Count(); count != 2 {
		t.Errorf("Expected 2 after delete, got %d", count)
	}

	if err := m.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if count, _ = m.Count(); count != 0 {
		t.Errorf("Expected empty history after clear, got %d", count)
	}
}

func TestList_Empty(t *testing.T) {
	m := newTestManager(t)

	entries, err := m.List(0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}
