package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/restbench/restbench/internal/types"
)

// Recorder persists immutable execution records. The engine treats
// recording as fire-and-forget: implementations may fail, callers log and
// move on.
type Recorder interface {
	Record(entry types.HistoryEntry) error
}

// Manager is the SQLite-backed Recorder.
type Manager struct {
	db *sql.DB
}

// NewManager opens (and initializes) the history database at dbPath.
// Use ":memory:" for throwaway databases in tests.
func NewManager(dbPath string) (*Manager, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	m := &Manager{db: db}
	if err := m.initSchema(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		request_id TEXT,
		collection_id TEXT,
		request_name TEXT,
		method TEXT NOT NULL,
		url TEXT NOT NULL,
		headers TEXT NOT NULL,
		request_body TEXT,
		query_params TEXT,
		response_status INTEGER NOT NULL,
		response_status_text TEXT,
		response_headers TEXT NOT NULL,
		response_body TEXT,
		response_time_ms INTEGER NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_history_request_id ON history(request_id);
	CREATE INDEX IF NOT EXISTS idx_history_collection_id ON history(collection_id);
	`

	if _, err := m.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return nil
}

// Record appends an execution record. Existing entries are never updated or
// deleted by this path.
func (m *Manager) Record(entry types.HistoryEntry) error {
	headersJSON, err := json.Marshal(entry.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}

	responseHeadersJSON, err := json.Marshal(entry.ResponseHeader)
	if err != nil {
		return fmt.Errorf("failed to marshal response headers: %w", err)
	}

	queryParamsJSON, err := json.Marshal(entry.QueryParams)
	if err != nil {
		return fmt.Errorf("failed to marshal query params: %w", err)
	}

	timestamp := entry.Timestamp
	if timestamp == "" {
		timestamp = time.Now().Local().Format("2006-01-02 15:04:05")
	}

	query := `
		INSERT INTO history (
			timestamp, request_id, collection_id, request_name, method, url,
			headers, request_body, query_params,
			response_status, response_status_text, response_headers, response_body,
			response_time_ms, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = m.db.Exec(query,
		timestamp,
		entry.RequestID,
		entry.CollectionID,
		entry.RequestName,
		entry.Method,
		entry.URL,
		string(headersJSON),
		entry.Body,
		string(queryParamsJSON),
		entry.ResponseStatus,
		entry.ResponseText,
		string(responseHeadersJSON),
		entry.ResponseBody,
		entry.ResponseTimeMs,
		entry.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}

	return nil
}

// List returns the most recent entries, newest first. limit <= 0 means all.
func (m *Manager) List(limit int) ([]types.HistoryEntry, error) {
	query := `
		SELECT id, timestamp, request_id, collection_id, request_name, method, url,
		       headers, request_body, query_params,
		       response_status, response_status_text, response_headers, response_body,
		       response_time_ms, error
		FROM history
		ORDER BY timestamp DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	return m.scanEntries(rows)
}

// ListForRequest returns entries recorded for one saved request, newest first.
func (m *Manager) ListForRequest(requestID string) ([]types.HistoryEntry, error) {
	query := `
		SELECT id, timestamp, request_id, collection_id, request_name, method, url,
		       headers, request_body, query_params,
		       response_status, response_status_text, response_headers, response_body,
		       response_time_ms, error
		FROM history
		WHERE request_id = ?
		ORDER BY timestamp DESC, id DESC
	`

	rows, err := m.db.Query(query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for request: %w", err)
	}
	defer rows.Close()

	return m.scanEntries(rows)
}

func (m *Manager) scanEntries(rows *sql.Rows) ([]types.HistoryEntry, error) {
	var entries []types.HistoryEntry

	for rows.Next() {
		var entry types.HistoryEntry
		var requestID, collectionID, requestName sql.NullString
		var requestBody, queryParamsJSON sql.NullString
		var statusText, responseBody, errorMsg sql.NullString
		var headersJSON, responseHeadersJSON string

		err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&requestID,
			&collectionID,
			&requestName,
			&entry.Method,
			&entry.URL,
			&headersJSON,
			&requestBody,
			&queryParamsJSON,
			&entry.ResponseStatus,
			&statusText,
			&responseHeadersJSON,
			&responseBody,
			&entry.ResponseTimeMs,
			&errorMsg,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		entry.RequestID = requestID.String
		entry.CollectionID = collectionID.String
		entry.RequestName = requestName.String
		entry.Body = requestBody.String
		entry.ResponseText = statusText.String
		entry.ResponseBody = responseBody.String
		entry.Error = errorMsg.String

		if err := json.Unmarshal([]byte(headersJSON), &entry.Headers); err != nil {
			entry.Headers = map[string]string{}
		}
		if err := json.Unmarshal([]byte(responseHeadersJSON), &entry.ResponseHeader); err != nil {
			entry.ResponseHeader = map[string]string{}
		}
		if queryParamsJSON.Valid && queryParamsJSON.String != "" {
			if err := json.Unmarshal([]byte(queryParamsJSON.String), &entry.QueryParams); err != nil {
				entry.QueryParams = nil
			}
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Delete removes a single entry by id. Maintenance path, not used by the
// engine itself.
func (m *Manager) Delete(id int64) error {
	if _, err := m.db.Exec("DELETE FROM history WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (m *Manager) Clear() error {
	if _, err := m.db.Exec("DELETE FROM history"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Count returns the number of stored entries.
func (m *Manager) Count() (int, error) {
	var count int
	if err := m.db.QueryRow("SELECT COUNT(*) FROM history").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get history count: %w", err)
	}
	return count, nil
}

func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
