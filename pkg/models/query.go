package models

import (
	"encoding/json"
	"time"
)

// DurationMs is a duration that crosses the wire as whole milliseconds,
// matching the _ms suffix of the fields that carry it.
type DurationMs time.Duration

func (d DurationMs) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).Milliseconds())
}

func (d *DurationMs) UnmarshalJSON(data []byte) error {
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	*d = DurationMs(time.Duration(ms) * time.Millisecond)
	return nil
}

// QueryResult holds the shaped output of one executed SQL statement. It is
// transient: it lives in the HTTP response and, on success, inside the
// cache entry payload.
type QueryResult struct {
	SQLQuery      string           `json:"sql_query"`
	RowsReturned  int              `json:"rows_returned"`
	Data          []map[string]any `json:"data"`
	ExecutionTime DurationMs       `json:"execution_time_ms"`
	Success       bool             `json:"success"`
	ErrorDetail   string           `json:"error,omitempty"`
}
