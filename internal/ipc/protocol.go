package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/unitydialog/internal/dialog"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload      CommandType = "RELOAD"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandListParents CommandType = "LIST_PARENTS"
	CommandCheck       CommandType = "CHECK"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	DaemonRunning     bool  `json:"daemon_running"`
	UptimeSeconds     int64 `json:"uptime_seconds"`
	Windows           int   `json:"windows"`
	Parents           int   `json:"parents"`
	Transients        int   `json:"transients"`
	SwitchingViewport bool  `json:"switching_viewport"`
	FadeTimeMS        int   `json:"fade_time_ms"`
}

// ParentsData represents the data returned by LIST_PARENTS
type ParentsData struct {
	Parents []dialog.ParentInfo `json:"parents"`
}

// CheckData lists link inconsistencies found by CHECK. An empty list means
// the relationship graph is sound.
type CheckData struct {
	Problems []string `json:"problems"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data any) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
