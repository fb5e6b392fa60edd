// Package events carries real-time dashboard notifications from the Telegram
// listeners to every connected WebSocket session.
package events

import "time"

const (
	TypeSystem   = "system"
	TypeStatus   = "status"
	TypeError    = "error"
	TypeReceived = "file_received"
	TypeProgress = "download_progress"
	TypePong     = "pong"
)

// Event is a single dashboard notification. Fields are a union over all
// event types; unused ones are omitted from the JSON payload.
type Event struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	Status    string `json:"status,omitempty"`
	Details   string `json:"details,omitempty"`
	Error     string `json:"error,omitempty"`
	Username  string `json:"username,omitempty"`
	Filename  string `json:"filename,omitempty"`
	FileType  string `json:"file_type,omitempty"`
	FileSize  int64  `json:"file_size,omitempty"`
	Current   int64  `json:"current_bytes,omitempty"`
	Total     int64  `json:"total_bytes,omitempty"`
	Pct       int    `json:"pct"`
	Done      bool   `json:"done,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func stamp(e Event) Event {
	e.Timestamp = time.Now().UnixMilli()
	return e
}

func Welcome() Event {
	return stamp(Event{Type: TypeSystem, Message: "Connected to Telegram Dashboard"})
}

func Pong() Event {
	return stamp(Event{Type: TypePong, Message: "Server received your message"})
}

func Status(status, details string) Event {
	return stamp(Event{Type: TypeStatus, Status: status, Details: details})
}

func Error(msg string) Event {
	return stamp(Event{Type: TypeError, Error: msg})
}

func FileReceived(username, filename, fileType string, size int64) Event {
	return stamp(Event{
		Type:     TypeReceived,
		Username: username,
		Filename: filename,
		FileType: fileType,
		FileSize: size,
	})
}

func Progress(filename string, current, total int64, pct int, done bool) Event {
	return stamp(Event{
		Type:     TypeProgress,
		Filename: filename,
		Current:  current,
		Total:    total,
		Pct:      pct,
		Done:     done,
	})
}
