package endpoints

import (
	"fmt"
	"time"
)

// Status is the upstream connection state shown in the status line
type Status int

const (
	StatusChecking Status = iota
	StatusConnected
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("Status(%d)", s)
	}
}

// Label returns the text shown next to the status dot
func (s Status) Label() string {
	switch s {
	case StatusConnected:
		return "연결됨"
	case StatusDisconnected:
		return "연결 실패"
	default:
		return "연결 확인 중..."
	}
}

// StatusChange is delivered to the status listener on every transition.
// Flash is set when a check settled on a different result than the
// previous settled check.
type StatusChange struct {
	From  Status
	To    Status
	Flash bool
}

// NoticeLevel picks the color of a notice
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeSuccess:
		return "success"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// NoticeTTL is how long a notice stays on screen
const NoticeTTL = 3 * time.Second

// FlashDuration is how long the status dot stays highlighted after a change
const FlashDuration = 600 * time.Millisecond

// Notice is a short-lived message about an endpoint operation
type Notice struct {
	Level   NoticeLevel
	Message string
	TTL     time.Duration
}

// URLError rejects a URL before any request is made
type URLError struct {
	Input   string
	Message string
}

func (e *URLError) Error() string {
	return e.Message
}
