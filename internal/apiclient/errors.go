package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/bytedance/sonic"

	"github.com/muurk/imagegen/internal/protocol"
)

// Messages shown to the user for each normalized failure.
const (
	MsgTimeout = "요청 시간이 초과되었습니다. 잠시 후 다시 시도해주세요."
	MsgNetwork = "서버에 연결할 수 없습니다. 네트워크 연결을 확인해주세요."
	MsgUnknown = "알 수 없는 오류가 발생했습니다."
)

// ErrorType is the normalized category of a failed request
type ErrorType int

const (
	// ErrTypeTimeout means the request did not finish within the client timeout
	ErrTypeTimeout ErrorType = iota
	// ErrTypeNetwork means no HTTP response arrived at all
	ErrTypeNetwork
	// ErrTypeServer means the server answered non-2xx with a detail
	ErrTypeServer
	// ErrTypeUnknown covers everything else
	ErrTypeUnknown
)

// String returns the wire name of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeNetwork:
		return "network"
	case ErrTypeServer:
		return "server_error"
	case ErrTypeUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// NetworkErrorSubtype narrows ErrTypeNetwork for troubleshooting hints
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// ServerErrorKind tags the error_type carried in a server error payload
type ServerErrorKind int

const (
	KindUnrecognized ServerErrorKind = iota
	KindValidation
	KindConnection
	KindAPI
)

// ServerError is the decoded body of a non-2xx response.
// RawType keeps error_type verbatim, including values outside the known kinds.
type ServerError struct {
	Kind            ServerErrorKind
	RawType         string
	Detail          string
	StatusCode      int
	TechnicalDetail string
}

// DecodeServerError decodes an error response body.
// An empty body yields nil. A body that is not a JSON object becomes
// KindUnrecognized with the text as its detail.
func DecodeServerError(body []byte) *ServerError {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return nil
	}

	var payload protocol.ErrorBody
	if err := sonic.Unmarshal([]byte(text), &payload); err != nil {
		return &ServerError{Kind: KindUnrecognized, Detail: text}
	}

	se := &ServerError{
		RawType:         payload.ErrorType,
		Detail:          payload.Detail,
		StatusCode:      payload.StatusCode,
		TechnicalDetail: payload.TechnicalDetail,
	}
	switch payload.ErrorType {
	case protocol.ErrorTypeValidation:
		se.Kind = KindValidation
	case protocol.ErrorTypeConnection:
		se.Kind = KindConnection
	case protocol.ErrorTypeAPI:
		se.Kind = KindAPI
	default:
		se.Kind = KindUnrecognized
	}
	return se
}

// APIError is returned by every Client call that fails
type APIError struct {
	Type           ErrorType           // Normalized category
	Message        string              // User-facing message
	Status         int                 // HTTP status, 0 when no response arrived
	Response       *ServerError        // Decoded error payload, nil if the body was empty
	Err            error               // Underlying error, if any
	NetworkSubtype NetworkErrorSubtype // Only meaningful for ErrTypeNetwork and ErrTypeTimeout
	URL            string              // Request URL
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Type, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *APIError) Unwrap() error {
	return e.Err
}

// ClassifyTransportError maps an error from http.Client.Do onto an APIError.
// Cancellation by the caller is not a network failure and maps to unknown.
func ClassifyTransportError(err error, requestURL string) *APIError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return &APIError{Type: ErrTypeUnknown, Message: MsgUnknown, Err: err, URL: requestURL}
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return &APIError{
			Type:           ErrTypeTimeout,
			Message:        MsgTimeout,
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			URL:            requestURL,
		}
	}

	network := func(subtype NetworkErrorSubtype) *APIError {
		return &APIError{
			Type:           ErrTypeNetwork,
			Message:        MsgNetwork,
			Err:            err,
			NetworkSubtype: subtype,
			URL:            requestURL,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return network(NetworkErrorDNS)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return network(NetworkErrorConnectionRefused)
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return network(NetworkErrorHostUnreachable)
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return network(NetworkErrorNetworkUnreachable)
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && urlErr.Err != err {
		classified := ClassifyTransportError(urlErr.Err, requestURL)
		classified.Err = err
		return classified
	}

	// No response arrived, so anything left is a network failure
	return network(NetworkErrorGeneral)
}

// newStatusError builds the error for a non-2xx response.
func newStatusError(status int, body []byte, requestURL string) *APIError {
	se := DecodeServerError(body)
	if se != nil && se.Detail != "" {
		return &APIError{
			Type:     ErrTypeServer,
			Message:  se.Detail,
			Status:   status,
			Response: se,
			URL:      requestURL,
		}
	}
	return &APIError{
		Type:     ErrTypeUnknown,
		Message:  MsgUnknown,
		Status:   status,
		Response: se,
		URL:      requestURL,
	}
}

// newDecodeError is used when a 2xx body could not be parsed.
func newDecodeError(status int, err error, requestURL string) *APIError {
	return &APIError{
		Type:    ErrTypeUnknown,
		Message: MsgUnknown,
		Status:  status,
		Err:     fmt.Errorf("decode response: %w", err),
		URL:     requestURL,
	}
}

// AsAPIError finds an APIError in err's chain
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsTimeout checks if an error is a request timeout
func IsTimeout(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Type == ErrTypeTimeout
}

// IsNetworkError checks if no response arrived, timeouts included
func IsNetworkError(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && (apiErr.Type == ErrTypeNetwork || apiErr.Type == ErrTypeTimeout)
}

// IsServerError checks if the server answered with an error payload
func IsServerError(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Type == ErrTypeServer
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch apiErr.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The server did not answer in time.",
			"Troubleshooting:",
			"  • Generation can take minutes; raise --timeout",
			"  • Lower the search count",
			"  • Check the upstream with: imagegen status",
		}, "\n")

	case ErrTypeNetwork:
		hint := []string{"Could not reach the imagegen server."}
		switch apiErr.NetworkSubtype {
		case NetworkErrorConnectionRefused:
			hint = append(hint, "Troubleshooting:",
				"  • Start the gateway: imagegen-server serve",
				"  • Verify the port in --server (default 8000)")
		case NetworkErrorDNS:
			hint = append(hint, "Troubleshooting:",
				"  • Use the IP address instead of the hostname",
				"  • Find gateways on the LAN: imagegen discover")
		case NetworkErrorHostUnreachable, NetworkErrorNetworkUnreachable:
			hint = append(hint, "Troubleshooting:",
				"  • Check that you are on the same network as the server",
				"  • Find gateways on the LAN: imagegen discover")
		default:
			hint = append(hint, "Troubleshooting:",
				"  • Check your network connection",
				"  • Verify the --server URL")
		}
		return strings.Join(hint, "\n")

	case ErrTypeServer:
		if apiErr.Response != nil && apiErr.Response.Kind == KindConnection {
			return strings.Join([]string{
				"The gateway could not reach the external image API.",
				"Troubleshooting:",
				"  • List known upstreams: imagegen endpoints",
				"  • Switch upstream: imagegen set-url <url>",
			}, "\n")
		}
		if apiErr.Status >= 500 {
			return fmt.Sprintf("The server failed (HTTP %d). Check the gateway logs.", apiErr.Status)
		}
		return "The server rejected the request. Check the prompt and settings."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return err.Error()
	}
	if apiErr.Status != 0 && apiErr.Type != ErrTypeServer {
		return fmt.Sprintf("%s (HTTP %d)", apiErr.Message, apiErr.Status)
	}
	return apiErr.Message
}
