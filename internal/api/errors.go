package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Operation names a backend call.
type Operation string

const (
	OpSignup          Operation = "signup"
	OpLogin           Operation = "login"
	OpCreateWard      Operation = "create ward"
	OpGetWard         Operation = "get ward"
	OpListWards       Operation = "list wards"
	OpUpdateDiagnosis Operation = "update diagnosis"
	OpUploadAudio     Operation = "upload audio"
	OpGetRecord       Operation = "get record"
	OpListRecords     Operation = "list records"
	OpLatestRecord    Operation = "latest record"
	OpCreateReport    Operation = "create report"
	OpGetReport       Operation = "get report"
	OpReportByRecord  Operation = "get report by record"
	OpReportsByWard   Operation = "list reports by ward"
	OpUpdateReport    Operation = "update report"
	OpDeleteReport    Operation = "delete report"
	OpRecentReports   Operation = "recent reports"
)

var cannedMessages = map[Operation]string{
	OpSignup:          "guardian signup failed",
	OpLogin:           "login failed",
	OpCreateWard:      "ward registration failed",
	OpGetWard:         "could not load ward",
	OpListWards:       "could not load ward list",
	OpUpdateDiagnosis: "self-diagnosis update failed",
	OpUploadAudio:     "audio upload failed",
	OpGetRecord:       "could not load audio record",
	OpListRecords:     "could not load audio records",
	OpLatestRecord:    "could not load latest audio record",
	OpCreateReport:    "report creation failed",
	OpGetReport:       "could not load report",
	OpReportByRecord:  "could not load report",
	OpReportsByWard:   "could not load reports",
	OpUpdateReport:    "report update failed",
	OpDeleteReport:    "report deletion failed",
	OpRecentReports:   "could not load reports",
}

// Kind classifies a failure.
type Kind string

const (
	KindHTTP    Kind = "http"    // non-2xx response
	KindNetwork Kind = "network" // DNS, refused, timeout, abort
	KindDecode  Kind = "decode"  // 2xx with an unusable body
	KindEncode  Kind = "encode"  // request could not be built
)

// ErrNoID is wrapped when a success response carries no usable identifier.
var ErrNoID = errors.New("response carried no identifier")

// Error is the single failure type returned by Client.
type Error struct {
	Op            Operation
	Kind          Kind
	StatusCode    int
	ServerMessage string
	Err           error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("api: ")
	sb.WriteString(string(e.Op))
	sb.WriteString(": ")
	switch e.Kind {
	case KindHTTP:
		fmt.Fprintf(&sb, "HTTP %d", e.StatusCode)
		if e.ServerMessage != "" {
			sb.WriteString(": ")
			sb.WriteString(e.ServerMessage)
		}
	default:
		sb.WriteString(string(e.Kind))
		if e.Err != nil {
			sb.WriteString(": ")
			sb.WriteString(e.Err.Error())
		}
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the user-facing text: the server's own message when it sent
// one, otherwise a canned description of the failed operation.
func (e *Error) Message() string {
	if e.ServerMessage != "" {
		return e.ServerMessage
	}
	canned, ok := cannedMessages[e.Op]
	if !ok {
		canned = string(e.Op) + " failed"
	}
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("%s (%d)", canned, e.StatusCode)
	case KindNetwork:
		return canned + ": network error"
	default:
		return canned
	}
}

// IsNotFound reports whether err is an HTTP 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindHTTP && apiErr.StatusCode == 404
}

// UserMessage extracts a displayable message from any error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}

func newHTTPError(op Operation, status int, contentType string, body []byte) *Error {
	return &Error{
		Op:            op,
		Kind:          KindHTTP,
		StatusCode:    status,
		ServerMessage: serverMessage(contentType, body),
	}
}

func decodeError(op Operation, err error) *Error {
	return &Error{Op: op, Kind: KindDecode, Err: err}
}

// serverMessage pulls a human message out of an error body: the JSON
// "message" (or string "error") field, or the <title> of an HTML page.
func serverMessage(contentType string, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	if trimmed[0] == '{' {
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &payload); err == nil {
			for _, key := range []string{"message", "error"} {
				var s string
				if raw, ok := payload[key]; ok && json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
		return ""
	}

	if strings.Contains(contentType, "html") || trimmed[0] == '<' {
		return htmlTitle(trimmed)
	}
	return ""
}

func htmlTitle(body []byte) string {
	z := html.NewTokenizer(bytes.NewReader(body))
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := z.TagName()
			inTitle = atom.Lookup(name) == atom.Title
		case html.TextToken:
			if inTitle {
				return strings.Join(strings.Fields(string(z.Text())), " ")
			}
		case html.EndTagToken:
			inTitle = false
		}
	}
}
