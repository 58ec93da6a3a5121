package upstream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/ports"
)

const (
	msgUnreachable  = "Cannot connect to server. Please ensure the billing API is running and reachable."
	msgLoginDefault = "Login failed. Please check your credentials and try again."
	msgFatalServer  = "Server initialization error. Please check:\n" +
		"1. Environment variables are set\n" +
		"2. Database connection is configured\n" +
		"3. Check the billing API logs for details"
	msgServerHint = "\n\nPlease check:\n" +
		"1. Backend is running correctly\n" +
		"2. Database connection is working\n" +
		"3. Environment variables are set\n" +
		"4. Check server logs for details"
)

// errorBody is the loose error envelope the billing API answers with.
type errorBody struct {
	Message          any             `json:"message"`
	Error            any             `json:"error"`
	Errors           []fieldError    `json:"errors"`
	MissingVariables []string        `json:"missingVariables"`
	Troubleshooting  []string        `json:"troubleshooting"`
	Hint             string          `json:"hint"`
	Environment      map[string]bool `json:"environment"`
}

type fieldError struct {
	Msg     string `json:"msg"`
	Message string `json:"message"`
}

func parseErrorBody(raw []byte) errorBody {
	var b errorBody
	_ = json.Unmarshal(raw, &b)
	return b
}

func (b errorBody) message() string {
	s, _ := b.Message.(string)
	return s
}

func (b errorBody) errorText() string {
	s, _ := b.Error.(string)
	return s
}

// extractMessage picks the most specific human text: message, then
// error, then the joined field errors.
func extractMessage(b errorBody) string {
	if m := b.message(); m != "" {
		return m
	}
	if e := b.errorText(); e != "" {
		return e
	}
	if len(b.Errors) > 0 {
		parts := make([]string, 0, len(b.Errors))
		for _, fe := range b.Errors {
			parts = append(parts, orDefault(fe.Msg, fe.Message))
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// loginError shapes a non-2xx login answer into the message shown on the
// login form. Server-provided text is kept verbatim.
func loginError(status int, raw []byte) error {
	b := parseErrorBody(raw)
	msg := b.message()

	var text string
	switch {
	case status == http.StatusServiceUnavailable && strings.Contains(msg, "Database connection"):
		text = databaseDown(b)
	case strings.Contains(msg, "Fatal server error"):
		text = fatalServer(b)
	default:
		text = orDefault(extractMessage(b), msgLoginDefault)
	}

	if status == http.StatusInternalServerError {
		text = "Server error: " + text + msgServerHint
	}

	kind := domain.ErrUpstream
	if status >= 400 && status < 500 {
		kind = domain.ErrInvalidCredentials
	}
	return &ports.APIError{Status: status, Message: text, Err: kind}
}

func databaseDown(b errorBody) string {
	var sb strings.Builder
	sb.WriteString(orDefault(b.message(), "Database connection failed."))
	if len(b.MissingVariables) > 0 {
		sb.WriteString("\n\nMissing environment variables: ")
		sb.WriteString(strings.Join(b.MissingVariables, ", "))
	}
	if len(b.Troubleshooting) > 0 {
		sb.WriteString("\n\nTroubleshooting steps:")
		for i, step := range b.Troubleshooting {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, step)
		}
	}
	if b.Hint != "" {
		sb.WriteString("\n\n")
		sb.WriteString(b.Hint)
	}
	return sb.String()
}

var requiredEnv = []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME", "JWT_SECRET"}

func fatalServer(b errorBody) string {
	text := msgFatalServer
	if e := b.errorText(); e != "" {
		text += "\n\nError: " + e
	}
	if b.Environment != nil {
		var missing []string
		for _, name := range requiredEnv {
			if !b.Environment["has"+name] {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			text += "\n\nMissing environment variables: " + strings.Join(missing, ", ")
		}
	}
	return text
}
