package chaincase

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBodySize = 64 * 1024

var (
	ErrMalformedResponse    = fmt.Errorf("malformed backend response")
	ErrMalformedTransaction = fmt.Errorf("malformed mempool transaction")
)

// RequestError is returned whenever the backend answers with an unexpected
// status code.
type RequestError struct {
	StatusCode int    `json:"-"`
	Status     string `json:"-"`
	Message    string `json:"message"`
}

func (e *RequestError) Error() string {
	if len(e.Message) > 0 {
		return fmt.Sprintf("backend request failed with status %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend request failed with status %s", e.Status)
}

// newRequestError reads the body of the given response and turns it into a
// RequestError. The backend can reply with a json string, a json object with
// a message field or plain text.
func newRequestError(resp *http.Response) *RequestError {
	reqErr := &RequestError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}
	if len(reqErr.Status) <= 0 {
		reqErr.Status = fmt.Sprintf(
			"%d %s", resp.StatusCode, http.StatusText(resp.StatusCode),
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil || len(body) <= 0 {
		return reqErr
	}

	var msg string
	if err := json.Unmarshal(body, &msg); err == nil {
		reqErr.Message = msg
		return reqErr
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &obj); err == nil && len(obj.Message) > 0 {
		reqErr.Message = obj.Message
		return reqErr
	}
	reqErr.Message = strings.TrimSpace(string(body))
	return reqErr
}
