package volsdk

import (
	"fmt"

	"github.com/imroc/req/v3"
)

// APIError is a non-2xx response from the files API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
}

// handleAPIError collapses transport errors and API error responses into a
// single error value, preserving the cause via wrapping.
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s: %w", operation, requestErr)
	}

	// got a response, but the api returned an error
	if resp.IsErrorState() {
		return fmt.Errorf("%s: %w", operation, &APIError{
			StatusCode: resp.GetStatusCode(),
			Body:       resp.String(),
		})
	}

	return nil
}
