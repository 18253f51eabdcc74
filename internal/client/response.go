package client

import (
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/directus-client/internal/http"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
)

// handleResponse translates a failed result into a typed error and otherwise
// decodes the "data" member of the body into target. target may be nil.
func handleResponse(resp *http.Response, target interface{}) error {
	if !resp.Success {
		return resourceError(resp)
	}

	if target == nil {
		return nil
	}

	if resp.Body == nil {
		return fmt.Errorf("%w: empty body with status %d", directus.ErrUnexpectedResponsePayload, resp.StatusCode)
	}

	var envelope directus.DataEnvelope[json.RawMessage]

	err := json.Unmarshal(resp.Body, &envelope)
	if err != nil {
		return &directus.ResponseDecodeError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if len(envelope.Data) == 0 {
		return fmt.Errorf("%w: missing data member", directus.ErrUnexpectedResponsePayload)
	}

	err = json.Unmarshal(envelope.Data, target)
	if err != nil {
		return &directus.ResponseDecodeError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	return nil
}

func resourceError(resp *http.Response) error {
	if resp.DecodeError != nil {
		return resp.DecodeError
	}

	envelope, ok := directus.ParseErrorEnvelope(resp.Body)
	if !ok {
		return &directus.ResourceError{
			StatusCode: resp.StatusCode,
			Err:        directus.ErrMissingErrorEnvelope,
		}
	}

	return &directus.ResourceError{
		StatusCode: resp.StatusCode,
		Errors:     envelope.Errors,
	}
}
