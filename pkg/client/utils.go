package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/llm-d-incubation/qsizer/pkg/analyzer"
	"github.com/llm-d-incubation/qsizer/pkg/core"
	"github.com/llm-d-incubation/qsizer/pkg/solver"
)

// APIError is a failed call, as reported by the server
type APIError struct {
	Status  int    // HTTP status code
	Type    string // error type reported by the server, if any
	Message string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Is maps the reported error type back to the local sentinel errors
func (e *APIError) Is(target error) bool {
	switch e.Type {
	case "invalid_configuration":
		return target == analyzer.ErrInvalidConfiguration
	case "missing_variance":
		return target == analyzer.ErrMissingVariance
	case "unstable_system":
		return target == analyzer.ErrUnstableSystem
	case "target_unreachable":
		return target == analyzer.ErrTargetUnreachable
	case "infeasible_problem":
		return target == solver.ErrInfeasibleProblem
	case "cyclic_topology":
		return target == core.ErrCyclicTopology
	}
	return false
}

// body of a failed call
type errorBody struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Error     string `json:"error"`     // set by partial network reports
	ErrorType string `json:"errorType"` // set by partial network reports
}

// send a POST with a JSON body to the server and decode the JSON response.
// A failed call whose body still decodes as T (partial results) returns both.
func post[T any](ctx context.Context, c *Client, verb string, body any) (*T, error) {
	endPoint := c.URL + "/" + verb
	byteValue, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endPoint, bytes.NewBuffer(byteValue))
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode == http.StatusOK {
		var result T
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("decoding %s response: %w", verb, err)
		}
		return &result, nil
	}

	apiErr := &APIError{Status: res.StatusCode, Message: res.Status}
	var eb errorBody
	if json.Unmarshal(data, &eb) != nil {
		return nil, apiErr
	}
	switch {
	case eb.Message != "":
		apiErr.Type = eb.Type
		apiErr.Message = eb.Message
		return nil, apiErr
	case eb.Error != "":
		// partial network report
		apiErr.Message = eb.Error
		apiErr.Type = eb.ErrorType
		var partial T
		if err := json.Unmarshal(data, &partial); err != nil {
			return nil, apiErr
		}
		return &partial, apiErr
	}
	return nil, apiErr
}
