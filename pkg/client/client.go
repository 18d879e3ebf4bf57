package client

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/llm-d-incubation/qsizer/pkg/config"
	"github.com/llm-d-incubation/qsizer/pkg/rest"
)

// Client of a qsizer REST server
type Client struct {
	URL        string
	httpClient *http.Client
}

// NewClient creates a client for the server given by the environment
func NewClient() *Client {
	url := os.Getenv(ServerURLEnvName)
	if url == "" {
		url = "http://" + rest.Address()
	}
	return NewClientForURL(url)
}

func NewClientForURL(url string) *Client {
	return &Client{
		URL:        strings.TrimSuffix(url, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Evaluate a single queue remotely
func (c *Client) Evaluate(ctx context.Context, spec *config.QueueSpec) (*config.QueueResult, error) {
	return post[config.QueueResult](ctx, c, rest.EvaluateVerb, spec)
}

// Sweep the arrival rate of a queue remotely
func (c *Client) Sweep(ctx context.Context, spec *config.SweepSpec) (*config.SweepResult, error) {
	return post[config.SweepResult](ctx, c, rest.SweepVerb, spec)
}

// Optimize an edge/cloud sizing problem remotely
func (c *Client) Optimize(ctx context.Context, data *config.OptimizerData) (*config.OptimizerResult, error) {
	return post[config.OptimizerResult](ctx, c, rest.OptimizeVerb, data)
}

// Network propagates a processing network remotely. When a node fails, the partial
// report is returned together with the error.
func (c *Client) Network(ctx context.Context, spec *config.NetworkSpec) (*config.NetworkReport, error) {
	return post[config.NetworkReport](ctx, c, rest.NetworkVerb, spec)
}

// Healthy checks that the server is up
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL+"/"+rest.HealthVerb, nil)
	if err != nil {
		return err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return &APIError{Status: res.StatusCode, Message: res.Status}
	}
	return nil
}
