// Package runner submits code to a remote execution service and polls for
// the result. The service is an opaque collaborator: one POST yields a
// token, repeated GETs on the token yield a status that eventually turns
// terminal. Payload fields travel base64-encoded in both directions.
package runner

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Terminal status identifiers reported by the execution service.
const (
	StatusInQueue      = 1
	StatusProcessing   = 2
	StatusAccepted     = 3
	StatusTimeLimit    = 5
	StatusCompileError = 6
)

// Submission is one execution request.
type Submission struct {
	LanguageID int
	SourceCode string
	Stdin      string
}

// Status is the service's judgement of a submission.
type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Result is a decoded execution outcome. Output fields are already
// base64-decoded.
type Result struct {
	Status        Status
	Stdout        string
	Stderr        string
	CompileOutput string
}

// Done reports whether the status is terminal.
func (r Result) Done() bool {
	return r.Status.ID != StatusInQueue && r.Status.ID != StatusProcessing
}

// Client talks to one execution service endpoint.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
}

type submitRequest struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
	Stdin      string `json:"stdin"`
}

type submitResponse struct {
	Token string `json:"token"`
}

type pollResponse struct {
	Status        Status  `json:"status"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
}

// Submit posts the submission and returns its polling token.
func (c *Client) Submit(ctx context.Context, sub Submission) (string, error) {
	body, err := json.Marshal(submitRequest{
		LanguageID: sub.LanguageID,
		SourceCode: base64.StdEncoding.EncodeToString([]byte(sub.SourceCode)),
		Stdin:      base64.StdEncoding.EncodeToString([]byte(sub.Stdin)),
	})
	if err != nil {
		return "", fmt.Errorf("encode submission: %w", err)
	}

	url := c.baseURL + "/submissions?base64_encoded=true&fields=*"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("submit: unexpected status %s", resp.Status)
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if sr.Token == "" {
		return "", fmt.Errorf("decode submit response: missing token")
	}
	return sr.Token, nil
}

// Poll fetches the submission's current result. Malformed or undecodable
// payloads surface as explicit decode errors rather than propagating.
func (c *Client) Poll(ctx context.Context, token string) (Result, error) {
	url := c.baseURL + "/submissions/" + token + "?base64_encoded=true&fields=*"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("poll: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("poll: unexpected status %s", resp.Status)
	}

	var pr pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return Result{}, fmt.Errorf("decode poll response: %w", err)
	}
	return decodeResult(pr)
}

// Run submits and polls until a terminal status or the context ends.
func (c *Client) Run(ctx context.Context, sub Submission, interval time.Duration) (Result, error) {
	token, err := c.Submit(ctx, sub)
	if err != nil {
		return Result{}, err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
			result, err := c.Poll(ctx, token)
			if err != nil {
				return Result{}, err
			}
			if result.Done() {
				return result, nil
			}
		}
	}
}

func decodeResult(pr pollResponse) (Result, error) {
	stdout, err := decodeField("stdout", pr.Stdout)
	if err != nil {
		return Result{}, err
	}
	stderr, err := decodeField("stderr", pr.Stderr)
	if err != nil {
		return Result{}, err
	}
	compile, err := decodeField("compile_output", pr.CompileOutput)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Status:        pr.Status,
		Stdout:        stdout,
		Stderr:        stderr,
		CompileOutput: compile,
	}, nil
}

func decodeField(name string, value *string) (string, error) {
	if value == nil {
		return "", nil
	}
	decoded, err := base64.StdEncoding.DecodeString(*value)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(decoded), nil
}
