// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for communicating with the
// workbench API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the workbench client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnavailable
	ErrTypeTimeout
	ErrTypeConnection
	ErrTypeInvalidResponse
	ErrTypeRejected
)

// Sentinel errors for easy checking.
var (
	ErrUnavailable = &ClientError{Type: ErrTypeUnavailable, Message: "workbench backend is not reachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
)

// IsUnavailable checks if an error indicates the backend is unreachable.
func IsUnavailable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnavailable
	}
	return errors.Is(err, ErrUnavailable)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return errors.Is(err, ErrTimeout)
}

// IsRejected checks if an error is a backend-side validation rejection
// (for example an oversize document).
func IsRejected(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeRejected
	}
	return false
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the workbench client.
type ClientConfig struct {
	// BaseURL is the workbench API base URL (default: http://127.0.0.1:8000)
	// Note: Uses explicit IPv4 address instead of localhost to avoid IPv6 resolution issues on Windows
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// UploadTimeout for audio uploads, which include remote transcription
	// time (default: 120s)
	UploadTimeout time.Duration

	// DefaultModel to use if none specified (default: "gpt-4o")
	DefaultModel string

	// DefaultKnowledgeBase to use if none specified (default: "default")
	DefaultKnowledgeBase string

	// RequestsPerSecond paces outgoing requests (default: 5)
	RequestsPerSecond float64
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:              "http://127.0.0.1:8000",
		Timeout:              30 * time.Second,
		UploadTimeout:        120 * time.Second,
		DefaultModel:         "gpt-4o",
		DefaultKnowledgeBase: "default",
		RequestsPerSecond:    5,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the workbench API.
// It provides methods for health checks, listings, chat, document
// processing, and audio transcription.
//
// The Client is thread-safe for concurrent use.
//
// Example:
//
//	client := backend.NewClient()
//	if _, err := client.CheckHealth(ctx); err != nil {
//	    log.Fatal("backend not available:", err)
//	}
//	err := client.ChatStream(ctx, req, func(ev backend.ChatEvent) { ... })
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	uploadClient *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a new workbench client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new workbench client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8000"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UploadTimeout == 0 {
		config.UploadTimeout = 120 * time.Second
	}
	if config.DefaultModel == "" {
		config.DefaultModel = "gpt-4o"
	}
	if config.DefaultKnowledgeBase == "" {
		config.DefaultKnowledgeBase = "default"
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 5
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		uploadClient: &http.Client{
			Timeout: config.UploadTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
	}
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// DefaultModel returns the configured default model.
func (c *Client) DefaultModel() string {
	return c.config.DefaultModel
}

// wait paces outgoing requests through the shared limiter.
func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "request cancelled", Cause: err}
	}
	return nil
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckHealth verifies that the backend is reachable and returns its
// reported status and version.
func (c *Client) CheckHealth(ctx context.Context) (*HealthResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from backend: " + resp.Status,
		}
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return &result, nil
}

// =============================================================================
// LISTINGS
// =============================================================================

// ListModels retrieves the available generation models.
func (c *Client) ListModels(ctx context.Context) ([]ListingEntry, error) {
	var result ListModelsResponse
	if err := c.getJSON(ctx, "/api/models", &result); err != nil {
		return nil, err
	}
	return result.Models, nil
}

// ListKnowledgeBases retrieves the available knowledge bases.
func (c *Client) ListKnowledgeBases(ctx context.Context) ([]ListingEntry, error) {
	var result ListKnowledgeBasesResponse
	if err := c.getJSON(ctx, "/api/knowledge-bases", &result); err != nil {
		return nil, err
	}
	return result.KnowledgeBases, nil
}

// getJSON performs a GET request and decodes the JSON reply.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.errorFromResponse(resp, "request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return nil
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// Chat sends a chat request and returns the complete response (non-streaming).
func (c *Client) Chat(ctx context.Context, request ChatRequest) (*ChatResponse, error) {
	c.fillRequestDefaults(&request)

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp, "chat request failed")
	}

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return &result, nil
}

// ChatStream sends a streaming chat request and calls the callback for each
// event. The callback is called synchronously in the order events are
// received. Returns when a terminal event has been delivered, the stream
// ends, or an error occurs.
func (c *Client) ChatStream(ctx context.Context, request ChatRequest, callback ChatCallback) error {
	c.fillRequestDefaults(&request)

	if err := c.wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(request)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	resp, err := c.openStream(ctx, "/api/chat/stream", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reader := NewStreamReader(resp.Body)
	return reader.ProcessChat(ctx, callback)
}

// fillRequestDefaults applies the configured model and knowledge base when
// the request leaves them empty.
func (c *Client) fillRequestDefaults(request *ChatRequest) {
	if request.Model == "" {
		request.Model = c.config.DefaultModel
	}
	if request.KnowledgeBase == "" {
		request.KnowledgeBase = c.config.DefaultKnowledgeBase
	}
	// The backend rejects null arrays, send empty ones instead
	if request.ContentBlocks == nil {
		request.ContentBlocks = []ContentBlockPayload{}
	}
	if request.PDFChunks == nil {
		request.PDFChunks = []DocumentChunk{}
	}
	if request.History == nil {
		request.History = []HistoryMessage{}
	}
}

// =============================================================================
// DOCUMENT PROCESSING
// =============================================================================

// ProcessDocument opens a document processing stream and calls the callback
// for each progress/result/error event. Returns when a terminal event has
// been delivered, the stream ends, or an error occurs.
func (c *Client) ProcessDocument(ctx context.Context, request DocProcessRequest, callback DocCallback) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(request)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	resp, err := c.openStream(ctx, "/api/pdf/process", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reader := NewStreamReader(resp.Body)
	return reader.ProcessDocument(ctx, callback)
}

// openStream issues a streaming POST and validates the response status.
// Streaming requests use a client without timeout; lifetime is controlled
// by the caller's context.
func (c *Client) openStream(ctx context.Context, path string, body []byte) (*http.Response, error) {
	streamClient := &http.Client{}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := streamClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, ErrTimeout
		}
		return nil, ErrUnavailable
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.errorFromResponse(resp, "stream request failed")
	}

	return resp, nil
}

// =============================================================================
// AUDIO TRANSCRIPTION
// =============================================================================

// Transcribe uploads an audio file for speech-to-text transcription.
// The upload is a single multipart request/response, not a stream.
// contentType must be one of the media types the backend accepts.
func (c *Client) Transcribe(ctx context.Context, filename string, contentType string, audio io.Reader) (*TranscriptionResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create form file", Cause: err}
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to copy audio data", Cause: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to finalize form", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/audio/process", &body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp, "audio processing failed")
	}

	var result TranscriptionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return &result, nil
}

// =============================================================================
// ERROR DECODING
// =============================================================================

// backendError is the error body shape returned by the backend.
type backendError struct {
	Detail string `json:"detail"`
}

// errorFromResponse builds a ClientError from a non-success response,
// preferring the backend's human-readable detail string.
func (c *Client) errorFromResponse(resp *http.Response, fallback string) error {
	errType := ErrTypeInvalidResponse
	if resp.StatusCode == http.StatusBadRequest {
		errType = ErrTypeRejected
	}

	var detail backendError
	if err := json.NewDecoder(resp.Body).Decode(&detail); err == nil && detail.Detail != "" {
		return &ClientError{Type: errType, Message: detail.Detail}
	}
	return &ClientError{Type: errType, Message: fallback + ": " + resp.Status}
}
