// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithConfig(&ClientConfig{
		BaseURL:           server.URL,
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000,
	})
}

// =============================================================================
// CONFIGURATION TESTS
// =============================================================================

func TestNewClientWithConfig_FillsDefaults(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{})
	cfg := client.GetConfig()

	if cfg.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.UploadTimeout != 120*time.Second {
		t.Errorf("UploadTimeout = %v", cfg.UploadTimeout)
	}
	if cfg.DefaultModel != "gpt-4o" {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
	if cfg.DefaultKnowledgeBase != "default" {
		t.Errorf("DefaultKnowledgeBase = %q", cfg.DefaultKnowledgeBase)
	}
}

func TestNewClientWithConfig_NilUsesDefaults(t *testing.T) {
	client := NewClientWithConfig(nil)
	if client.DefaultModel() != "gpt-4o" {
		t.Errorf("DefaultModel() = %q", client.DefaultModel())
	}
}

// =============================================================================
// HEALTH AND LISTINGS
// =============================================================================

func TestCheckHealth(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(HealthResponse{
			Message: "RAG Workbench API",
			Version: "1.0.0",
			Status:  "ok",
		})
	}))

	health, err := client.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth() error = %v", err)
	}
	if health.Status != "ok" || health.Version != "1.0.0" {
		t.Errorf("health = %+v", health)
	}
}

func TestCheckHealth_Unreachable(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{
		BaseURL:           "http://127.0.0.1:1", // nothing listens here
		Timeout:           500 * time.Millisecond,
		RequestsPerSecond: 1000,
	})

	_, err := client.CheckHealth(context.Background())
	if !IsUnavailable(err) {
		t.Errorf("CheckHealth() error = %v, want unavailable", err)
	}
}

func TestListModels(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/models" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ListModelsResponse{Models: []ListingEntry{
			{ID: "gpt-4o", Name: "GPT-4o"},
			{ID: "gpt-4o-mini", Name: "GPT-4o mini"},
		}})
	}))

	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 || models[0].ID != "gpt-4o" {
		t.Errorf("models = %+v", models)
	}
}

func TestListKnowledgeBases(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/knowledge-bases" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ListKnowledgeBasesResponse{KnowledgeBases: []ListingEntry{
			{ID: "default", Name: "Default"},
		}})
	}))

	kbs, err := client.ListKnowledgeBases(context.Background())
	if err != nil {
		t.Fatalf("ListKnowledgeBases() error = %v", err)
	}
	if len(kbs) != 1 || kbs[0].ID != "default" {
		t.Errorf("knowledge bases = %+v", kbs)
	}
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChat_AppliesRequestDefaults(t *testing.T) {
	var received ChatRequest
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ChatResponse{Content: "hi", Role: "assistant"})
	}))

	_, err := client.Chat(context.Background(), ChatRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if received.Model != "gpt-4o" {
		t.Errorf("Model = %q, want configured default", received.Model)
	}
	if received.KnowledgeBase != "default" {
		t.Errorf("KnowledgeBase = %q, want configured default", received.KnowledgeBase)
	}
	// Nil slices must be sent as empty arrays, not null
	if received.ContentBlocks == nil || received.PDFChunks == nil || received.History == nil {
		t.Error("nil request slices should be serialized as empty arrays")
	}
}

func TestChatStream_DeliversEvents(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/stream" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"type\":\"content_delta\",\"content\":\"Hi\"}\n\n"))
		w.Write([]byte("data: {\"type\":\"message_complete\",\"full_content\":\"Hi\"}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))

	var events []ChatEvent
	err := client.ChatStream(context.Background(), ChatRequest{Content: "hello"}, func(ev ChatEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[1].Type != ChatEventComplete {
		t.Errorf("final event = %+v", events[1])
	}
}

func TestChatStream_BackendErrorDetail(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail": "PDF content exceeds maximum size"}`))
	}))

	err := client.ChatStream(context.Background(), ChatRequest{Content: "x"}, func(ChatEvent) {
		t.Error("callback should not run on a rejected request")
	})
	if !IsRejected(err) {
		t.Fatalf("error = %v, want rejection", err)
	}
	if !strings.Contains(err.Error(), "PDF content exceeds maximum size") {
		t.Errorf("error = %q, want backend detail string", err.Error())
	}
}

// =============================================================================
// DOCUMENT PROCESSING TESTS
// =============================================================================

func TestProcessDocument_Stream(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pdf/process" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req DocProcessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Filename != "report.pdf" {
			t.Errorf("request = %+v, err = %v", req, err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"type\":\"progress\",\"step\":\"saving_file\",\"progress\":10}\n\n"))
		w.Write([]byte("data: {\"type\":\"result\",\"chunks\":[{\"id\":\"report.pdf_0\",\"content\":\"text\",\"metadata\":{\"source\":\"report.pdf\",\"chunk_id\":0}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))

	var events []DocEvent
	err := client.ProcessDocument(context.Background(),
		DocProcessRequest{Content: "base64data", Filename: "report.pdf"},
		func(ev DocEvent) { events = append(events, ev) })
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if len(events) != 2 || events[1].Type != DocEventResult {
		t.Fatalf("events = %+v", events)
	}
	if events[1].Chunks[0].ID != "report.pdf_0" {
		t.Errorf("chunk ID = %q", events[1].Chunks[0].ID)
	}
}

// =============================================================================
// TRANSCRIPTION TESTS
// =============================================================================

func TestTranscribe(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/audio/process" {
			t.Errorf("path = %q", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile() error = %v", err)
		}
		defer file.Close()
		if header.Filename != "memo.wav" {
			t.Errorf("filename = %q", header.Filename)
		}
		if got := header.Header.Get("Content-Type"); got != "audio/wav" {
			t.Errorf("part content type = %q", got)
		}
		json.NewEncoder(w).Encode(TranscriptionResult{
			Success:       true,
			Filename:      "memo.wav",
			Transcription: "meeting at noon",
			Duration:      4.2,
			Format:        "wav",
		})
	}))

	result, err := client.Transcribe(context.Background(), "memo.wav", "audio/wav",
		strings.NewReader("RIFF fake audio bytes"))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if !result.Success || result.Transcription != "meeting at noon" {
		t.Errorf("result = %+v", result)
	}
}

func TestTranscribe_BackendFailure(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail": "transcription service unavailable"}`))
	}))

	_, err := client.Transcribe(context.Background(), "memo.wav", "audio/wav", strings.NewReader("x"))
	if err == nil {
		t.Fatal("Transcribe() error = nil, want backend failure")
	}
	if !strings.Contains(err.Error(), "transcription service unavailable") {
		t.Errorf("error = %q", err.Error())
	}
}
