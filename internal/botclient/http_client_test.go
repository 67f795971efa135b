package botclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cardloop/card-courier/internal/botclient"
	"github.com/cardloop/card-courier/internal/domain"
)

func TestHTTPClient_UploadFile(t *testing.T) {
	channelID := uuid.New()
	fileID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/files" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("channelId"); got != channelID.String() {
			t.Errorf("expected channelId %s, got %s", channelID, got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("missing bot credentials, got %q", got)
		}

		file, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing multipart file field: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		if got := hdr.Header.Get("Content-Type"); got != "image/png" {
			t.Errorf("expected part content type image/png, got %q", got)
		}

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": fileID.String()})
	}))
	defer srv.Close()

	c := botclient.NewHTTPClient(srv.URL, "test-token", time.Second)

	got, err := c.UploadFile(context.Background(), channelID, []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != fileID {
		t.Fatalf("expected file id %s, got %s", fileID, got)
	}
}

func TestHTTPClient_GetUser(t *testing.T) {
	userID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/"+userID.String() {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"name": "alice",
			"id":   userID.String(),
		})
	}))
	defer srv.Close()

	c := botclient.NewHTTPClient(srv.URL, "test-token", time.Second)

	sender, err := c.GetUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.Name != "alice" || sender.ID != userID.String() {
		t.Fatalf("unexpected sender: %+v", sender)
	}
}

func TestHTTPClient_PostMessage(t *testing.T) {
	channelID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels/"+channelID.String()+"/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body struct {
			Content string `json:"content"`
			Embed   bool   `json:"embed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad body: %v", err)
		}
		if body.Content != "hello channel" {
			t.Errorf("unexpected content: %q", body.Content)
		}
		if body.Embed {
			t.Error("embed must default to false")
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := botclient.NewHTTPClient(srv.URL, "test-token", time.Second)

	if err := c.PostMessage(context.Background(), channelID, "hello channel"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHTTPClient_ErrorMapsToAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "channel is archived", http.StatusForbidden)
	}))
	defer srv.Close()

	c := botclient.NewHTTPClient(srv.URL, "test-token", time.Second)

	err := c.PostMessage(context.Background(), uuid.New(), "hello")
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", apiErr.Status)
	}
	if apiErr.Message != "channel is archived" {
		t.Fatalf("expected response body in message, got %q", apiErr.Message)
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := botclient.NewHTTPClient(srv.URL, "test-token", time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.GetUser(ctx, uuid.New())
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
