package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSend_PostsEvent(t *testing.T) {
	var received Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/events", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	event := Event{
		Type:       "proposal.merged",
		ProjectID:  10,
		ProposalID: 100,
		ActorID:    2,
		At:         time.Now().UTC().Truncate(time.Second),
	}

	err := client.Send(context.Background(), event)

	assert.NoError(t, err)
	assert.Equal(t, event, received)
}

func TestSend_SinkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.Send(context.Background(), Event{Type: "proposal.created"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSend_NoSinkConfigured(t *testing.T) {
	client := NewClient("")

	err := client.Send(context.Background(), Event{Type: "proposal.created"})

	assert.NoError(t, err)
}
