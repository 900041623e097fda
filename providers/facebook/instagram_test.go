package facebook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-publisher/core"
)

func TestIGCreateMediaBuildsContainer(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id":"container_1"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	containerID, err := client.IGCreateMedia(context.Background(), "tok", "ig_user_1", InstagramMedia{
		ImageURL: "https://cdn.example.com/pic.jpg",
		Caption:  "New listing",
	})
	if err != nil {
		t.Fatalf("create media: %v", err)
	}
	if gotPath != "/v18.0/ig_user_1/media" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody["image_url"] != "https://cdn.example.com/pic.jpg" || gotBody["caption"] != "New listing" {
		t.Fatalf("unexpected body %+v", gotBody)
	}
	if containerID != "container_1" {
		t.Fatalf("unexpected container id %q", containerID)
	}
}

func TestIGCreateMediaRequiresMediaURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request")
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if _, err := client.IGCreateMedia(context.Background(), "tok", "ig_user_1", InstagramMedia{Caption: "x"}); err == nil {
		t.Fatalf("expected missing media url error")
	}
}

func TestIGCreateMediaMissingContainerID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.IGCreateMedia(context.Background(), "tok", "ig_user_1", InstagramMedia{ImageURL: "https://x/p.jpg"})
	providerErr, ok := core.AsProviderError(err)
	if !ok || providerErr.Code != core.ErrorCodeInvalidResponse {
		t.Fatalf("expected INVALID_RESPONSE, got %v", err)
	}
}

func TestIGPublishMediaSendsCreationID(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id":"media_9"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.IGPublishMedia(context.Background(), "tok", "ig_user_1", "container_1")
	if err != nil {
		t.Fatalf("publish media: %v", err)
	}
	if gotPath != "/v18.0/ig_user_1/media_publish" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody["creation_id"] != "container_1" {
		t.Fatalf("expected creation_id in body, got %+v", gotBody)
	}
	if result.ID != "media_9" {
		t.Fatalf("unexpected media id %q", result.ID)
	}
}

func TestIGGetMediaStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fields") != "id,status_code" {
			t.Errorf("expected status fields query, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"id":"container_1","status_code":"IN_PROGRESS"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	status, err := client.IGGetMediaStatus(context.Background(), "tok", "container_1")
	if err != nil {
		t.Fatalf("media status: %v", err)
	}
	if status.Status != MediaStatusInProgress {
		t.Fatalf("unexpected status %q", status.Status)
	}
}

func TestGetInstagramAccountInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"ig_user_1","username":"listings","followers_count":1200,"media_count":34}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	info, err := client.GetInstagramAccountInfo(context.Background(), "tok", "ig_user_1")
	if err != nil {
		t.Fatalf("account info: %v", err)
	}
	if info.Username != "listings" || info.FollowersCount != 1200 {
		t.Fatalf("unexpected info %+v", info)
	}
}
