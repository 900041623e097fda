package facebook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreatePageEventSynthesizesEventURL(t *testing.T) {
	var gotPath string
	var gotBody PageEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id":"evt_123"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.CreatePageEvent(context.Background(), "page_tok", "page_1", PageEvent{
		Name:      "Open House",
		StartTime: "2026-09-01T18:00:00+0000",
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if gotPath != "/v18.0/page_1/events" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody.Name != "Open House" {
		t.Fatalf("unexpected body %+v", gotBody)
	}
	if result.ID != "evt_123" {
		t.Fatalf("unexpected id %q", result.ID)
	}
	if result.URL != "https://www.facebook.com/events/evt_123" {
		t.Fatalf("unexpected url %q", result.URL)
	}
}

func TestUpdatePageEventKeepsIDWhenResponseOmitsIt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.UpdatePageEvent(context.Background(), "page_tok", "evt_9", PageEvent{Name: "Updated"})
	if err != nil {
		t.Fatalf("update event: %v", err)
	}
	if result.ID != "evt_9" {
		t.Fatalf("expected original id retained, got %q", result.ID)
	}
}

func TestCreatePagePostWithImageUploadsPhotoFirst(t *testing.T) {
	var calls []string
	var feedBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		switch r.URL.Path {
		case "/v18.0/page_1/photos":
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["url"] != "https://cdn.example.com/pic.jpg" {
				t.Errorf("unexpected photo url %v", body["url"])
			}
			if body["published"] != false {
				t.Errorf("expected unpublished photo upload")
			}
			w.Write([]byte(`{"id":"photo_77"}`))
		case "/v18.0/page_1/feed":
			json.NewDecoder(r.Body).Decode(&feedBody)
			w.Write([]byte(`{"id":"page_1_post_55"}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.CreatePagePost(context.Background(), "page_tok", "page_1", Post{
		Message:  "New listing",
		ImageURL: "https://cdn.example.com/pic.jpg",
		Link:     "https://example.com/listing",
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if len(calls) != 2 || calls[0] != "/v18.0/page_1/photos" || calls[1] != "/v18.0/page_1/feed" {
		t.Fatalf("expected photo upload before feed post, got %v", calls)
	}
	attached, ok := feedBody["attached_media"].([]any)
	if !ok || len(attached) != 1 {
		t.Fatalf("expected attached_media in feed body, got %+v", feedBody)
	}
	first, _ := attached[0].(map[string]any)
	if first["media_fbid"] != "photo_77" {
		t.Fatalf("expected uploaded photo id attached, got %+v", first)
	}
	if _, hasLink := feedBody["link"]; hasLink {
		t.Fatalf("expected link dropped when image is attached")
	}
	if result.URL != "https://www.facebook.com/page_1/posts/post_55" {
		t.Fatalf("unexpected post url %q", result.URL)
	}
}

func TestCreatePagePostWithLinkOnly(t *testing.T) {
	var feedBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&feedBody)
		w.Write([]byte(`{"id":"post_plain"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.CreatePagePost(context.Background(), "page_tok", "page_1", Post{
		Message: "hello",
		Link:    "https://example.com",
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if feedBody["link"] != "https://example.com" {
		t.Fatalf("expected link in feed body, got %+v", feedBody)
	}
	if result.URL != "https://www.facebook.com/page_1/posts/post_plain" {
		t.Fatalf("expected full id fallback in url, got %q", result.URL)
	}
}

func TestCreatePagePostRequiresContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request")
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if _, err := client.CreatePagePost(context.Background(), "tok", "page_1", Post{}); err == nil {
		t.Fatalf("expected empty post error")
	}
}

func TestPostURLStripsPagePrefix(t *testing.T) {
	if got := postURL("page_1", "page_1_555"); got != "https://www.facebook.com/page_1/posts/555" {
		t.Fatalf("unexpected composite split %q", got)
	}
	if got := postURL("123456", "123456_789"); got != "https://www.facebook.com/123456/posts/789" {
		t.Fatalf("unexpected numeric composite split %q", got)
	}
	if got := postURL("page_1", "555"); got != "https://www.facebook.com/page_1/posts/555" {
		t.Fatalf("unexpected plain id url %q", got)
	}
	if got := postURL("page_1", "other_555"); got != "https://www.facebook.com/page_1/posts/other_555" {
		t.Fatalf("expected id without page prefix kept whole, got %q", got)
	}
}

func TestDeletePageEvent(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if err := client.DeletePageEvent(context.Background(), "tok", "evt_1"); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/v18.0/evt_1" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
}
