package eventbrite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-publisher/core"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := New(Config{
		ClientID:     "client_1",
		ClientSecret: "secret_1",
		APIBase:      server.URL,
		TokenURL:     server.URL + "/oauth/token",
		HTTPClient:   server.Client(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestCreateEventWrapsPayloadUnderEventKey(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id":"evt_1","url":"https://www.eventbrite.com/e/evt_1","status":"draft"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.CreateEvent(context.Background(), "tok", "org_1", Event{
		Name:     Text{HTML: "Yoga in the Park"},
		Start:    DateTime{Timezone: "America/New_York", UTC: "2026-09-05T14:00:00Z"},
		End:      DateTime{Timezone: "America/New_York", UTC: "2026-09-05T16:00:00Z"},
		Currency: "USD",
		Capacity: 40,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if gotPath != "/v3/organizations/org_1/events/" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	wrapped, ok := gotBody["event"].(map[string]any)
	if !ok {
		t.Fatalf("expected body wrapped under event key, got %+v", gotBody)
	}
	name, _ := wrapped["name"].(map[string]any)
	if name["html"] != "Yoga in the Park" {
		t.Fatalf("unexpected name payload %+v", wrapped)
	}
	if result.ID != "evt_1" || result.URL != "https://www.eventbrite.com/e/evt_1" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestPublishAndUnpublishUseDistinctEndpoints(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.Write([]byte(`{"published":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if err := client.PublishEvent(context.Background(), "tok", "evt_1"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := client.UnpublishEvent(context.Background(), "tok", "evt_1"); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected two calls, got %v", paths)
	}
	if paths[0] != "POST /v3/events/evt_1/publish/" {
		t.Fatalf("unexpected publish call %q", paths[0])
	}
	if paths[1] != "POST /v3/events/evt_1/unpublish/" {
		t.Fatalf("unexpected unpublish call %q", paths[1])
	}
}

func TestPublishPropagatesNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status_code":404,"error":"NOT_FOUND","error_description":"The event you requested does not exist."}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	err := client.PublishEvent(context.Background(), "tok", "evt_missing")
	providerErr, ok := core.AsProviderError(err)
	if !ok {
		t.Fatalf("expected provider error, got %v", err)
	}
	if providerErr.Code != "NOT_FOUND" || providerErr.StatusCode != 404 {
		t.Fatalf("unexpected error %+v", providerErr)
	}
	if providerErr.Retryable {
		t.Fatalf("expected not-found to be terminal")
	}
}

func TestRateLimitCodeRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status_code":429,"error":"HIT_RATE_LIMIT","error_description":"Rate limit hit."}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.GetEvent(context.Background(), "tok", "evt_1")
	if !core.IsRetryable(err) {
		t.Fatalf("expected rate limit retryable, got %v", err)
	}
}

func TestCreateVenue(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id":"venue_1","name":"Community Hall","address":{"address_1":"1 Main St","city":"Portland"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	venue, err := client.CreateVenue(context.Background(), "tok", "org_1", Venue{
		Name:    "Community Hall",
		Address: Address{Address1: "1 Main St", City: "Portland"},
	})
	if err != nil {
		t.Fatalf("create venue: %v", err)
	}
	if _, ok := gotBody["venue"]; !ok {
		t.Fatalf("expected body wrapped under venue key, got %+v", gotBody)
	}
	if venue.ID != "venue_1" {
		t.Fatalf("unexpected venue %+v", venue)
	}
}

func TestGetOrganizationsAndUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/users/me/organizations/":
			w.Write([]byte(`{"organizations":[{"id":"org_1","name":"Acme Events"}]}`))
		case "/v3/users/me/":
			w.Write([]byte(`{"id":"user_1","name":"Pat","email":"pat@example.com"}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	orgs, err := client.GetOrganizations(context.Background(), "tok")
	if err != nil || len(orgs) != 1 || orgs[0].Name != "Acme Events" {
		t.Fatalf("unexpected organizations %+v err %v", orgs, err)
	}
	user, err := client.GetUser(context.Background(), "tok")
	if err != nil || user.ID != "user_1" {
		t.Fatalf("unexpected user %+v err %v", user, err)
	}
}

func TestRefreshTokenGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/token" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh_tok","token_type":"bearer"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	token, err := client.RefreshToken(context.Background(), "refresh_1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if token.AccessToken != "fresh_tok" {
		t.Fatalf("unexpected token %+v", token)
	}
}

func TestValidateTokenNeverErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"INVALID_AUTH","error_description":"bad token"}`))
	}))
	defer server.Close()

	if newTestClient(t, server).ValidateToken(context.Background(), "tok") {
		t.Fatalf("expected invalid token")
	}
}
