package meetup

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
		TokenURL:     server.URL + "/oauth2/access",
		HTTPClient:   server.Client(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestCreateEventPostsToGroupURLName(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id":"evt_1","name":"Yoga","link":"https://www.meetup.com/park-people/events/evt_1/","status":"upcoming"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.CreateEvent(context.Background(), "tok", "park-people", Event{
		Name: "Yoga",
		Time: 1788000000000,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if gotPath != "/park-people/events" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if gotBody.Name != "Yoga" || gotBody.Time != 1788000000000 {
		t.Fatalf("unexpected body %+v", gotBody)
	}
	if result.ID != "evt_1" || result.URL != "https://www.meetup.com/park-people/events/evt_1/" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestUpdateEventPatchesAndKeepsID(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Write([]byte(`{"name":"Yoga v2"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.UpdateEvent(context.Background(), "tok", "park-people", "evt_1", Event{Name: "Yoga v2"})
	if err != nil {
		t.Fatalf("update event: %v", err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/park-people/events/evt_1" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if result.ID != "evt_1" {
		t.Fatalf("expected original id retained, got %q", result.ID)
	}
}

func TestErrorListEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"errors":[{"code":"throttled","message":"too many requests"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.GetGroup(context.Background(), "tok", "park-people")
	providerErr, ok := core.AsProviderError(err)
	if !ok {
		t.Fatalf("expected provider error, got %v", err)
	}
	if providerErr.Code != "throttled" || providerErr.Message != "too many requests" {
		t.Fatalf("unexpected extraction %+v", providerErr)
	}
	if !providerErr.Retryable {
		t.Fatalf("expected throttled to be retryable")
	}
}

func TestThrottledCodeRetryableOn400(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"code":"throttled","message":"slow down"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.GetGroup(context.Background(), "tok", "park-people")
	if !core.IsRetryable(err) {
		t.Fatalf("expected allowlisted code retryable, got %v", err)
	}
}

func TestFlatErrorEnvelopeFallback(t *testing.T) {
	code, message := extractMeetupError(map[string]any{
		"error":             "invalid_request",
		"error_description": "missing field",
	})
	if code != "invalid_request" || message != "missing field" {
		t.Fatalf("unexpected extraction %q/%q", code, message)
	}
}

func TestSearchGroupsQuery(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{"text": q.Get("text"), "lat": q.Get("lat"), "lon": q.Get("lon")}
		w.Write([]byte(`[{"id":1,"name":"Park People","urlname":"park-people","city":"Portland"}]`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	groups, err := client.SearchGroups(context.Background(), "tok", "yoga", 45.52, -122.68)
	if err != nil {
		t.Fatalf("search groups: %v", err)
	}
	if gotQuery["text"] != "yoga" || gotQuery["lat"] != "45.52" || gotQuery["lon"] != "-122.68" {
		t.Fatalf("unexpected query %+v", gotQuery)
	}
	if len(groups) != 1 || groups[0].URLName != "park-people" {
		t.Fatalf("unexpected groups %+v", groups)
	}
}

func TestGetGroupsAndMember(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/self/groups":
			w.Write([]byte(`[{"id":1,"name":"Park People","urlname":"park-people"}]`))
		case "/members/self":
			w.Write([]byte(`{"id":42,"name":"Pat"}`))
		case "/members/99":
			w.Write([]byte(`{"id":99,"name":"Sam"}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	groups, err := client.GetGroups(context.Background(), "tok")
	if err != nil || len(groups) != 1 {
		t.Fatalf("unexpected groups %+v err %v", groups, err)
	}
	self, err := client.GetUser(context.Background(), "tok")
	if err != nil || self.ID != 42 {
		t.Fatalf("unexpected member %+v err %v", self, err)
	}
	other, err := client.GetMember(context.Background(), "tok", "99")
	if err != nil || other.Name != "Sam" {
		t.Fatalf("unexpected member %+v err %v", other, err)
	}
}

func TestRefreshTokenGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/access" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		r.ParseForm()
		if r.PostFormValue("grant_type") != "refresh_token" {
			t.Errorf("unexpected grant %q", r.PostFormValue("grant_type"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh_tok","refresh_token":"fresh_ref","expires_in":3600}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	token, err := client.RefreshToken(context.Background(), "old_ref")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if token.AccessToken != "fresh_tok" || token.RefreshToken != "fresh_ref" {
		t.Fatalf("unexpected token %+v", token)
	}
}

func TestValidateTokenProbesSelf(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":[{"code":"auth_fail","message":"expired"}]}`))
	}))
	defer server.Close()

	if newTestClient(t, server).ValidateToken(context.Background(), "tok") {
		t.Fatalf("expected invalid token")
	}
}
