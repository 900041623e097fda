package facebook

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-publisher/core"
	"github.com/goliatone/go-publisher/transport"
)

// PageEvent is the subset of the Graph page-event schema this layer writes.
// Times are ISO8601 strings as the Graph API expects them.
type PageEvent struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time,omitempty"`
	Place       string `json:"place,omitempty"`
}

// Post is a page feed post. When ImageURL is set the photo is uploaded
// first and attached; Link rides directly on the feed call.
type Post struct {
	Message  string `json:"message,omitempty"`
	Link     string `json:"link,omitempty"`
	ImageURL string `json:"-"`
}

type idResponse struct {
	ID string `json:"id"`
}

// CreatePageEvent creates an event on the page. The Graph API returns only
// an id; the browsable URL is synthesized.
func (c *Client) CreatePageEvent(ctx context.Context, token, pageID string, event PageEvent) (core.Result, error) {
	pageID = strings.TrimSpace(pageID)
	if pageID == "" {
		return core.Result{}, fmt.Errorf("facebook: page id is required")
	}
	if strings.TrimSpace(event.Name) == "" {
		return core.Result{}, fmt.Errorf("facebook: event name is required")
	}

	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/" + pageID + "/events",
		Token:  token,
		Body:   event,
	})
	if err != nil {
		return core.Result{}, err
	}
	var created idResponse
	if err := transport.DecodeJSON(res, &created); err != nil {
		return core.Result{}, err
	}
	return core.Result{ID: created.ID, URL: eventURL(created.ID)}, nil
}

func (c *Client) UpdatePageEvent(ctx context.Context, token, eventID string, event PageEvent) (core.Result, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return core.Result{}, fmt.Errorf("facebook: event id is required")
	}

	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/" + eventID,
		Token:  token,
		Body:   event,
	})
	if err != nil {
		return core.Result{}, err
	}
	var updated idResponse
	if err := transport.DecodeJSON(res, &updated); err != nil {
		return core.Result{}, err
	}
	if strings.TrimSpace(updated.ID) == "" {
		updated.ID = eventID
	}
	return core.Result{ID: updated.ID, URL: eventURL(updated.ID)}, nil
}

func (c *Client) DeletePageEvent(ctx context.Context, token, eventID string) error {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("facebook: event id is required")
	}
	_, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   "/" + eventID,
		Token:  token,
	})
	return err
}

// CreatePagePost publishes to the page feed. With an image this is a
// two-step flow: the photo must exist before the feed post can reference it
// through attached_media, so the upload happens first and the feed body
// carries the returned media id instead of a link.
func (c *Client) CreatePagePost(ctx context.Context, token, pageID string, post Post) (core.Result, error) {
	pageID = strings.TrimSpace(pageID)
	if pageID == "" {
		return core.Result{}, fmt.Errorf("facebook: page id is required")
	}
	if strings.TrimSpace(post.Message) == "" && strings.TrimSpace(post.ImageURL) == "" && strings.TrimSpace(post.Link) == "" {
		return core.Result{}, fmt.Errorf("facebook: post requires a message, link, or image")
	}

	body := map[string]any{}
	if message := strings.TrimSpace(post.Message); message != "" {
		body["message"] = message
	}

	if imageURL := strings.TrimSpace(post.ImageURL); imageURL != "" {
		photoID, err := c.uploadPhoto(ctx, token, pageID, imageURL)
		if err != nil {
			return core.Result{}, err
		}
		body["attached_media"] = []map[string]string{{"media_fbid": photoID}}
	} else if link := strings.TrimSpace(post.Link); link != "" {
		body["link"] = link
	}

	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/" + pageID + "/feed",
		Token:  token,
		Body:   body,
	})
	if err != nil {
		return core.Result{}, err
	}
	var created idResponse
	if err := transport.DecodeJSON(res, &created); err != nil {
		return core.Result{}, err
	}
	return core.Result{ID: created.ID, URL: postURL(pageID, created.ID)}, nil
}

// uploadPhoto stages an unpublished photo on the page and returns its media
// id for attachment.
func (c *Client) uploadPhoto(ctx context.Context, token, pageID, imageURL string) (string, error) {
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/" + pageID + "/photos",
		Token:  token,
		Body: map[string]any{
			"url":       imageURL,
			"published": false,
		},
	})
	if err != nil {
		return "", err
	}
	var uploaded idResponse
	if err := transport.DecodeJSON(res, &uploaded); err != nil {
		return "", err
	}
	if strings.TrimSpace(uploaded.ID) == "" {
		return "", &core.ProviderError{
			Provider:   ProviderID,
			Code:       core.ErrorCodeInvalidResponse,
			Message:    "photo upload response missing media id",
			StatusCode: res.StatusCode,
			Retryable:  false,
		}
	}
	return uploaded.ID, nil
}

func eventURL(eventID string) string {
	return "https://www.facebook.com/events/" + strings.TrimSpace(eventID)
}

// postURL rebuilds the browsable post URL from the composite "{pageID}_{postID}"
// id the feed endpoint returns. Ids that do not carry the page prefix are
// used as-is since the separator format is undocumented upstream.
func postURL(pageID, compositeID string) string {
	pageID = strings.TrimSpace(pageID)
	postID := strings.TrimSpace(compositeID)
	if trimmed, found := strings.CutPrefix(postID, pageID+"_"); found && strings.TrimSpace(trimmed) != "" {
		postID = trimmed
	}
	return "https://www.facebook.com/" + pageID + "/posts/" + postID
}
