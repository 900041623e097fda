package facebook

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-publisher/core"
	"github.com/goliatone/go-publisher/transport"
)

// Instagram Business publishing is two-phase: create a media container,
// wait for processing, then publish the container. This client exposes the
// primitives; the poll loop belongs to the caller.

const (
	MediaStatusFinished   = "FINISHED"
	MediaStatusInProgress = "IN_PROGRESS"
	MediaStatusError      = "ERROR"
)

// InstagramMedia describes the media container to create. Exactly one of
// ImageURL or VideoURL is expected; MediaType is only needed for video
// ("REELS"/"VIDEO") since image is the default.
type InstagramMedia struct {
	ImageURL  string
	VideoURL  string
	Caption   string
	MediaType string
}

// MediaStatus reports container processing state. Callers should poll until
// FINISHED before publishing video content.
type MediaStatus struct {
	ID     string `json:"id"`
	Status string `json:"status_code"`
}

// InstagramAccountInfo is the read-only account metadata subset.
type InstagramAccountInfo struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FollowersCount int64  `json:"followers_count"`
	MediaCount     int64  `json:"media_count"`
}

// IGCreateMedia creates a media container and returns its id. The container
// is not visible until published.
func (c *Client) IGCreateMedia(ctx context.Context, token, igUserID string, media InstagramMedia) (string, error) {
	igUserID = strings.TrimSpace(igUserID)
	if igUserID == "" {
		return "", fmt.Errorf("facebook: instagram user id is required")
	}
	imageURL := strings.TrimSpace(media.ImageURL)
	videoURL := strings.TrimSpace(media.VideoURL)
	if imageURL == "" && videoURL == "" {
		return "", fmt.Errorf("facebook: instagram media requires an image or video url")
	}

	body := map[string]any{}
	if imageURL != "" {
		body["image_url"] = imageURL
	}
	if videoURL != "" {
		body["video_url"] = videoURL
	}
	if caption := strings.TrimSpace(media.Caption); caption != "" {
		body["caption"] = caption
	}
	if mediaType := strings.TrimSpace(media.MediaType); mediaType != "" {
		body["media_type"] = mediaType
	}

	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/" + igUserID + "/media",
		Token:  token,
		Body:   body,
	})
	if err != nil {
		return "", err
	}
	var created idResponse
	if err := transport.DecodeJSON(res, &created); err != nil {
		return "", err
	}
	if strings.TrimSpace(created.ID) == "" {
		return "", &core.ProviderError{
			Provider:   ProviderID,
			Code:       core.ErrorCodeInvalidResponse,
			Message:    "media create response missing container id",
			StatusCode: res.StatusCode,
			Retryable:  false,
		}
	}
	return created.ID, nil
}

// IGPublishMedia publishes a processed container. Instagram returns only the
// published media id.
func (c *Client) IGPublishMedia(ctx context.Context, token, igUserID, containerID string) (core.Result, error) {
	igUserID = strings.TrimSpace(igUserID)
	containerID = strings.TrimSpace(containerID)
	if igUserID == "" || containerID == "" {
		return core.Result{}, fmt.Errorf("facebook: instagram user id and container id are required")
	}

	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/" + igUserID + "/media_publish",
		Token:  token,
		Body:   map[string]any{"creation_id": containerID},
	})
	if err != nil {
		return core.Result{}, err
	}
	var published idResponse
	if err := transport.DecodeJSON(res, &published); err != nil {
		return core.Result{}, err
	}
	return core.Result{ID: published.ID}, nil
}

// IGGetMediaStatus polls a container's processing state.
func (c *Client) IGGetMediaStatus(ctx context.Context, token, containerID string) (MediaStatus, error) {
	containerID = strings.TrimSpace(containerID)
	if containerID == "" {
		return MediaStatus{}, fmt.Errorf("facebook: container id is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/" + containerID,
		Token:  token,
		Query:  map[string]string{"fields": "id,status_code"},
	})
	if err != nil {
		return MediaStatus{}, err
	}
	var status MediaStatus
	if err := transport.DecodeJSON(res, &status); err != nil {
		return MediaStatus{}, err
	}
	return status, nil
}

func (c *Client) GetInstagramAccountInfo(ctx context.Context, token, igUserID string) (InstagramAccountInfo, error) {
	igUserID = strings.TrimSpace(igUserID)
	if igUserID == "" {
		return InstagramAccountInfo{}, fmt.Errorf("facebook: instagram user id is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/" + igUserID,
		Token:  token,
		Query:  map[string]string{"fields": "id,username,followers_count,media_count"},
	})
	if err != nil {
		return InstagramAccountInfo{}, err
	}
	var info InstagramAccountInfo
	if err := transport.DecodeJSON(res, &info); err != nil {
		return InstagramAccountInfo{}, err
	}
	return info, nil
}
