package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sahilm27/linklater/internal/apperrors"
	"github.com/sahilm27/linklater/internal/models"
	"github.com/sahilm27/linklater/internal/transfer"
)

const (
	linkedinAPIBase = "https://api.linkedin.com"

	restliProtocolHeader = "X-Restli-Protocol-Version"
	restliProtocolValue  = "2.0.0"
	restliIDHeader       = "x-restli-id"

	linkedinCallTimeout = 30 * time.Second

	feedshareRecipe = "urn:li:digitalmediaRecipe:feedshare-image"
	ugcIdentifier   = "urn:li:userGeneratedContent"
)

// LinkedinClient wraps the three calls the publishing pipeline makes
// against the LinkedIn REST API.
type LinkedinClient interface {
	RegisterImageUpload(ctx context.Context, accessToken, authorURN string) (*transfer.ImageUploadSlot, error)
	UploadBinary(ctx context.Context, uploadURL, accessToken string, data []byte) error
	CreatePost(ctx context.Context, accessToken string, params *transfer.UGCPostParams) (string, error)
}

type linkedinClient struct {
	baseURL string
	http    *http.Client
}

func NewLinkedinClient() LinkedinClient {
	return &linkedinClient{
		baseURL: linkedinAPIBase,
		http:    &http.Client{Timeout: linkedinCallTimeout},
	}
}

func (c *linkedinClient) RegisterImageUpload(ctx context.Context, accessToken, authorURN string) (*transfer.ImageUploadSlot, error) {
	payload := transfer.RegisterUploadRequest{
		RegisterUploadRequest: transfer.RegisterUploadBody{
			Recipes: []string{feedshareRecipe},
			Owner:   authorURN,
			ServiceRelationships: []transfer.ServiceRelationship{
				{RelationshipType: "OWNER", Identifier: ugcIdentifier},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling register upload payload: %w", err)
	}

	url := c.baseURL + "/v2/assets?action=registerUpload"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	c.setHeaders(req, accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError("registerUpload", resp)
	}

	var result transfer.RegisterUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error parsing register upload response: %w", err)
	}

	return &transfer.ImageUploadSlot{
		UploadURL: result.Value.UploadMechanism.MediaUploadHTTPRequest.UploadURL,
		AssetURN:  result.Value.Asset,
	}, nil
}

func (c *linkedinClient) UploadBinary(ctx context.Context, uploadURL, accessToken string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return upstreamError("uploadBinary", resp)
	}

	return nil
}

// CreatePost publishes a UGC post and returns the created entity id from
// the x-restli-id response header.
func (c *linkedinClient) CreatePost(ctx context.Context, accessToken string, params *transfer.UGCPostParams) (string, error) {
	payload := buildUGCPost(params)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling ugc post payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v2/ugcPosts", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	c.setHeaders(req, accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", upstreamError("createPost", resp)
	}

	postID := resp.Header.Get(restliIDHeader)
	if postID == "" {
		return "", apperrors.ErrMissingCreateID
	}

	return postID, nil
}

func (c *linkedinClient) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(restliProtocolHeader, restliProtocolValue)
}

func upstreamError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &apperrors.UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
}

// buildUGCPost assembles the wire payload: no media block for reposts or
// image-less posts, a single bare entry for one image, and index-labeled
// entries when there are several.
func buildUGCPost(params *transfer.UGCPostParams) *transfer.UGCPostRequest {
	content := transfer.ShareContent{
		ShareCommentary:    transfer.TextBlock{Text: params.Text},
		ShareMediaCategory: "NONE",
	}

	if params.RepostOfURN == "" && len(params.AssetURNs) > 0 {
		content.ShareMediaCategory = "IMAGE"
		for i, urn := range params.AssetURNs {
			media := transfer.ShareMedia{Status: "READY", Media: urn}
			if len(params.AssetURNs) > 1 {
				media.Title = &transfer.TextBlock{Text: fmt.Sprintf("Image %d", i+1)}
			}
			content.Media = append(content.Media, media)
		}
	}

	post := &transfer.UGCPostRequest{
		Author:         params.AuthorURN,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]transfer.ShareContent{
			"com.linkedin.ugc.ShareContent": content,
		},
		Visibility: map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": mapVisibility(params.Visibility),
		},
	}

	if params.RepostOfURN != "" {
		post.ResponseContext = &transfer.ResponseContext{Parent: params.RepostOfURN}
	}

	return post
}

func mapVisibility(v string) string {
	switch v {
	case models.VisibilityPublic, models.VisibilityConnections:
		return v
	default:
		return models.VisibilityPublic
	}
}
