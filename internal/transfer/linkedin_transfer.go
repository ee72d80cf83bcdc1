package transfer

// Request and response shapes for the LinkedIn REST API. Field names
// follow the wire format, including the fully-qualified union keys.

type RegisterUploadRequest struct {
	RegisterUploadRequest RegisterUploadBody `json:"registerUploadRequest"`
}

type RegisterUploadBody struct {
	Recipes              []string              `json:"recipes"`
	Owner                string                `json:"owner"`
	ServiceRelationships []ServiceRelationship `json:"serviceRelationships"`
}

type ServiceRelationship struct {
	RelationshipType string `json:"relationshipType"`
	Identifier       string `json:"identifier"`
}

type RegisterUploadResponse struct {
	Value RegisterUploadValue `json:"value"`
}

type RegisterUploadValue struct {
	Asset           string          `json:"asset"`
	UploadMechanism UploadMechanism `json:"uploadMechanism"`
}

type UploadMechanism struct {
	MediaUploadHTTPRequest MediaUploadHTTPRequest `json:"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"`
}

type MediaUploadHTTPRequest struct {
	UploadURL string            `json:"uploadUrl"`
	Headers   map[string]string `json:"headers"`
}

// ImageUploadSlot is the distilled result of registering an upload: a
// one-time URL to push bytes to and the asset URN to reference later.
type ImageUploadSlot struct {
	UploadURL string
	AssetURN  string
}

type UGCPostRequest struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]ShareContent `json:"specificContent"`
	ResponseContext *ResponseContext        `json:"responseContext,omitempty"`
	Visibility      map[string]string       `json:"visibility"`
}

type ShareContent struct {
	ShareCommentary    TextBlock    `json:"shareCommentary"`
	ShareMediaCategory string       `json:"shareMediaCategory"`
	Media              []ShareMedia `json:"media,omitempty"`
}

type TextBlock struct {
	Text string `json:"text"`
}

type ShareMedia struct {
	Status string     `json:"status"`
	Media  string     `json:"media"`
	Title  *TextBlock `json:"title,omitempty"`
}

type ResponseContext struct {
	Parent string `json:"parent"`
}

// UGCPostParams is what callers hand to the client; the wire payload is
// built from it.
type UGCPostParams struct {
	AuthorURN   string
	Text        string
	AssetURNs   []string
	Visibility  string
	RepostOfURN string
}

type LinkedinUserInfo struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
}
