package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/veridex/internal/config"
)

const (
	defaultNumFrames    = 15
	defaultVideoVariant = "ed"
	defaultImageVariant = "vae"
)

// Client talks to the inference backend and normalizes its per-type
// payloads into the uniform Result shape. It is stateless and safe for
// concurrent use; it never retries on its own.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	videoTimeout time.Duration
	legacyRoutes bool
}

func NewClient(cfg config.BackendConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		// Per-call deadlines come from contexts; the http.Client
		// itself carries no timeout so video calls aren't capped
		// by the shorter default.
		httpClient:   &http.Client{},
		timeout:      cfg.Timeout,
		videoTimeout: cfg.VideoTimeout,
		legacyRoutes: cfg.LegacyRoutes,
	}
}

// Detect runs one analysis against the backend. The returned Result is
// always complete: prediction, clamped confidence and model label, or
// else an *Error — never partial state.
func (c *Client) Detect(ctx context.Context, req Request) (*Result, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	deadline := c.timeout
	if req.MediaType == MediaVideo {
		deadline = c.videoTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	body, contentType, err := buildBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(req), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// No response received: timeout, DNS, refused connection.
		return nil, &Error{Kind: ErrNetwork, MediaType: req.MediaType, cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: ErrNetwork, MediaType: req.MediaType, cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serverError(req.MediaType, resp.StatusCode, data)
	}

	return normalize(req.MediaType, data)
}

// Health checks the backend /api/v1/health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: ErrNetwork, cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: ErrNetwork, cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, serverError("", resp.StatusCode, data)
	}

	var hs HealthStatus
	if err := json.Unmarshal(data, &hs); err != nil {
		return nil, malformedErr("", "decode health response: %v", err)
	}
	return &hs, nil
}

func validate(req *Request) error {
	if !req.MediaType.Valid() {
		return validationErr(req.MediaType, "unsupported media type %q", string(req.MediaType))
	}

	if req.MediaType == MediaText {
		if strings.TrimSpace(req.Text) == "" {
			return validationErr(MediaText, "no text provided")
		}
		return nil
	}

	if len(req.Payload) == 0 {
		return validationErr(req.MediaType, "no file provided")
	}
	if req.Filename == "" {
		req.Filename = "upload"
	}

	switch req.MediaType {
	case MediaVideo:
		if req.Options.NumFrames <= 0 {
			req.Options.NumFrames = defaultNumFrames
		}
		if req.Options.ModelVariant == "" {
			req.Options.ModelVariant = defaultVideoVariant
		}
	case MediaImage:
		if req.Options.ModelVariant == "" {
			req.Options.ModelVariant = defaultImageVariant
		}
	}
	if v := req.Options.ModelVariant; v != "" && v != "ed" && v != "vae" {
		return validationErr(req.MediaType, "unknown model variant %q", v)
	}
	return nil
}

func (c *Client) endpoint(req Request) string {
	var path string
	q := url.Values{}

	switch req.MediaType {
	case MediaVideo:
		path = "/api/v1/detect/video"
		q.Set("num_frames", strconv.Itoa(req.Options.NumFrames))
		q.Set("model", req.Options.ModelVariant)
	case MediaImage:
		path = "/api/v1/detect/image"
		if c.legacyRoutes {
			path = "/api/v1/image/detect"
		}
		q.Set("variant", req.Options.ModelVariant)
	case MediaAudio:
		path = "/api/v1/detect/audio"
		if c.legacyRoutes {
			path = "/api/v1/audio/detect"
		}
	case MediaText:
		path = "/api/v1/ai/detect"
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func buildBody(req Request) (io.Reader, string, error) {
	if req.MediaType == MediaText {
		payload, err := json.Marshal(map[string]string{"text": req.Text})
		if err != nil {
			return nil, "", fmt.Errorf("marshal text payload: %w", err)
		}
		return bytes.NewReader(payload), "application/json", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{
		fmt.Sprintf(`form-data; name="file"; filename=%q`, req.Filename),
	}
	header["Content-Type"] = []string{ContentTypeFor(req.Filename, req.Payload)}

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart file part: %w", err)
	}
	if _, err := part.Write(req.Payload); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

func serverError(mt MediaType, status int, body []byte) *Error {
	var er errorResponse
	_ = json.Unmarshal(body, &er)
	return &Error{
		Kind:       ErrServer,
		MediaType:  mt,
		StatusCode: status,
		Detail:     er.Detail,
	}
}

func normalize(mt MediaType, data []byte) (*Result, error) {
	switch mt {
	case MediaVideo:
		var resp videoResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, malformedErr(mt, "decode video response: %v", err)
		}
		return normalizeVideo(&resp)
	case MediaImage:
		var resp imageResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, malformedErr(mt, "decode image response: %v", err)
		}
		return normalizeImage(&resp)
	case MediaAudio:
		var resp audioResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, malformedErr(mt, "decode audio response: %v", err)
		}
		return normalizeAudio(&resp)
	case MediaText:
		var resp textResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, malformedErr(mt, "decode text response: %v", err)
		}
		return normalizeText(&resp)
	}
	return nil, validationErr(mt, "unsupported media type %q", string(mt))
}
