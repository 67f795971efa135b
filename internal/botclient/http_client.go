package botclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/google/uuid"

	"github.com/cardloop/card-courier/internal/domain"
)

// HTTPClient talks to the chat platform's bot API over HTTP.
// The base URL is injected from config so tests can point to a local mock.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type uploadFileResponse struct {
	ID uuid.UUID `json:"id"`
}

// UploadFile POSTs a multipart body to /files?channelId=<id> and expects a
// 201 Created response carrying the new file id.
func (c *HTTPClient) UploadFile(ctx context.Context, channelID uuid.UUID, data []byte, mimeType string) (uuid.UUID, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="card.png"`)
	hdr.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return uuid.Nil, fmt.Errorf("write multipart part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return uuid.Nil, fmt.Errorf("close multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/files?channelId=%s", c.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var uploadResp uploadFileResponse
	if err := c.do(req, http.StatusCreated, &uploadResp); err != nil {
		return uuid.Nil, err
	}
	return uploadResp.ID, nil
}

func (c *HTTPClient) GetUser(ctx context.Context, userID uuid.UUID) (domain.Sender, error) {
	url := fmt.Sprintf("%s/users/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Sender{}, fmt.Errorf("create request: %w", err)
	}

	var sender domain.Sender
	if err := c.do(req, http.StatusOK, &sender); err != nil {
		return domain.Sender{}, err
	}
	return sender, nil
}

type postMessageRequest struct {
	Content string `json:"content"`
	Embed   bool   `json:"embed"`
}

func (c *HTTPClient) PostMessage(ctx context.Context, channelID uuid.UUID, content string) error {
	body, err := json.Marshal(postMessageRequest{Content: content})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, http.StatusCreated, nil)
}

// do sends the request with bot credentials attached, maps any non-expected
// status to a domain.APIError carrying the response body, and decodes the
// JSON response into out when out is non-nil.
func (c *HTTPClient) do(req *http.Request, wantStatus int, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &domain.APIError{Status: resp.StatusCode, Message: string(bytes.TrimSpace(msg))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// compile-time check that HTTPClient implements BotClient
var _ BotClient = (*HTTPClient)(nil)
