package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"baduanjin-watch/internal/model"
)

const (
	statusRequestTimeout  = 5 * time.Second
	generalRequestTimeout = 30 * time.Second
	uploadRequestTimeout  = 10 * time.Minute
)

// Client talks JSON-over-HTTP to the Baduanjin analysis backend. All
// endpoints except Login require a bearer token.
type Client struct {
	baseURL string
	token   string

	status  *http.Client
	general *http.Client
	upload  *http.Client
}

func New(baseURL, token string) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse server URL %q: %w", base, err)
	}
	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(token),
		status:  &http.Client{Timeout: statusRequestTimeout},
		general: &http.Client{Timeout: generalRequestTimeout},
		upload:  &http.Client{Timeout: uploadRequestTimeout},
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken replaces the bearer token after a fresh login.
func (c *Client) SetToken(token string) {
	c.token = strings.TrimSpace(token)
}

type LoginResult struct {
	Token  string `json:"access_token"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
}

func (c *Client) Login(email, password string) (LoginResult, error) {
	payload := map[string]string{"email": email, "password": password}
	var res LoginResult
	if err := c.doJSON(c.general, http.MethodPost, "/api/auth/login", payload, &res); err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	if strings.TrimSpace(res.Token) == "" {
		return LoginResult{}, fmt.Errorf("login response did not include access_token")
	}
	return res, nil
}

func (c *Client) ListVideos() ([]model.Video, error) {
	var videos []model.Video
	if err := c.doJSON(c.general, http.MethodGet, "/api/videos", nil, &videos); err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return videos, nil
}

// GetVideo fetches the resource record, including processing_status and the
// analysis artifact paths. Uses the short status timeout because poll ticks
// go through here.
func (c *Client) GetVideo(videoID int64) (model.Video, error) {
	var video model.Video
	if err := c.doJSON(c.status, http.MethodGet, fmt.Sprintf("/api/videos/%d", videoID), nil, &video); err != nil {
		return model.Video{}, fmt.Errorf("get video %d: %w", videoID, err)
	}
	return video, nil
}

func (c *Client) DeleteVideo(videoID int64) error {
	if err := c.doJSON(c.general, http.MethodDelete, fmt.Sprintf("/api/videos/%d", videoID), nil, nil); err != nil {
		return fmt.Errorf("delete video %d: %w", videoID, err)
	}
	return nil
}

// StartAnalysis asks the backend to begin pose analysis. The backend replies
// with a started ack; callers should begin polling even when this errors,
// since the job may have started anyway.
func (c *Client) StartAnalysis(videoID int64) error {
	if err := c.doJSON(c.general, http.MethodPost, fmt.Sprintf("/api/videos/%d/analyze", videoID), nil, nil); err != nil {
		return fmt.Errorf("start analysis for video %d: %w", videoID, err)
	}
	return nil
}

type CompletionCheck struct {
	Completed bool `json:"completed"`
}

// CheckCompletion inspects server-side artifact existence directly, bypassing
// the video's own status field.
func (c *Client) CheckCompletion(videoID int64) (bool, error) {
	var res CompletionCheck
	if err := c.doJSON(c.status, http.MethodGet, fmt.Sprintf("/api/videos/%d/check-completion", videoID), nil, &res); err != nil {
		return false, fmt.Errorf("check completion for video %d: %w", videoID, err)
	}
	return res.Completed, nil
}

// ForceComplete corrects the backend's stored status when artifacts exist but
// the status flag lags. Idempotent on the server side.
func (c *Client) ForceComplete(videoID int64) error {
	if err := c.doJSON(c.general, http.MethodPost, fmt.Sprintf("/api/videos/%d/force-complete", videoID), nil, nil); err != nil {
		return fmt.Errorf("force-complete video %d: %w", videoID, err)
	}
	return nil
}

func (c *Client) StartAudioConversion(videoID int64) error {
	if err := c.doJSON(c.general, http.MethodPost, fmt.Sprintf("/api/videos/%d/convert-audio", videoID), nil, nil); err != nil {
		return fmt.Errorf("start audio conversion for video %d: %w", videoID, err)
	}
	return nil
}

func (c *Client) StartWebConversion(videoID int64) error {
	if err := c.doJSON(c.general, http.MethodPost, fmt.Sprintf("/api/videos/%d/convert-web", videoID), nil, nil); err != nil {
		return fmt.Errorf("start web conversion for video %d: %w", videoID, err)
	}
	return nil
}

type ConversionStatus struct {
	Status string `json:"status"`
}

func (c *Client) GetConversionStatus(videoID int64) (string, error) {
	var res ConversionStatus
	if err := c.doJSON(c.status, http.MethodGet, fmt.Sprintf("/api/videos/%d/conversion-status", videoID), nil, &res); err != nil {
		return "", fmt.Errorf("conversion status for video %d: %w", videoID, err)
	}
	return res.Status, nil
}

// ResetStatus returns the video to a non-processing state for manual recovery.
func (c *Client) ResetStatus(videoID int64) error {
	if err := c.doJSON(c.general, http.MethodPost, fmt.Sprintf("/api/videos/%d/reset-status", videoID), nil, nil); err != nil {
		return fmt.Errorf("reset status for video %d: %w", videoID, err)
	}
	return nil
}

// UploadVideo streams a local file as multipart form data. The body goes
// through a pipe; practice recordings are too large to buffer in memory.
func (c *Client) UploadVideo(path, title, brocadeType string) (model.Video, error) {
	file, err := os.Open(path)
	if err != nil {
		return model.Video{}, fmt.Errorf("open upload file: %w", err)
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		defer file.Close()
		err := writeUploadForm(writer, file, path, title, brocadeType)
		if closeErr := writer.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("build upload form: %w", closeErr)
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/videos/upload", pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return model.Video{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuth(req)

	resp, err := c.upload.Do(req)
	if err != nil {
		return model.Video{}, fmt.Errorf("upload video: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.Video{}, fmt.Errorf("upload video: %s", responseError(resp))
	}

	var video model.Video
	if err := json.NewDecoder(resp.Body).Decode(&video); err != nil {
		return model.Video{}, fmt.Errorf("parse upload response: %w", err)
	}
	return video, nil
}

func writeUploadForm(writer *multipart.Writer, file *os.File, path, title, brocadeType string) error {
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("read upload file: %w", err)
	}
	if err := writer.WriteField("title", title); err != nil {
		return fmt.Errorf("build upload form: %w", err)
	}
	if strings.TrimSpace(brocadeType) != "" {
		if err := writer.WriteField("brocade_type", brocadeType); err != nil {
			return fmt.Errorf("build upload form: %w", err)
		}
	}
	return nil
}

func (c *Client) doJSON(client *http.Client, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.setAuth(req)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s", responseError(resp))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", "baduanjin-watch")
}

func responseError(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		return fmt.Sprintf("request failed (%d)", resp.StatusCode)
	}
	return fmt.Sprintf("request failed (%d): %s", resp.StatusCode, detail)
}
