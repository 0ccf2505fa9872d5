package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(srv.URL, "test-token")
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestGetVideo_SendsBearerTokenAndDecodes(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/videos/7" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                  7,
			"user_id":             1,
			"title":               "Morning practice",
			"processing_status":   "processing",
			"analyzed_video_path": "results/7_analyzed.mp4",
		})
	}))

	video, err := client.GetVideo(7)
	if err != nil {
		t.Fatal(err)
	}
	if video.ID != 7 || video.UserID != 1 {
		t.Fatalf("unexpected record: %+v", video)
	}
	if video.ProcessingStatus != "processing" {
		t.Fatalf("processing_status = %q", video.ProcessingStatus)
	}
	if video.KeypointsPath != "" {
		t.Fatalf("keypoints_path should be empty, got %q", video.KeypointsPath)
	}
}

func TestLogin_RequiresToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode login payload: %v", err)
		}
		if payload["email"] != "learner@example.com" {
			t.Errorf("email = %q", payload["email"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fresh-token",
			"user_id":      12,
		})
	}))

	res, err := client.Login("learner@example.com", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if res.Token != "fresh-token" || res.UserID != 12 {
		t.Fatalf("unexpected login result: %+v", res)
	}
}

func TestLogin_MissingTokenIsError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"user_id": 12})
	}))

	if _, err := client.Login("learner@example.com", "secret"); err == nil {
		t.Fatalf("expected error for response without access_token")
	}
}

func TestDoJSON_Non2xxIncludesBodySnippet(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":"video is already processing"}`))
	}))

	err := client.StartAnalysis(7)
	if err == nil {
		t.Fatalf("expected error for 409 response")
	}
	if got := err.Error(); !strings.Contains(got, "409") || !strings.Contains(got, "already processing") {
		t.Fatalf("error should carry status and body snippet, got %q", got)
	}
}

func TestCheckCompletion(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/videos/7/check-completion" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"completed": true})
	}))

	completed, err := client.CheckCompletion(7)
	if err != nil {
		t.Fatal(err)
	}
	if !completed {
		t.Fatalf("expected completed=true")
	}
}

func TestGetConversionStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/videos/3/conversion-status" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "completed"})
	}))

	status, err := client.GetConversionStatus(3)
	if err != nil {
		t.Fatal(err)
	}
	if status != "completed" {
		t.Fatalf("status = %q", status)
	}
}

func TestUploadVideo_MultipartFields(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/videos/upload" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		// The body must arrive streamed, not pre-buffered with a known length.
		if len(r.TransferEncoding) != 1 || r.TransferEncoding[0] != "chunked" {
			t.Errorf("expected chunked upload body, got transfer encoding %v (content length %d)", r.TransferEncoding, r.ContentLength)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("title"); got != "Evening session" {
			t.Errorf("title = %q", got)
		}
		if got := r.FormValue("brocade_type"); got != "FIRST" {
			t.Errorf("brocade_type = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			_ = file.Close()
			if header.Filename != "clip.mp4" {
				t.Errorf("filename = %q", header.Filename)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                21,
			"user_id":           1,
			"title":             "Evening session",
			"processing_status": "uploaded",
		})
	}))

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatal(err)
	}

	video, err := client.UploadVideo(path, "Evening session", "FIRST")
	if err != nil {
		t.Fatal(err)
	}
	if video.ID != 21 || video.ProcessingStatus != "uploaded" {
		t.Fatalf("unexpected upload result: %+v", video)
	}
}

func TestNew_RejectsEmptyServerURL(t *testing.T) {
	if _, err := New("   ", "token"); err == nil {
		t.Fatalf("expected error for empty server URL")
	}
}
