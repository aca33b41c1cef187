package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeAPI serves a two-page search listing and a details endpoint.
type fakeAPI struct {
	searchCalls  int
	detailsCalls int
	failDetails  bool
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		f.searchCalls++

		page := map[string]any{}
		if r.URL.Query().Get("pageToken") == "" {
			page["items"] = []map[string]any{
				searchItem("vid1", "KILL TONY #700"),
				searchItem("vid2", "KILL TONY #701"),
			}
			page["nextPageToken"] = "page2"
		} else {
			page["items"] = []map[string]any{
				searchItem("vid3", "KILL TONY #702"),
			}
		}
		_ = json.NewEncoder(w).Encode(page)
	})

	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		f.detailsCalls++
		if f.failDetails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		ids := strings.Split(r.URL.Query().Get("id"), ",")
		items := make([]map[string]any, 0, len(ids))
		for i, id := range ids {
			items = append(items, map[string]any{
				"id":             id,
				"snippet":        map[string]any{"description": "description of " + id},
				"contentDetails": map[string]any{"duration": fmt.Sprintf("PT%dM", i+1)},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	})

	return mux
}

func searchItem(id, title string) map[string]any {
	return map[string]any{
		"id": map[string]any{"videoId": id},
		"snippet": map[string]any{
			"title":       title,
			"publishedAt": "2024-03-01T12:00:00Z",
		},
	}
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	client := NewClient("test-key")
	client.SetBaseURL(server.URL)
	return client
}

func TestFetchVideos_PaginatesAndFillsDetails(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api)

	videos, err := client.FetchVideos(context.Background(), "chan1", FetchOptions{FetchAll: true})
	if err != nil {
		t.Fatalf("FetchVideos failed: %v", err)
	}

	if len(videos) != 3 {
		t.Fatalf("Expected 3 videos, got %d", len(videos))
	}
	if api.searchCalls != 2 {
		t.Errorf("Expected 2 search pages, got %d", api.searchCalls)
	}

	if videos[0].ID != "vid1" || videos[0].Title != "KILL TONY #700" {
		t.Errorf("Unexpected first video: %+v", videos[0])
	}
	if videos[0].URL != "https://www.youtube.com/watch?v=vid1" {
		t.Errorf("Unexpected watch URL: %s", videos[0].URL)
	}
	if videos[0].DurationSeconds != 60 {
		t.Errorf("Expected duration 60, got %d", videos[0].DurationSeconds)
	}
	if videos[2].Description != "description of vid3" {
		t.Errorf("Unexpected description: %q", videos[2].Description)
	}
}

func TestFetchVideos_RespectsMaxVideos(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api)

	videos, err := client.FetchVideos(context.Background(), "chan1", FetchOptions{MaxVideos: 2})
	if err != nil {
		t.Fatalf("FetchVideos failed: %v", err)
	}

	if len(videos) != 2 {
		t.Fatalf("Expected 2 videos, got %d", len(videos))
	}
	if api.searchCalls != 1 {
		t.Errorf("Expected 1 search page when first page satisfies the cap, got %d", api.searchCalls)
	}
}

func TestFetchVideos_ListingFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient("bad-key")
	client.SetBaseURL(server.URL)

	_, err := client.FetchVideos(context.Background(), "chan1", FetchOptions{})
	if err == nil {
		t.Fatal("Expected error for non-success listing response, got nil")
	}
	if !strings.Contains(err.Error(), "status 403") {
		t.Errorf("Expected status in error, got: %v", err)
	}
}

func TestFetchVideos_DetailsFailureDegrades(t *testing.T) {
	api := &fakeAPI{failDetails: true}
	client := newTestClient(t, api)

	videos, err := client.FetchVideos(context.Background(), "chan1", FetchOptions{FetchAll: true})
	if err != nil {
		t.Fatalf("FetchVideos should not fail on a details batch failure: %v", err)
	}

	for _, video := range videos {
		if video.DurationSeconds != 0 || video.Description != "" {
			t.Errorf("Expected zero defaults for %s, got %+v", video.ID, video)
		}
	}
}

func TestFetchVideos_RequiresCredentials(t *testing.T) {
	client := NewClient("")
	if _, err := client.FetchVideos(context.Background(), "chan1", FetchOptions{}); err == nil {
		t.Fatal("Expected error when API key is missing")
	}

	client = NewClient("key")
	if _, err := client.FetchVideos(context.Background(), "", FetchOptions{}); err == nil {
		t.Fatal("Expected error when channel ID is missing")
	}
}
