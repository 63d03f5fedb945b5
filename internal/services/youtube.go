// YouTube Data API v3 implementation of [CommentSource]
//
// Response types based on https://developers.google.com/youtube/v3/docs
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

const youtubeBaseURL = "https://www.googleapis.com/youtube/v3"

// Comment collection bounds per song. Video results beyond the first few rarely
// add signal, and comment pages past the first are mostly replies and spam.
const (
	DefaultMaxComments    = 25
	maxVideosPerSong      = 5
	commentPageSize       = 50
	commentOrderRelevance = "relevance"
)

// YouTubeSearchResponse is the subset of a search.list response we consume.
type YouTubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

// YouTubeCommentThreadsResponse is the subset of a commentThreads.list response
// we consume.
type YouTubeCommentThreadsResponse struct {
	Items []struct {
		Snippet struct {
			TopLevelComment struct {
				Snippet struct {
					TextDisplay  string `json:"textDisplay"`
					TextOriginal string `json:"textOriginal"`
					LikeCount    int    `json:"likeCount"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// YouTubeService implements [CommentSource] against the YouTube Data API.
type YouTubeService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewYouTubeService creates a YouTube comment scraper with the given API key.
func NewYouTubeService(apiKey string) (*YouTubeService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: youtube api_key", shared.ErrMissingCredentials)
	}

	return &YouTubeService{
		apiKey:     apiKey,
		baseURL:    youtubeBaseURL,
		httpClient: http.DefaultClient,
	}, nil
}

func (y *YouTubeService) Name() string {
	return "YouTube"
}

func (y *YouTubeService) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	params.Set("key", y.apiKey)
	apiURL := y.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error.Message != "" {
			return fmt.Errorf("%w: youtube API status %d: %s", shared.ErrAPIRequest, resp.StatusCode, errResp.Error.Message)
		}
		return fmt.Errorf("%w: youtube API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// searchVideos finds candidate video IDs for a song.
func (y *YouTubeService) searchVideos(ctx context.Context, song, artist string) ([]string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", fmt.Sprintf("%s %s", artist, song))
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(maxVideosPerSong))

	var response YouTubeSearchResponse
	if err := y.doRequest(ctx, "/search", params, &response); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(response.Items))
	for _, item := range response.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	return ids, nil
}

// videoComments fetches top-level comments for one video, most relevant first.
func (y *YouTubeService) videoComments(ctx context.Context, videoID string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("videoId", videoID)
	params.Set("order", commentOrderRelevance)
	params.Set("textFormat", "plainText")
	if limit > commentPageSize {
		limit = commentPageSize
	}
	params.Set("maxResults", strconv.Itoa(limit))

	var response YouTubeCommentThreadsResponse
	if err := y.doRequest(ctx, "/commentThreads", params, &response); err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(response.Items))
	for _, item := range response.Items {
		text := item.Snippet.TopLevelComment.Snippet.TextOriginal
		if text == "" {
			text = item.Snippet.TopLevelComment.Snippet.TextDisplay
		}
		if text != "" {
			texts = append(texts, text)
		}
	}
	return texts, nil
}

// Comments collects up to maxComments listener comments for a song, walking the
// top search results in order. Videos with comments disabled are skipped; the
// call fails only when every video yields nothing.
func (y *YouTubeService) Comments(ctx context.Context, song, artist string, maxComments int) ([]models.Comment, error) {
	if maxComments <= 0 {
		maxComments = DefaultMaxComments
	}

	videoIDs, err := y.searchVideos(ctx, song, artist)
	if err != nil {
		return nil, err
	}
	if len(videoIDs) == 0 {
		return nil, fmt.Errorf("%w: no videos found for %s by %s", shared.ErrNoComments, song, artist)
	}

	comments := make([]models.Comment, 0, maxComments)
	for _, videoID := range videoIDs {
		if len(comments) >= maxComments {
			break
		}

		texts, err := y.videoComments(ctx, videoID, maxComments-len(comments))
		if err != nil {
			// Comments disabled or quota blip on one video; try the next.
			continue
		}

		for _, text := range texts {
			if len(comments) >= maxComments {
				break
			}
			comments = append(comments, models.Comment{
				Song:    song,
				Artist:  artist,
				VideoID: videoID,
				Text:    text,
			})
		}
	}

	if len(comments) == 0 {
		return nil, fmt.Errorf("%w: %s by %s", shared.ErrNoComments, song, artist)
	}

	return comments, nil
}
