// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Album   SpotifyAlbum    `json:"album"`
	URI     string          `json:"uri"`
}

// SpotifySearchResponse represents the track portion of a search response.
type SpotifySearchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
		Total int            `json:"total"`
	} `json:"tracks"`
}

// SpotifyService implements [Catalog] against the Spotify Web API.
//
// Catalog lookup only needs the client credentials grant: no user consent, no
// refresh token storage, just an app token that [clientcredentials.Config]
// renews on expiry.
type SpotifyService struct {
	httpClient *http.Client
	baseURL    string
}

// NewSpotifyService creates a Spotify catalog client with the given app
// credentials.
func NewSpotifyService(ctx context.Context, clientID, clientSecret string) (*SpotifyService, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyTokenURL,
	}

	return &SpotifyService{
		httpClient: config.Client(ctx),
		baseURL:    spotifyBaseURL,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated GET against the Spotify API and decodes
// the JSON response into result.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// SearchTrack resolves a {song, artist} pair to its canonical catalog entry.
// The first search hit wins; no hit returns [shared.ErrTrackNotFound].
func (s *SpotifyService) SearchTrack(ctx context.Context, song, artist string) (*models.Track, error) {
	query := fmt.Sprintf("track:%s artist:%s", song, artist)
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=1", url.QueryEscape(query))

	var response SpotifySearchResponse
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	if len(response.Tracks.Items) == 0 {
		return nil, fmt.Errorf("%w: %s by %s", shared.ErrTrackNotFound, song, artist)
	}

	hit := response.Tracks.Items[0]
	track := &models.Track{
		Song:     hit.Name,
		Artist:   artist,
		URI:      hit.URI,
		CoverURL: smallestImage(hit.Album.Images),
	}
	if len(hit.Artists) > 0 {
		track.Artist = hit.Artists[0].Name
	}

	return track, nil
}

// smallestImage picks the lowest-resolution cover, enough for a thumbnail.
func smallestImage(images []SpotifyImage) string {
	best := ""
	bestArea := 0
	for _, img := range images {
		area := img.Height * img.Width
		if best == "" || (area > 0 && (bestArea == 0 || area < bestArea)) {
			best = img.URL
			if area > 0 {
				bestArea = area
			}
		}
	}
	return best
}
