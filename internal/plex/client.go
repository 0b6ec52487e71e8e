package plex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"plexdance/internal/config"
)

// Sentinel errors for the index failure taxonomy. ErrAuth always halts a
// run; ErrUnreachable halts setup calls but only consumes an attempt when it
// happens inside a bounded poll.
var (
	// ErrUnreachable indicates the server could not be reached or returned
	// an unexpected response.
	ErrUnreachable = errors.New("plex unreachable")
	// ErrAuth indicates the token was rejected.
	ErrAuth = errors.New("plex authentication failed")
)

const userAgent = "plexdance"

// Client talks to one Plex Media Server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client from configuration. Connection settings must be
// present; see config.RequirePlex.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := cfg.RequirePlex(); err != nil {
		return nil, err
	}
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Plex.URL, "/"),
		token:   cfg.Plex.Token,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Section describes one Plex library section.
type Section struct {
	Key       string     `json:"key"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Locations []Location `json:"Location"`
}

// Location is one root directory of a section, as Plex sees it.
type Location struct {
	Path string `json:"path"`
}

type sectionsContainer struct {
	MediaContainer struct {
		Directory []Section `json:"Directory"`
	} `json:"MediaContainer"`
}

// TrackMetadata is the raw per-track record returned by a section listing.
type TrackMetadata struct {
	RatingKey        string `json:"ratingKey"`
	ParentRatingKey  string `json:"parentRatingKey"`
	ParentTitle      string `json:"parentTitle"`
	GrandparentTitle string `json:"grandparentTitle"`
	Media            []struct {
		Part []struct {
			File string `json:"file"`
		} `json:"Part"`
	} `json:"Media"`
}

type tracksContainer struct {
	MediaContainer struct {
		Metadata []TrackMetadata `json:"Metadata"`
	} `json:"MediaContainer"`
}

// Sections lists all library sections.
func (c *Client) Sections(ctx context.Context) ([]Section, error) {
	body, err := c.get(ctx, "/library/sections", nil)
	if err != nil {
		return nil, err
	}
	var parsed sectionsContainer
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode sections: %v", ErrUnreachable, err)
	}
	return parsed.MediaContainer.Directory, nil
}

// MusicSection resolves the music section with the given title.
func (c *Client) MusicSection(ctx context.Context, title string) (Section, error) {
	sections, err := c.Sections(ctx)
	if err != nil {
		return Section{}, err
	}
	for _, section := range sections {
		if strings.EqualFold(section.Title, title) {
			if section.Type != "" && section.Type != "artist" {
				return Section{}, fmt.Errorf("library %q is type %q, not a music library", title, section.Type)
			}
			return section, nil
		}
	}
	return Section{}, fmt.Errorf("music library %q not found on server", title)
}

// Tracks lists every track in a section. Plex type 10 is "track".
func (c *Client) Tracks(ctx context.Context, sectionKey string) ([]TrackMetadata, error) {
	query := url.Values{"type": []string{"10"}}
	body, err := c.get(ctx, "/library/sections/"+sectionKey+"/all", query)
	if err != nil {
		return nil, err
	}
	var parsed tracksContainer
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode tracks: %v", ErrUnreachable, err)
	}
	return parsed.MediaContainer.Metadata, nil
}

// AlbumExists reports whether the album with the given rating key is still
// present in the index. A 404 means the album is gone, which during a dance
// is the desired outcome.
func (c *Client) AlbumExists(ctx context.Context, ratingKey string) (bool, error) {
	req, err := c.newRequest(ctx, "/library/metadata/"+ratingKey, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode >= 300:
		return false, fmt.Errorf("%w: metadata fetch returned %d", ErrUnreachable, resp.StatusCode)
	default:
		return true, nil
	}
}

// RefreshSection asks Plex to rescan a section, limited to path when path is
// non-empty.
func (c *Client) RefreshSection(ctx context.Context, sectionKey, path string) error {
	query := url.Values{}
	if path != "" {
		query.Set("path", path)
	}
	_, err := c.get(ctx, "/library/sections/"+sectionKey+"/refresh", query)
	return err
}

func (c *Client) newRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := c.newRequest(ctx, path, query)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrUnreachable, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnreachable, err)
	}
	return body, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
