package songs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"justanote/pkg/models"
)

// DefaultClipLength is the clip window in seconds for linked songs
const DefaultClipLength = 30

var (
	youtubePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/watch\?.*v=([a-zA-Z0-9_-]{11})`),
	}
	youtubeStart   = regexp.MustCompile(`[?&#]t=([0-9hms]+)`)
	youtubeOffset  = regexp.MustCompile(`^(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s?)?$`)
	spotifyPattern = regexp.MustCompile(`spotify\.com/track/([a-zA-Z0-9]+)`)
	spotifyTitle   = regexp.MustCompile(`^(.+?)\s*·\s*(.+)$`)
)

// YouTubeLink is a parsed YouTube URL
type YouTubeLink struct {
	VideoID   string
	StartTime int
}

// ParseYouTube extracts the video id and optional start offset
func ParseYouTube(link string) (YouTubeLink, bool) {
	for _, p := range youtubePatterns {
		if m := p.FindStringSubmatch(link); m != nil {
			yt := YouTubeLink{VideoID: m[1]}
			if t := youtubeStart.FindStringSubmatch(link); t != nil {
				yt.StartTime = parseOffset(t[1])
			}
			return yt, true
		}
	}
	return YouTubeLink{}, false
}

// parseOffset reads a YouTube start offset, either plain seconds ("90") or
// the unit form ("1h2m3s", "1m30s"). Anything else starts at zero.
func parseOffset(s string) int {
	m := youtubeOffset.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	total := 0
	for i, unit := range []int{3600, 60, 1} {
		if m[i+1] != "" {
			n, _ := strconv.Atoi(m[i+1])
			total += n * unit
		}
	}
	return total
}

// ParseSpotify extracts the track id from a Spotify track URL
func ParseSpotify(link string) (string, bool) {
	m := spotifyPattern.FindStringSubmatch(link)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ResolveLink turns a pasted YouTube or Spotify link into a song reference.
// It returns nil for unrecognised links. When metadata lookup fails the
// reference still carries the ids and clip window.
func (c *Client) ResolveLink(ctx context.Context, link string) *models.SongRef {
	link = strings.TrimSpace(link)
	if yt, ok := ParseYouTube(link); ok {
		return c.resolveYouTube(ctx, yt)
	}
	if trackID, ok := ParseSpotify(link); ok {
		return c.resolveSpotify(ctx, trackID)
	}
	return nil
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func (c *Client) fetchOEmbed(ctx context.Context, endpoint, target string) (*oembedResponse, error) {
	q := url.Values{}
	q.Set("url", target)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oembed returned %s", resp.Status)
	}
	var body oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode oembed: %w", err)
	}
	return &body, nil
}

func (c *Client) resolveYouTube(ctx context.Context, yt YouTubeLink) *models.SongRef {
	watchURL := "https://www.youtube.com/watch?v=" + yt.VideoID
	ref := &models.SongRef{
		Type:       models.SongYouTube,
		VideoID:    yt.VideoID,
		URL:        watchURL,
		Title:      "Unknown Track",
		Artist:     "Unknown Artist",
		AlbumCover: "https://img.youtube.com/vi/" + yt.VideoID + "/maxresdefault.jpg",
		StartTime:  yt.StartTime,
		EndTime:    yt.StartTime + DefaultClipLength,
	}

	meta, err := c.fetchOEmbed(ctx, c.opts.YouTubeOEmbedURL, watchURL)
	if err != nil {
		c.logger.Warn("youtube metadata lookup failed", zap.String("video_id", yt.VideoID), zap.Error(err))
		return ref
	}
	// video titles are usually "Artist - Title"
	if artist, title, ok := strings.Cut(meta.Title, "-"); ok && strings.TrimSpace(title) != "" {
		ref.Artist = strings.TrimSpace(artist)
		ref.Title = strings.TrimSpace(title)
	} else if meta.Title != "" {
		ref.Title = strings.TrimSpace(meta.Title)
		if meta.AuthorName != "" {
			ref.Artist = meta.AuthorName
		}
	}
	if meta.ThumbnailURL != "" {
		ref.AlbumCover = meta.ThumbnailURL
	}
	return ref
}

func (c *Client) resolveSpotify(ctx context.Context, trackID string) *models.SongRef {
	trackURL := "https://open.spotify.com/track/" + trackID
	ref := &models.SongRef{
		Type:    models.SongSpotify,
		TrackID: trackID,
		URL:     trackURL,
		Title:   "Unknown Track",
		Artist:  "Unknown Artist",
		EndTime: DefaultClipLength,
	}

	meta, err := c.fetchOEmbed(ctx, c.opts.SpotifyOEmbedURL, trackURL)
	if err == nil && meta.Title != "" {
		if m := spotifyTitle.FindStringSubmatch(meta.Title); m != nil {
			ref.Title, ref.Artist = m[1], m[2]
		} else {
			ref.Title = meta.Title
		}
		ref.AlbumCover = meta.ThumbnailURL
		return ref
	}
	if err != nil {
		c.logger.Debug("spotify oembed failed, trying page tags", zap.String("track_id", trackID), zap.Error(err))
	}

	og, err := c.fetchOpenGraph(ctx, c.opts.SpotifyTrackURL+trackID)
	if err != nil {
		c.logger.Warn("spotify metadata lookup failed", zap.String("track_id", trackID), zap.Error(err))
		return ref
	}
	if t := og["og:title"]; t != "" {
		ref.Title = t
	}
	// og:description reads "Artist · Album · Song · Year"
	if d := og["og:description"]; d != "" {
		if artist, _, ok := strings.Cut(d, "·"); ok {
			ref.Artist = strings.TrimSpace(artist)
		}
	}
	if img := og["og:image"]; img != "" {
		ref.AlbumCover = img
	}
	return ref
}

// fetchOpenGraph returns the og:* meta properties of the page at pageURL
func (c *Client) fetchOpenGraph(ctx context.Context, pageURL string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	props := make(map[string]string)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var property, content string
			for _, a := range n.Attr {
				switch a.Key {
				case "property":
					property = a.Val
				case "content":
					content = a.Val
				}
			}
			if strings.HasPrefix(property, "og:") {
				if _, seen := props[property]; !seen {
					props[property] = content
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if len(props) == 0 {
		return nil, fmt.Errorf("no open graph tags")
	}
	return props, nil
}
