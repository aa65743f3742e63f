package songs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"justanote/pkg/models"
)

const (
	searchLimit  = 15
	popularLimit = 15
	popularKey   = "\x00popular"
)

// Options configures a Client. Zero values fall back to the public endpoints.
type Options struct {
	SearchURL        string
	YouTubeOEmbedURL string
	SpotifyOEmbedURL string
	// SpotifyTrackURL is the page scraped for Open Graph tags when oEmbed fails
	SpotifyTrackURL string
	Timeout         time.Duration
	CacheSize       int
	CacheTTL        time.Duration
	// PopularTerms are searched in order until enough songs are found
	PopularTerms []string
}

func (o *Options) setDefaults() {
	if o.SearchURL == "" {
		o.SearchURL = "https://itunes.apple.com/search"
	}
	if o.YouTubeOEmbedURL == "" {
		o.YouTubeOEmbedURL = "https://www.youtube.com/oembed"
	}
	if o.SpotifyOEmbedURL == "" {
		o.SpotifyOEmbedURL = "https://open.spotify.com/oembed"
	}
	if o.SpotifyTrackURL == "" {
		o.SpotifyTrackURL = "https://open.spotify.com/track/"
	}
	if o.Timeout <= 0 {
		o.Timeout = 8 * time.Second
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 256
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 10 * time.Minute
	}
	if len(o.PopularTerms) == 0 {
		o.PopularTerms = []string{"top hits 2024", "arijit singh", "ed sheeran"}
	}
}

// Client looks up songs on iTunes and resolves YouTube and Spotify links
type Client struct {
	opts   Options
	http   *http.Client
	cache  *expirable.LRU[string, []models.SongRef]
	logger *zap.Logger
}

// NewClient creates a song lookup client
func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.setDefaults()
	return &Client{
		opts:   opts,
		http:   &http.Client{Timeout: opts.Timeout},
		cache:  expirable.NewLRU[string, []models.SongRef](opts.CacheSize, nil, opts.CacheTTL),
		logger: logger.Named("songs"),
	}
}

type itunesResponse struct {
	Results []itunesTrack `json:"results"`
}

type itunesTrack struct {
	Kind           string `json:"kind"`
	TrackID        int64  `json:"trackId"`
	TrackName      string `json:"trackName"`
	ArtistName     string `json:"artistName"`
	ArtworkURL100  string `json:"artworkUrl100"`
	ArtworkURL60   string `json:"artworkUrl60"`
	PreviewURL     string `json:"previewUrl"`
	TrackViewURL   string `json:"trackViewUrl"`
	TrackTimeMilli int64  `json:"trackTimeMillis"`
}

func (t itunesTrack) toSong() models.SongRef {
	title := t.TrackName
	if title == "" {
		title = "Unknown"
	}
	artist := t.ArtistName
	if artist == "" {
		artist = "Unknown Artist"
	}
	cover := strings.Replace(t.ArtworkURL100, "100x100", "300x300", 1)
	if cover == "" {
		cover = strings.Replace(t.ArtworkURL60, "60x60", "300x300", 1)
	}
	return models.SongRef{
		Type:       models.SongITunes,
		Title:      title,
		Artist:     artist,
		AlbumCover: cover,
		Preview:    t.PreviewURL,
		URL:        t.TrackViewURL,
		TrackID:    strconv.FormatInt(t.TrackID, 10),
		EndTime:    30,
	}
}

// parseITunes keeps only playable songs
func parseITunes(resp itunesResponse) []models.SongRef {
	songs := []models.SongRef{}
	for _, t := range resp.Results {
		if t.Kind != "song" || t.PreviewURL == "" {
			continue
		}
		songs = append(songs, t.toSong())
	}
	return songs
}

func (c *Client) fetchITunes(ctx context.Context, term string, limit int) ([]models.SongRef, error) {
	q := url.Values{}
	q.Set("term", term)
	q.Set("media", "music")
	q.Set("entity", "song")
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.SearchURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("itunes search returned %s", resp.Status)
	}
	var body itunesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode itunes response: %w", err)
	}
	return parseITunes(body), nil
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Search returns songs matching query. Lookup failures yield the matching
// entries of the built-in list, so callers only ever see a possibly empty slice.
func (c *Client) Search(ctx context.Context, query string) []models.SongRef {
	key := normalizeQuery(query)
	if key == "" {
		return []models.SongRef{}
	}
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	songs, err := c.fetchITunes(ctx, query, searchLimit)
	if err != nil {
		c.logger.Warn("song search failed", zap.String("query", key), zap.Error(err))
	}
	if len(songs) > 0 {
		c.cache.Add(key, songs)
		return songs
	}
	return filterFallback(key)
}

// Popular returns a mix of popular songs, or the built-in list when iTunes
// cannot be reached
func (c *Client) Popular(ctx context.Context) []models.SongRef {
	if cached, ok := c.cache.Get(popularKey); ok {
		return cached
	}

	var all []models.SongRef
	for _, term := range c.opts.PopularTerms {
		songs, err := c.fetchITunes(ctx, term, 8)
		if err != nil {
			c.logger.Debug("popular query failed", zap.String("term", term), zap.Error(err))
			continue
		}
		all = append(all, songs...)
		if len(all) >= 12 {
			break
		}
	}

	if len(all) == 0 {
		return Fallback()
	}
	unique := lo.UniqBy(all, func(s models.SongRef) string { return s.TrackID })
	if len(unique) > popularLimit {
		unique = unique[:popularLimit]
	}
	c.cache.Add(popularKey, unique)
	return unique
}
