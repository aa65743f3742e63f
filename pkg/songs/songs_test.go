package songs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justanote/pkg/models"
	"justanote/pkg/performance"
)

const itunesBody = `{"resultCount":3,"results":[
 {"kind":"song","trackId":1,"trackName":"Perfect","artistName":"Ed Sheeran",
  "artworkUrl100":"https://img.example/100x100bb.jpg","previewUrl":"https://audio.example/1.m4a"},
 {"kind":"song","trackId":2,"trackName":"No Preview","artistName":"Nobody"},
 {"kind":"music-video","trackId":3,"trackName":"Video","artistName":"Band","previewUrl":"https://audio.example/3.m4v"}
]}`

func newITunesServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "music", q.Get("media"))
		assert.Equal(t, "song", q.Get("entity"))
		if q.Get("term") == "broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, itunesBody)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchFiltersAndUpscalesArtwork(t *testing.T) {
	var hits atomic.Int32
	srv := newITunesServer(t, &hits)
	c := NewClient(Options{SearchURL: srv.URL}, nil)

	songs := c.Search(context.Background(), "Perfect")
	require.Len(t, songs, 1)
	assert.Equal(t, models.SongITunes, songs[0].Type)
	assert.Equal(t, "Perfect", songs[0].Title)
	assert.Equal(t, "1", songs[0].TrackID)
	assert.Equal(t, "https://img.example/300x300bb.jpg", songs[0].AlbumCover)
	assert.Equal(t, "https://audio.example/1.m4a", songs[0].Preview)
}

func TestSearchCachesByNormalisedQuery(t *testing.T) {
	var hits atomic.Int32
	srv := newITunesServer(t, &hits)
	c := NewClient(Options{SearchURL: srv.URL}, nil)

	c.Search(context.Background(), "Ed Sheeran")
	c.Search(context.Background(), "  ed   SHEERAN ")
	assert.Equal(t, int32(1), hits.Load())
}

func TestSearchFailureFallsBackToBuiltInList(t *testing.T) {
	var hits atomic.Int32
	srv := newITunesServer(t, &hits)
	c := NewClient(Options{SearchURL: srv.URL}, nil)

	assert.Empty(t, c.Search(context.Background(), "broken"))
	assert.Empty(t, c.Search(context.Background(), "   "))

	unreachable := NewClient(Options{SearchURL: "http://127.0.0.1:1/search", Timeout: time.Second}, nil)
	songs := unreachable.Search(context.Background(), "sheeran")
	require.NotEmpty(t, songs)
	for _, s := range songs {
		assert.Equal(t, "Ed Sheeran", s.Artist)
	}
}

func TestPopularDeduplicatesAndFallsBack(t *testing.T) {
	var hits atomic.Int32
	srv := newITunesServer(t, &hits)
	c := NewClient(Options{SearchURL: srv.URL, PopularTerms: []string{"a", "b"}}, nil)

	songs := c.Popular(context.Background())
	assert.Len(t, songs, 1, "the same track from two terms appears once")
	c.Popular(context.Background())
	assert.Equal(t, int32(2), hits.Load(), "second call is cached")

	down := NewClient(Options{SearchURL: "http://127.0.0.1:1/search", Timeout: time.Second}, nil)
	assert.Equal(t, Fallback(), down.Popular(context.Background()))
}

func TestParseYouTube(t *testing.T) {
	tests := []struct {
		link  string
		id    string
		start int
		ok    bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", 0, true},
		{"https://youtu.be/dQw4w9WgXcQ?t=42", "dQw4w9WgXcQ", 42, true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", 0, true},
		{"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=7", "dQw4w9WgXcQ", 7, true},
		{"https://youtu.be/dQw4w9WgXcQ?t=1m30s", "dQw4w9WgXcQ", 90, true},
		{"https://youtu.be/dQw4w9WgXcQ?t=90s", "dQw4w9WgXcQ", 90, true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=1h2m3s", "dQw4w9WgXcQ", 3723, true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ#t=2m", "dQw4w9WgXcQ", 120, true},
		{"https://youtu.be/dQw4w9WgXcQ?t=s1m", "dQw4w9WgXcQ", 0, true},
		{"https://www.youtube.com/watch?v=short", "", 0, false},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", 0, false},
	}
	for _, tt := range tests {
		yt, ok := ParseYouTube(tt.link)
		assert.Equal(t, tt.ok, ok, tt.link)
		assert.Equal(t, tt.id, yt.VideoID, tt.link)
		assert.Equal(t, tt.start, yt.StartTime, tt.link)
	}
}

func TestParseSpotify(t *testing.T) {
	id, ok := ParseSpotify("https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc")
	assert.True(t, ok)
	assert.Equal(t, "4uLU6hMCjMI75M1A2tKUQC", id)

	_, ok = ParseSpotify("https://open.spotify.com/album/4uLU6hMCjMI75M1A2tKUQC")
	assert.False(t, ok)
}

func TestResolveYouTubeLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", r.URL.Query().Get("url"))
		fmt.Fprint(w, `{"title":"Rick Astley - Never Gonna Give You Up","thumbnail_url":"https://i.ytimg.com/x.jpg"}`)
	}))
	defer srv.Close()
	c := NewClient(Options{YouTubeOEmbedURL: srv.URL}, nil)

	ref := c.ResolveLink(context.Background(), "https://youtu.be/dQw4w9WgXcQ?t=15")
	require.NotNil(t, ref)
	assert.Equal(t, models.SongYouTube, ref.Type)
	assert.Equal(t, "Rick Astley", ref.Artist)
	assert.Equal(t, "Never Gonna Give You Up", ref.Title)
	assert.Equal(t, "https://i.ytimg.com/x.jpg", ref.AlbumCover)
	assert.Equal(t, 15, ref.StartTime)
	assert.Equal(t, 45, ref.EndTime)
}

func TestResolveLinkWithoutMetadataStillValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	c := NewClient(Options{
		YouTubeOEmbedURL: srv.URL,
		SpotifyOEmbedURL: srv.URL,
		SpotifyTrackURL:  srv.URL + "/track/",
	}, nil)

	yt := c.ResolveLink(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NotNil(t, yt)
	assert.Equal(t, "dQw4w9WgXcQ", yt.VideoID)
	assert.Equal(t, 0, yt.StartTime)
	assert.Equal(t, DefaultClipLength, yt.EndTime)
	assert.NotEmpty(t, yt.Title)

	sp := c.ResolveLink(context.Background(), "https://open.spotify.com/track/abc123")
	require.NotNil(t, sp)
	assert.Equal(t, "abc123", sp.TrackID)
	assert.NotEmpty(t, sp.Artist)

	assert.Nil(t, c.ResolveLink(context.Background(), "https://soundcloud.com/some/track"))
}

func TestResolveSpotifyOEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title":"Blinding Lights · The Weeknd","thumbnail_url":"https://i.scdn.co/cover.jpg"}`)
	}))
	defer srv.Close()
	c := NewClient(Options{SpotifyOEmbedURL: srv.URL}, nil)

	ref := c.ResolveLink(context.Background(), "https://open.spotify.com/track/0VjIjW4GlUZAMYd2vXMi3b")
	require.NotNil(t, ref)
	assert.Equal(t, models.SongSpotify, ref.Type)
	assert.Equal(t, "Blinding Lights", ref.Title)
	assert.Equal(t, "The Weeknd", ref.Artist)
	assert.Equal(t, "https://i.scdn.co/cover.jpg", ref.AlbumCover)
}

func TestResolveSpotifyFallsBackToOpenGraph(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/track/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
<meta property="og:title" content="Levitating">
<meta property="og:description" content="Dua Lipa · Future Nostalgia · Song · 2020">
<meta property="og:image" content="https://i.scdn.co/levitating.jpg">
</head><body></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(Options{SpotifyOEmbedURL: srv.URL + "/oembed", SpotifyTrackURL: srv.URL + "/track/"}, nil)
	ref := c.ResolveLink(context.Background(), "https://open.spotify.com/track/463CkQjx2Zk1yXoBuierM9")
	require.NotNil(t, ref)
	assert.Equal(t, "Levitating", ref.Title)
	assert.Equal(t, "Dua Lipa", ref.Artist)
	assert.Equal(t, "https://i.scdn.co/levitating.jpg", ref.AlbumCover)
}

type blockingLookup struct {
	mu      sync.Mutex
	release map[string]chan struct{}
	started chan string
}

func (b *blockingLookup) Search(ctx context.Context, query string) []models.SongRef {
	b.mu.Lock()
	ch := b.release[query]
	b.mu.Unlock()
	b.started <- query
	if ch != nil {
		<-ch
	}
	return []models.SongRef{{Title: query}}
}

func TestSearcherDiscardsSupersededResults(t *testing.T) {
	lookup := &blockingLookup{
		release: map[string]chan struct{}{"ol": make(chan struct{})},
		started: make(chan string, 2),
	}
	s := NewSearcher(lookup)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Search(context.Background(), "session-1", "ol")
		errc <- err
	}()
	require.Equal(t, "ol", <-lookup.started)

	songs, err := s.Search(context.Background(), "session-1", "olivia")
	require.NoError(t, err)
	<-lookup.started
	require.Len(t, songs, 1)
	assert.Equal(t, "olivia", songs[0].Title)

	close(lookup.release["ol"])
	assert.ErrorIs(t, <-errc, performance.ErrSuperseded)

	other, err := s.Search(context.Background(), "session-2", "x")
	<-lookup.started
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
