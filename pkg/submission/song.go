package submission

import (
	"net/url"
	"strings"

	"justanote/pkg/errors"
	"justanote/pkg/models"
)

// ValidateSong checks a song reference chosen by the client. The source must
// be known, the title must survive cleaning and every link must be http(s).
func ValidateSong(s models.SongRef) *errors.ValidationResult {
	result := errors.NewValidationResult()

	if !s.Type.Valid() {
		result.AddFieldError("song.type", "SONG_SOURCE_INVALID", "Song must come from iTunes, YouTube or Spotify")
	}
	if SanitizeName(s.Title) == "" {
		result.AddFieldError("song.title", "SONG_TITLE_REQUIRED", "Song title is required")
	}
	for _, link := range songLinks(s) {
		if link.value != "" && !isWebURL(link.value) {
			result.AddFieldError("song."+link.field, "SONG_LINK_INVALID", "Song links must be http or https URLs")
		}
	}
	if s.StartTime < 0 || s.EndTime < 0 || (s.EndTime > 0 && s.EndTime < s.StartTime) {
		result.AddFieldError("song.clip", "SONG_CLIP_INVALID", "Song clip window is invalid")
	}
	return result
}

// SanitizeSong cleans the display text of a song and drops links that are not
// http(s). A song from an unknown source is dropped entirely.
func SanitizeSong(s models.SongRef) *models.SongRef {
	if !s.Type.Valid() {
		return nil
	}
	s.Title = SanitizeName(s.Title)
	s.Artist = SanitizeName(s.Artist)
	if !isWebURL(s.AlbumCover) {
		s.AlbumCover = ""
	}
	if !isWebURL(s.Preview) {
		s.Preview = ""
	}
	if !isWebURL(s.URL) {
		s.URL = ""
	}
	s.TrackID = SanitizeName(s.TrackID)
	s.VideoID = SanitizeName(s.VideoID)
	return &s
}

type songLink struct{ field, value string }

func songLinks(s models.SongRef) []songLink {
	return []songLink{
		{"albumCover", s.AlbumCover},
		{"preview", s.Preview},
		{"url", s.URL},
	}
}

func isWebURL(raw string) bool {
	if raw == "" || strings.ContainsAny(raw, " <>\"'") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
