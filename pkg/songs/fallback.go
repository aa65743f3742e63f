package songs

import (
	"strings"

	"justanote/pkg/models"
)

var fallbackSongs = []models.SongRef{
	{Type: models.SongITunes, TrackID: "1440818839", Title: "Shape of You", Artist: "Ed Sheeran", EndTime: 30},
	{Type: models.SongITunes, TrackID: "1544494552", Title: "Perfect", Artist: "Ed Sheeran", EndTime: 30},
	{Type: models.SongITunes, TrackID: "1440857781", Title: "Photograph", Artist: "Ed Sheeran", EndTime: 30},
	{Type: models.SongITunes, TrackID: "1469577723", Title: "Tum Hi Ho", Artist: "Arijit Singh", EndTime: 30},
	{Type: models.SongITunes, TrackID: "1621242302", Title: "Kesariya", Artist: "Arijit Singh", EndTime: 30},
	{Type: models.SongITunes, TrackID: "1450330685", Title: "Blinding Lights", Artist: "The Weeknd", EndTime: 30},
	{Type: models.SongITunes, TrackID: "1508562704", Title: "Levitating", Artist: "Dua Lipa", EndTime: 30},
	{Type: models.SongITunes, TrackID: "1560735587", Title: "Raataan Lambiyan", Artist: "Jubin Nautiyal", EndTime: 30},
}

// Fallback returns a copy of the built-in song list
func Fallback() []models.SongRef {
	out := make([]models.SongRef, len(fallbackSongs))
	copy(out, fallbackSongs)
	return out
}

func filterFallback(query string) []models.SongRef {
	out := []models.SongRef{}
	for _, s := range fallbackSongs {
		if strings.Contains(strings.ToLower(s.Title), query) || strings.Contains(strings.ToLower(s.Artist), query) {
			out = append(out, s)
		}
	}
	return out
}
