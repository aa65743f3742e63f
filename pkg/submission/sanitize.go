package submission

import (
	"regexp"
	"strings"

	"justanote/pkg/models"
)

var (
	nameStripper = strings.NewReplacer(
		"<", "", ">", "", "{", "", "}", "", "[", "", "]", "", `\`, "", "/", "",
	)
	markupPattern    = regexp.MustCompile(`(?i)javascript:|data:|on\w+=|[<>]`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
	inlineSpaceRun   = regexp.MustCompile(`[^\S\n]+`)
	spaceAroundBreak = regexp.MustCompile(` ?\n ?`)
	blankLineRun     = regexp.MustCompile(`\n{3,}`)
	instagramInvalid = regexp.MustCompile(`[^a-zA-Z0-9._]`)
	lineEndings      = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Sanitize produces the storable record for a draft. It never fails and is
// a fixed point: sanitizing its own output changes nothing.
// The photo URL is filled in later by the caller.
func Sanitize(d models.NoteDraft) models.NoteRecord {
	rec := models.NoteRecord{
		RecipientName: SanitizeName(d.RecipientName),
		Message:       SanitizeMessage(d.Message),
		IsAnonymous:   d.IsAnonymous,
	}

	if d.Vibe.Valid() {
		rec.Vibe = d.Vibe
	}

	if d.Song != nil {
		rec.Song = SanitizeSong(*d.Song)
	}

	if !d.IsAnonymous {
		rec.SenderName = SanitizeName(d.SenderName)
	}

	switch v := d.Delivery.(type) {
	case models.SelfDelivery:
		rec.DeliveryMethod = models.DeliverySelf
		rec.SenderEmail = SanitizeEmail(v.SenderEmail)
	case models.AdminDelivery:
		rec.DeliveryMethod = models.DeliveryAdmin
		rec.RecipientInstagram = SanitizeInstagram(v.RecipientInstagram)
		rec.SenderEmail = SanitizeEmail(v.SenderEmail)
	}

	return rec
}

// SanitizeName cleans recipient and sender names
func SanitizeName(s string) string {
	s = nameStripper.Replace(s)
	s = stripMarkup(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return strings.TrimSpace(truncate(s, MaxNameLength))
}

// SanitizeMessage cleans free text. Line breaks survive; other whitespace
// runs collapse to one space and at most one blank line is kept.
func SanitizeMessage(s string) string {
	s = stripMarkup(s)
	s = lineEndings.Replace(s)
	s = inlineSpaceRun.ReplaceAllString(s, " ")
	s = spaceAroundBreak.ReplaceAllString(s, "\n")
	s = blankLineRun.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)
	return strings.TrimSpace(truncate(s, MaxMessageLength))
}

// removal can splice a new match together ("javajavascript:script:"), so repeat
func stripMarkup(s string) string {
	for {
		next := markupPattern.ReplaceAllString(s, "")
		if next == s {
			return s
		}
		s = next
	}
}

// SanitizeInstagram strips one leading @ and anything outside the handle charset
func SanitizeInstagram(s string) string {
	s = strings.TrimPrefix(s, "@")
	s = instagramInvalid.ReplaceAllString(s, "")
	return truncate(s, MaxInstagramLength)
}

// SanitizeEmail lower-cases and trims an address
func SanitizeEmail(s string) string {
	s = stripMarkup(strings.ToLower(s))
	s = strings.TrimSpace(s)
	return strings.TrimSpace(truncate(s, MaxEmailLength))
}

func truncate(s string, max int) string {
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
