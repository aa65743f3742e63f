package services

import (
	"strings"

	"justanote/pkg/models"
)

// ShareLink is the public link of a note
func ShareLink(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/view/" + id
}

func senderDisplayName(n *models.PersistedNote) string {
	if n.IsAnonymous {
		return "Anonymous Sender"
	}
	if n.SenderName == "" {
		return "Someone special"
	}
	return n.SenderName
}

func messagePreview(message string) string {
	if message == "" {
		return "No message"
	}
	runes := []rune(message)
	if len(runes) > 100 {
		return string(runes[:100]) + "..."
	}
	return message
}

func deliveredParams(n *models.PersistedNote, link string) map[string]string {
	params := map[string]string{
		"recipient_name":  n.RecipientName,
		"sender_name":     senderDisplayName(n),
		"note_link":       link,
		"message_preview": messagePreview(n.Message),
	}
	if n.RecipientInstagram != "" {
		params["recipient_instagram"] = "@" + n.RecipientInstagram
	}
	if vibe, ok := n.Vibe.Info(); ok {
		params["vibe_emoji"] = vibe.Emoji
		params["vibe_label"] = vibe.Label
	}
	return params
}

func viewedParams(n *models.PersistedNote, link string) map[string]string {
	params := map[string]string{
		"recipient_name": n.RecipientName,
		"view_link":      link,
	}
	if n.FirstViewedAt != nil {
		params["viewed_at"] = n.FirstViewedAt.Format("Jan 2, 2006 15:04 MST")
	}
	return params
}
