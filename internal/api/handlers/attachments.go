package handlers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fieldmate/backend/internal/domain"
)

// attachmentPayload is what clients send: either plain text or an HTML body
// (pasted manual pages, vendor bulletin exports).
type attachmentPayload struct {
	Name string `json:"name"`
	Text string `json:"text"`
	HTML string `json:"html"`
}

const maxAttachmentChars = 8000

// toAttachments normalizes inbound attachments to plain text. HTML bodies are
// stripped to visible text; script and style content is discarded.
func toAttachments(payloads []attachmentPayload) []domain.Attachment {
	if len(payloads) == 0 {
		return nil
	}

	attachments := make([]domain.Attachment, 0, len(payloads))
	for _, p := range payloads {
		text := strings.TrimSpace(p.Text)
		if text == "" && p.HTML != "" {
			text = extractHTMLText(p.HTML)
		}
		if text == "" {
			continue
		}
		if len(text) > maxAttachmentChars {
			text = text[:maxAttachmentChars]
		}
		attachments = append(attachments, domain.Attachment{
			Name: p.Name,
			Text: text,
		})
	}
	return attachments
}

func extractHTMLText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script, style, noscript").Remove()

	var parts []string
	doc.Find("body").Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	if len(parts) == 0 {
		parts = append(parts, doc.Text())
	}

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
