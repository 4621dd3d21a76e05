// ABOUTME: Body extraction from nested multipart Gmail message payloads
// ABOUTME: Prefers text/plain, falls back to stripped text/html, never errors
package mailbox

import (
	"encoding/base64"
	"html"
	"regexp"
	"strings"

	"google.golang.org/api/gmail/v1"
)

// ExtractBody pulls a human-readable body out of a message payload.
// Priority: an immediate text/plain part, then an immediate text/html part
// with tags stripped, then a body attached directly to the payload, then a
// recursive descent into nested multipart containers. This is a display
// function and is total: no decodable content yields "".
func ExtractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}

	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil {
			if text := decodeBase64URL(part.Body.Data); text != "" {
				return text
			}
		}
	}

	for _, part := range payload.Parts {
		if part.MimeType == "text/html" && part.Body != nil {
			if text := decodeBase64URL(part.Body.Data); text != "" {
				return stripHTML(text)
			}
		}
	}

	if len(payload.Parts) == 0 && payload.Body != nil {
		if text := decodeBase64URL(payload.Body.Data); text != "" {
			if strings.HasPrefix(payload.MimeType, "text/html") {
				return stripHTML(text)
			}
			return text
		}
	}

	// multipart/mixed and friends nest further; first find wins
	for _, part := range payload.Parts {
		if len(part.Parts) > 0 {
			if text := ExtractBody(part); text != "" {
				return text
			}
		}
	}

	return ""
}

// decodeBase64URL decodes Gmail's URL-safe base64, which arrives both with
// and without padding, and interprets the bytes as UTF-8 text.
func decodeBase64URL(data string) string {
	if data == "" {
		return ""
	}

	decoded, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(data)
	}
	if err != nil {
		padded := data
		switch len(data) % 4 {
		case 2:
			padded += "=="
		case 3:
			padded += "="
		}
		decoded, err = base64.URLEncoding.DecodeString(padded)
	}
	if err != nil {
		return ""
	}
	return string(decoded)
}

var (
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	breakRe  = regexp.MustCompile(`(?i)<(?:br\s*/?|/p|/div|/tr|/li)>`)
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	spaceRe  = regexp.MustCompile(`[ \t]+`)
	blankRe  = regexp.MustCompile(`\n{3,}`)
)

// stripHTML converts HTML to plain text: scripts and styles removed, block
// boundaries turned into newlines, remaining tags dropped, entities
// unescaped, whitespace collapsed.
func stripHTML(input string) string {
	text := scriptRe.ReplaceAllString(input, "")
	text = styleRe.ReplaceAllString(text, "")
	text = breakRe.ReplaceAllString(text, "\n")
	text = tagRe.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = spaceRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
