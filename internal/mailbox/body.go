package mailbox

import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strings"

	"github.com/BearBump/MailTrack/internal/extract"
)

// ResolveBody extracts the human-readable text of a message: descend through
// the first nested container at each level, then prefer text/plain over
// text/html. Links to non-courier hosts are removed.
func ResolveBody(m *Message) string {
	if m == nil || m.Payload == nil {
		return ""
	}

	node := m.Payload
	for {
		next := firstContainer(node.Parts)
		if next == nil {
			break
		}
		node = next
	}

	var text string
	switch {
	case len(node.Parts) == 0:
		text = leafText(node)
	default:
		if p := firstOfType(node.Parts, "text/plain"); p != nil {
			text = decodeData(p.Data)
		} else if p := firstOfType(node.Parts, "text/html"); p != nil {
			text = HTMLToText(decodeData(p.Data))
		}
	}
	return StripLinks(text, extract.CourierDomains())
}

func firstContainer(parts []*Part) *Part {
	for _, p := range parts {
		if len(p.Parts) > 0 {
			return p
		}
	}
	return nil
}

func firstOfType(parts []*Part, mimeType string) *Part {
	for _, p := range parts {
		if strings.EqualFold(mediaType(p.MimeType), mimeType) {
			return p
		}
	}
	return nil
}

func mediaType(v string) string {
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func leafText(p *Part) string {
	switch strings.ToLower(mediaType(p.MimeType)) {
	case "text/plain":
		return decodeData(p.Data)
	case "text/html":
		return HTMLToText(decodeData(p.Data))
	default:
		return ""
	}
}

// decodeData accepts padded and unpadded base64url.
func decodeData(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "=")); err == nil {
		return string(b)
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return string(b)
	}
	return ""
}

var linkPattern = regexp.MustCompile(`(?i)https?://[^\s<>"'\])]+`)

// StripLinks removes http(s) links unless their host is, or is a subdomain
// of, one of keep.
func StripLinks(text string, keep []string) string {
	return linkPattern.ReplaceAllStringFunc(text, func(link string) string {
		u, err := url.Parse(link)
		if err != nil {
			return ""
		}
		host := strings.ToLower(u.Hostname())
		for _, d := range keep {
			if host == d || strings.HasSuffix(host, "."+d) {
				return link
			}
		}
		return ""
	})
}
