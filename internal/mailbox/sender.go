package mailbox

import (
	"net/mail"
	"strings"

	"golang.org/x/net/publicsuffix"
)

const unknownSender = "Unknown"

type Sender struct {
	Name   string
	Domain string
}

// ParseSender derives a display name and the registrable domain from a From
// header. Gmail senders point at mail.google.com, which is where the user
// reads them.
func ParseSender(from string) Sender {
	var name, address string
	if a, err := mail.ParseAddress(from); err == nil {
		name, address = a.Name, a.Address
	} else {
		address = strings.Trim(strings.TrimSpace(from), "<>")
	}

	var local, domain string
	if i := strings.LastIndexByte(address, '@'); i >= 0 {
		local, domain = address[:i], strings.ToLower(address[i+1:])
	}
	if domain != "" {
		if d, err := publicsuffix.EffectiveTLDPlusOne(domain); err == nil {
			domain = d
		}
		if domain == "gmail.com" {
			domain = "mail.google.com"
		}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.ReplaceAll(local, "_", " ")
	} else {
		name = strings.ReplaceAll(name, "_", " ")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = domain
	}
	if name == "" {
		name = unknownSender
	}
	return Sender{Name: name, Domain: domain}
}
