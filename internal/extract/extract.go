// Package extract finds carrier tracking numbers in free text.
package extract

import (
	"regexp"
	"strings"
)

type Match struct {
	TrackingNumber string `json:"tracking_number"`
	CarrierCode    string `json:"carrier_code"`
	Format         string `json:"format"`
}

const (
	minLen = 12
	maxLen = 22
)

// runPattern matches alphanumeric groups joined by single blanks. Shipping
// mails often print numbers grouped, e.g. "1Z 999 AA1 01 2345 6784".
var runPattern = regexp.MustCompile(`[0-9A-Za-z]+(?:[ \t][0-9A-Za-z]+)*`)

// Find returns every valid tracking number in text, deduplicated, in order of
// first appearance. A candidate is a whole group or consecutive groups of a
// run joined without their blanks, so a number embedded in a longer token is
// not reported. A group that is a number by itself wins over joining it with
// its neighbours; otherwise the longest valid join wins.
func Find(text string) []Match {
	var out []Match
	seen := make(map[string]struct{})
	for _, run := range runPattern.FindAllString(text, -1) {
		groups := strings.Fields(strings.ToUpper(run))
		for i := 0; i < len(groups); {
			m, next, ok := matchAt(groups, i)
			if !ok {
				i++
				continue
			}
			i = next
			if _, dup := seen[m.TrackingNumber]; dup {
				continue
			}
			seen[m.TrackingNumber] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// matchAt finds a number starting at groups[i] and returns the index of the
// first group after it.
func matchAt(groups []string, i int) (Match, int, bool) {
	if m, ok := classify(groups[i]); ok {
		return m, i + 1, true
	}
	j := i
	n := 0
	for j < len(groups) && n+len(groups[j]) <= maxLen {
		n += len(groups[j])
		j++
	}
	for ; j > i+1; j-- {
		joined := strings.Join(groups[i:j], "")
		if len(joined) < minLen {
			break
		}
		if m, ok := classify(joined); ok {
			return m, j, true
		}
	}
	return Match{}, i, false
}

func classify(n string) (Match, bool) {
	if len(n) < minLen || len(n) > maxLen {
		return Match{}, false
	}
	for _, f := range formats {
		if f.Match(n) {
			return Match{TrackingNumber: n, CarrierCode: f.CarrierCode, Format: f.Name}, true
		}
	}
	return Match{}, false
}

// Normalize upper-cases number and drops the blanks of a grouped rendering.
func Normalize(number string) string {
	return strings.ToUpper(strings.Join(strings.Fields(number), ""))
}

// Validate reports whether number is a well-formed number for carrierCode.
func Validate(carrierCode, number string) bool {
	n := Normalize(number)
	for _, f := range formats {
		if f.CarrierCode == carrierCode && f.Match(n) {
			return true
		}
	}
	return false
}

// CourierDomains are the hosts whose links survive body cleanup.
func CourierDomains() []string {
	return []string{"fedex.com", "ups.com", "usps.com"}
}
