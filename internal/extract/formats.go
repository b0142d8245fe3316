package extract

import "regexp"

const (
	CarrierFedEx = "fedex"
	CarrierUPS   = "ups"
	CarrierUSPS  = "usps"
)

// Format is one tracking-number layout with its check-digit rule.
type Format struct {
	Name        string
	CarrierCode string
	pattern     *regexp.Regexp
	check       func(n string) bool
}

func (f Format) Match(n string) bool {
	return f.pattern.MatchString(n) && f.check(n)
}

// formats is ordered from most to least specific.
var formats = []Format{
	{
		Name:        "ups",
		CarrierCode: CarrierUPS,
		pattern:     regexp.MustCompile(`^1Z[0-9A-Z]{16}$`),
		check:       upsCheck,
	},
	{
		Name:        "s10",
		CarrierCode: CarrierUSPS, // UPU international numbers are delivered by USPS domestically.
		pattern:     regexp.MustCompile(`^[A-Z]{2}[0-9]{9}[A-Z]{2}$`),
		check:       s10Check,
	},
	{
		Name:        "fedex_ground_96",
		CarrierCode: CarrierFedEx,
		pattern:     regexp.MustCompile(`^96[0-9]{20}$`),
		check:       func(n string) bool { return mod10Check(n[len(n)-15:]) },
	},
	{
		Name:        "usps_impb",
		CarrierCode: CarrierUSPS,
		pattern:     regexp.MustCompile(`^9[1-5]([0-9]{18}|[0-9]{20})$`),
		check:       mod10Check,
	},
	{
		Name:        "fedex_ground",
		CarrierCode: CarrierFedEx,
		pattern:     regexp.MustCompile(`^[0-9]{15}$`),
		check:       mod10Check,
	},
	{
		Name:        "fedex_express",
		CarrierCode: CarrierFedEx,
		pattern:     regexp.MustCompile(`^[0-9]{12}$`),
		check:       fedexExpressCheck,
	},
}

func digit(c byte) int { return int(c - '0') }

// upsCheck: letters map to (c-'A'+2)%10, odd positions weigh 1 and even 2.
func upsCheck(n string) bool {
	payload, want := n[2:len(n)-1], n[len(n)-1]
	sum := 0
	for i := 0; i < len(payload); i++ {
		c := payload[i]
		v := 0
		if c >= 'A' && c <= 'Z' {
			v = int(c-'A'+2) % 10
		} else {
			v = digit(c)
		}
		if i%2 == 1 {
			v *= 2
		}
		sum += v
	}
	return (10-sum%10)%10 == digit(want)
}

// mod10Check weighs digits 3,1,3,... from the right, excluding the check digit.
func mod10Check(n string) bool {
	payload, want := n[:len(n)-1], n[len(n)-1]
	sum := 0
	w := 3
	for i := len(payload) - 1; i >= 0; i-- {
		sum += digit(payload[i]) * w
		w = 4 - w
	}
	return (10-sum%10)%10 == digit(want)
}

// fedexExpressCheck weighs 1,3,7 from the right, mod 11 then mod 10.
func fedexExpressCheck(n string) bool {
	payload, want := n[:len(n)-1], n[len(n)-1]
	weights := [...]int{1, 3, 7}
	sum := 0
	for i, j := len(payload)-1, 0; i >= 0; i, j = i-1, j+1 {
		sum += digit(payload[i]) * weights[j%3]
	}
	return (sum%11)%10 == digit(want)
}

func s10Check(n string) bool {
	serial, want := n[2:10], n[10]
	weights := [...]int{8, 6, 4, 2, 3, 5, 9, 7}
	sum := 0
	for i := 0; i < len(serial); i++ {
		sum += digit(serial[i]) * weights[i]
	}
	c := 11 - sum%11
	switch c {
	case 10:
		c = 0
	case 11:
		c = 5
	}
	return c == digit(want)
}
