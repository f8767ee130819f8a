// Package number parses telephone numbers and keeps them in a canonical
// form. Each parsed number carries an international (E.164-style)
// representation and a national one. Parsing is deliberately simple and
// tuned for Swiss numbers, but handles international prefixes.
package number

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is the region used to interpret national numbers with a
// leading zero.
const DefaultRegion = "CH"

// DefaultCountryCode is the country calling code matching DefaultRegion.
const DefaultCountryCode = "41"

var (
	whitespaceRe    = regexp.MustCompile(`\s`)
	nationalRe      = regexp.MustCompile(`^0[1-9][0-9]+$`)
	homeCountryRe   = regexp.MustCompile(`^(\+|00)` + DefaultCountryCode)
	internationalRe = regexp.MustCompile(`^00`)
)

// Number is a parsed telephone number.
//
// Full holds the number in international format (+4131...). Local holds the
// national format for home-country numbers (031...) and is identical to Full
// for foreign numbers. Name is populated by the phonebook reverse lookup
// when available.
type Number struct {
	Full  string
	Local string
	Name  string
	Valid bool
}

// Parse parses a number string in national or international format
// (031..., +4131..., 004931..., +49...). It never fails: input that cannot
// be interpreted is kept verbatim so a call session can still be handled.
func Parse(s string) Number {
	n := Number{Valid: true}
	n.quickParse(s)
	return n
}

// ParseValidated parses like Parse and additionally checks plausibility
// with the libphonenumber rules. Validation is noticeably slower than
// parsing, so it is only used where bad input is likely (blacklist import,
// dialed unblock codes), not on the hot call path.
func ParseValidated(s string) Number {
	n := Number{Valid: true}

	parsed, err := phonenumbers.Parse(s, DefaultRegion)
	if err != nil {
		n.Valid = false
	} else {
		// IsValidNumber would be too strict for premium/shortened numbers
		// that telemarketers use, possible-length is enough.
		n.Valid = phonenumbers.IsPossibleNumber(parsed)
	}

	n.quickParse(s)
	return n
}

func (n *Number) quickParse(s string) {
	stripped := whitespaceRe.ReplaceAllString(s, "")

	switch {
	case nationalRe.MatchString(stripped):
		// National format with a leading zero.
		n.Full = "+" + DefaultCountryCode + stripped[1:]
		n.Local = stripped
	case homeCountryRe.MatchString(stripped):
		// Home-country number in international format (+41 or 0041).
		n.Full = "+" + DefaultCountryCode + homeCountryRe.ReplaceAllString(stripped, "")
		n.Local = homeCountryRe.ReplaceAllString(stripped, "0")
	default:
		// Foreign number, normalize the 00 prefix to +.
		n.Full = internationalRe.ReplaceAllString(stripped, "+")
		n.Local = n.Full
	}
}

// DisplayName returns the resolved name if the phonebook knows one, the
// national number otherwise. Used to build the caller ID towards the
// handset.
func (n Number) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.Local
}

// CallerID returns a SIP-style caller ID string, e.g. `Muster AG <0311234567>`.
func (n Number) CallerID() string {
	return n.DisplayName() + " <" + n.Local + ">"
}

// Anonymous reports whether the caller withheld their number.
func (n Number) Anonymous() bool {
	s := strings.ToLower(n.Full)
	return s == "" || s == "anonymous" || s == "unknown"
}

func (n Number) String() string {
	return n.Full
}
