package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MaxFieldLength is the default limit callers pass to MaxLength.
const MaxFieldLength = 255

const minPasswordLength = 12

var (
	// Matches a local@domain.tld shape. Anchored at the start only; trailing
	// input after a valid prefix is tolerated (inherited behaviour).
	emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+`)

	// UK government postcode grammar, including the GIR 0AA special case.
	postcodePattern = regexp.MustCompile(`^([Gg][Ii][Rr] 0[Aa]{2})|((([A-Za-z][0-9]{1,2})|(([A-Za-z][A-Ha-hJ-Yj-y][0-9]{1,2})|(([A-Za-z][0-9][A-Za-z])|([A-Za-z][A-Ha-hJ-Yj-y][0-9]?[A-Za-z])))) [0-9][A-Za-z]{2})$`)

	expiryPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
)

// Violation is a single rejected-field message.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Pipeline accumulates violations across independent field checks. Checks
// never short-circuit each other and never return errors; an empty
// accumulator after a run means the input was accepted. The accumulator is
// additive, so callers must Reset before starting a new multi-field run.
type Pipeline struct {
	violations []Violation
	nowFunc    func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source used by ExpiryDate.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.nowFunc = now }
}

func New(opts ...Option) *Pipeline {
	p := &Pipeline{nowFunc: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Reset clears the accumulator.
func (p *Pipeline) Reset() {
	p.violations = nil
}

// Violations returns the accumulated sequence in check order, duplicates
// included.
func (p *Pipeline) Violations() []Violation {
	return p.violations
}

// Messages returns just the message strings, in order.
func (p *Pipeline) Messages() []string {
	msgs := make([]string, 0, len(p.violations))
	for _, v := range p.violations {
		msgs = append(msgs, v.Message)
	}
	return msgs
}

// OK reports whether the run so far accepted every input.
func (p *Pipeline) OK() bool {
	return len(p.violations) == 0
}

func (p *Pipeline) add(field, message string) {
	p.violations = append(p.violations, Violation{Field: field, Message: message})
}

// Email checks the value has a local@domain.tld shape.
func (p *Pipeline) Email(value string) {
	if !emailPattern.MatchString(value) {
		p.add("email", "Invalid email address")
	}
}

// Postcode checks the value against the UK postcode grammar.
func (p *Pipeline) Postcode(value string) {
	if !postcodePattern.MatchString(value) {
		p.add("postcode", "Invalid postcode")
	}
}

// Password enforces the admin password policy. Surrounding whitespace is
// trimmed first. Each missing requirement appends its own message, so a
// single password can accumulate up to five violations. The "special" class
// is defined by exclusion from the other three, so characters such as
// accented letters count as special.
func (p *Pipeline) Password(value string) {
	value = strings.TrimSpace(value)

	// length is counted in characters, not bytes
	if utf8.RuneCountInString(value) < minPasswordLength {
		p.add("password", "Password must be at least twelve characters long")
	}

	var upper, lower, digit, special bool
	for _, r := range value {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}

	if !upper {
		p.add("password", "Password must contain at least one uppercase letter")
	}
	if !lower {
		p.add("password", "Password must contain at least one lowercase letter")
	}
	if !digit {
		p.add("password", "Password must contain at least one digit")
	}
	if !special {
		p.add("password", "Password must contain at least one special character")
	}
}

// ExpiryDate checks a YYYY-MM card expiry. A card is valid through the end
// of its stated month: it has expired only once the first instant of the
// following month is no longer in the future.
func (p *Pipeline) ExpiryDate(value string) {
	if !expiryPattern.MatchString(value) {
		p.add("expiry date", "Invalid date")
		return
	}

	year, _ := strconv.Atoi(value[:4])
	month, _ := strconv.Atoi(value[5:])

	var expires time.Time
	if month == 12 {
		expires = time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	} else {
		expires = time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
	}

	if !expires.After(p.nowFunc().UTC()) {
		p.add("expiry date", "Card has expired")
	}
}

// Alphabetic fails the field if any character is numeric.
func (p *Pipeline) Alphabetic(field, value string) {
	for _, r := range value {
		if unicode.IsNumber(r) {
			p.add(field, "Invalid "+field)
			return
		}
	}
}

// Numeric fails the field unless the whole value parses as an integer.
func (p *Pipeline) Numeric(field, value string) {
	if _, err := strconv.Atoi(value); err != nil {
		p.add(field, "Invalid "+field)
	}
}

// MaxLength fails the field if the value exceeds limit characters.
func (p *Pipeline) MaxLength(field, value string, limit int) {
	if utf8.RuneCountInString(value) > limit {
		p.add(field, fmt.Sprintf("Invalid %s. Max length exceeded", field))
	}
}
