package validate

import (
	"net/url"
	"regexp"
	"strings"
)

// DomainResolver is the capability an Email validator uses to verify that a
// mail domain resolves. Tests and offline callers leave it unset.
type DomainResolver interface {
	LookupMailDomain(domain string) error
}

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)+$`)

type emailValidator struct {
	base
	resolver DomainResolver
}

var emailMessages = Messages{
	"noAt":      "an email address must contain a single @",
	"badShape":  "the email address %(value)s is not valid",
	"badDomain": "the domain of the email address does not exist",
}

// Email normalizes surrounding whitespace and checks address shape.
func Email(opts ...Option) Validator {
	return &emailValidator{base: newBase(emailMessages, opts)}
}

// EmailWithResolver is Email plus a domain resolution step through r.
func EmailWithResolver(r DomainResolver, opts ...Option) Validator {
	return &emailValidator{base: newBase(emailMessages, opts), resolver: r}
}

func (v *emailValidator) ToGo(value any, st State) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, v.invalid(st, value, "badShape", "value", value)
	}
	s = strings.TrimSpace(s)
	if err := v.ValidateGo(s, st); err != nil {
		return nil, err
	}
	return s, nil
}

func (v *emailValidator) FromGo(value any, _ State) (any, error) {
	return value, nil
}

func (v *emailValidator) ValidateGo(value any, st State) error {
	s, ok := value.(string)
	if !ok {
		return v.invalid(st, value, "badShape", "value", value)
	}
	if strings.Count(s, "@") != 1 {
		return v.invalid(st, value, "noAt")
	}
	if !emailRe.MatchString(s) {
		return v.invalid(st, value, "badShape", "value", s)
	}
	if v.resolver != nil {
		domain := s[strings.Index(s, "@")+1:]
		if err := v.resolver.LookupMailDomain(domain); err != nil {
			return v.invalid(st, value, "badDomain")
		}
	}
	return nil
}

// URLProber is the capability a URL validator uses for reachability checks.
type URLProber interface {
	Probe(url string) error
}

type urlValidator struct {
	base
	defaultScheme string
	prober        URLProber
}

var urlMessages = Messages{
	"badShape":    "that is not a valid URL",
	"unreachable": "the URL could not be reached",
}

// URL prepends the default scheme when absent, lowercases the scheme and
// checks URL shape. With a prober, reachability is verified too.
func URL(opts ...Option) Validator {
	return &urlValidator{base: newBase(urlMessages, opts), defaultScheme: "http"}
}

// URLWithProber is URL plus a reachability probe through p.
func URLWithProber(p URLProber, opts ...Option) Validator {
	return &urlValidator{base: newBase(urlMessages, opts), defaultScheme: "http", prober: p}
}

func (v *urlValidator) ToGo(value any, st State) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, v.invalid(st, value, "badShape")
	}
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "://") {
		s = v.defaultScheme + "://" + s
	}
	parsed, err := url.Parse(s)
	if err != nil || parsed.Host == "" || !strings.Contains(parsed.Host, ".") {
		return nil, v.invalid(st, value, "badShape")
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	s = parsed.String()
	if v.prober != nil {
		if err := v.prober.Probe(s); err != nil {
			return nil, v.invalid(st, value, "unreachable")
		}
	}
	return s, nil
}

func (v *urlValidator) FromGo(value any, _ State) (any, error) {
	return value, nil
}

func (v *urlValidator) ValidateGo(value any, st State) error {
	_, err := v.ToGo(value, st)
	return err
}
