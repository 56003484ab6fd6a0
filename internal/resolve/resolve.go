// Package resolve expands a target host into the probe units a scan module
// fetches.
package resolve

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/maxvaer/reconx/internal/scanner"
	"github.com/maxvaer/reconx/internal/wordlist"
)

// Spec describes how a domain is expanded.
type Spec struct {
	Schemes            []string // e.g. https, http; probed in order
	Paths              []string // fixed paths, expanded before word-list entries
	Wordlist           string   // path to a word-list file
	UseDefaultWordlist bool     // use the embedded list when Wordlist is empty
	Sources            []string // external lookup URL templates with a {domain} placeholder
}

// DomainPlaceholder is substituted with the target host in source templates.
const DomainPlaceholder = "{domain}"

// ErrorKind classifies resolve failures.
type ErrorKind int

const (
	InvalidDomain ErrorKind = iota
	WordlistUnreadable
	InvalidTemplate
	UnsupportedScheme
)

// Sentinels matched by ResolveError via errors.Is.
var (
	ErrInvalidDomain      = errors.New("invalid domain")
	ErrWordlistUnreadable = errors.New("wordlist unreadable")
	ErrInvalidTemplate    = errors.New("invalid source template")
	ErrUnsupportedScheme  = errors.New("unsupported scheme")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case WordlistUnreadable:
		return ErrWordlistUnreadable
	case InvalidTemplate:
		return ErrInvalidTemplate
	case UnsupportedScheme:
		return ErrUnsupportedScheme
	default:
		return ErrInvalidDomain
	}
}

// ResolveError is returned when a domain cannot be expanded. It is fatal to
// the resolve call only.
type ResolveError struct {
	Kind  ErrorKind
	Input string // the offending domain, path, template or scheme
	Err   error
}

func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %v", e.Kind.sentinel(), e.Input, e.Err)
	}
	return fmt.Sprintf("%s %q", e.Kind.sentinel(), e.Input)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *ResolveError) Is(target error) bool { return target == e.Kind.sentinel() }

// Resolve expands domain into a deduplicated list of probe units.
//
// For each scheme, every fixed path and then every word-list entry becomes
// scheme://host/<path>. With no paths at all, each scheme yields the bare
// host. Source templates follow, with {domain} replaced by the host.
func Resolve(domain string, spec Spec) ([]scanner.ProbeUnit, error) {
	host, err := NormalizeDomain(domain)
	if err != nil {
		return nil, err
	}

	for _, s := range spec.Schemes {
		if s != "http" && s != "https" {
			return nil, &ResolveError{Kind: UnsupportedScheme, Input: s}
		}
	}

	paths := append([]string(nil), spec.Paths...)
	switch {
	case spec.Wordlist != "":
		words, err := wordlist.Load(spec.Wordlist)
		if err != nil {
			return nil, &ResolveError{Kind: WordlistUnreadable, Input: spec.Wordlist, Err: err}
		}
		paths = append(paths, words...)
	case spec.UseDefaultWordlist:
		paths = append(paths, wordlist.Default()...)
	}

	var units []scanner.ProbeUnit
	seen := make(map[string]struct{})
	add := func(u scanner.ProbeUnit) {
		if _, dup := seen[u.URL]; dup {
			return
		}
		seen[u.URL] = struct{}{}
		units = append(units, u)
	}

	for _, scheme := range spec.Schemes {
		if len(paths) == 0 {
			add(scanner.ProbeUnit{URL: scheme + "://" + host + "/", Hint: scanner.HintScheme})
			continue
		}
		for _, p := range paths {
			add(scanner.ProbeUnit{
				URL:  scheme + "://" + host + "/" + strings.TrimLeft(p, "/"),
				Hint: scanner.HintPath,
			})
		}
	}

	for _, tmpl := range spec.Sources {
		raw := strings.ReplaceAll(tmpl, DomainPlaceholder, host)
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, &ResolveError{Kind: InvalidTemplate, Input: tmpl, Err: err}
		}
		add(scanner.ProbeUnit{URL: raw, Hint: scanner.HintExternalSource})
	}

	return units, nil
}

// NormalizeDomain validates a bare hostname with an optional port and
// returns it in lower-case ASCII form.
func NormalizeDomain(domain string) (string, error) {
	d := strings.TrimSpace(domain)
	invalid := func(err error) (string, error) {
		return "", &ResolveError{Kind: InvalidDomain, Input: domain, Err: err}
	}
	if d == "" {
		return invalid(errors.New("empty"))
	}
	if strings.Contains(d, "://") {
		return invalid(errors.New("must not include a scheme"))
	}
	if strings.ContainsAny(d, "/?#@ ") {
		return invalid(errors.New("must be a bare hostname"))
	}

	host, port := d, ""
	if strings.Contains(d, ":") {
		h, p, err := net.SplitHostPort(d)
		if err != nil {
			return invalid(err)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return invalid(fmt.Errorf("bad port %q", p))
		}
		host, port = h, p
	}

	host = strings.TrimSuffix(host, ".")
	if host == "" || strings.Contains(host, "..") || strings.HasPrefix(host, ".") {
		return invalid(errors.New("empty label"))
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return invalid(err)
	}
	ascii = strings.ToLower(ascii)
	if port != "" {
		return net.JoinHostPort(ascii, port), nil
	}
	return ascii, nil
}
