// Package assets models externally hosted images as a provider plus an opaque key.
//
// A Ref is validated when it is written, so malformed keys (absolute URLs stored
// as Cloudinary public ids, duplicated path prefixes) are rejected up front and
// public URLs are only ever built by a Resolver.
package assets

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

type Provider string

const (
	ProviderCloudinary Provider = "cloudinary"
	ProviderLocal      Provider = "local"
	ProviderURL        Provider = "url"
)

var ErrInvalidRef = errors.New("invalid asset reference")

var cloudinaryKey = regexp.MustCompile(`^[A-Za-z0-9_\-]+(/[A-Za-z0-9_\-.]+)*$`)

type Ref struct {
	Provider Provider
	Key      string
}

// Parse accepts "provider:key" or a bare absolute http(s) URL.
func Parse(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		ref := Ref{Provider: ProviderURL, Key: s}
		return ref, ref.Validate()
	}

	provider, key, ok := strings.Cut(s, ":")
	if !ok {
		return Ref{}, fmt.Errorf("%w: %q has no provider prefix", ErrInvalidRef, s)
	}

	ref := Ref{Provider: Provider(provider), Key: key}
	return ref, ref.Validate()
}

func (r Ref) Validate() error {
	if r.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidRef)
	}

	switch r.Provider {
	case ProviderCloudinary:
		if strings.Contains(r.Key, "://") || strings.Contains(r.Key, "cloudinary.com") {
			return fmt.Errorf("%w: cloudinary key must be a public id, not a url", ErrInvalidRef)
		}
		if strings.HasPrefix(r.Key, "image/upload/") {
			return fmt.Errorf("%w: cloudinary key must not include the delivery path", ErrInvalidRef)
		}
		if !cloudinaryKey.MatchString(r.Key) {
			return fmt.Errorf("%w: malformed cloudinary public id %q", ErrInvalidRef, r.Key)
		}
	case ProviderLocal:
		if strings.HasPrefix(r.Key, "/") || strings.Contains(r.Key, "..") || strings.Contains(r.Key, "://") {
			return fmt.Errorf("%w: local key must be a relative media path", ErrInvalidRef)
		}
	case ProviderURL:
		u, err := url.Parse(r.Key)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q is not an absolute http url", ErrInvalidRef, r.Key)
		}
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidRef, r.Provider)
	}

	return nil
}

func (r Ref) IsZero() bool { return r.Provider == "" && r.Key == "" }

func (r Ref) String() string {
	if r.Provider == ProviderURL {
		return r.Key
	}
	return string(r.Provider) + ":" + r.Key
}

func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Ref) UnmarshalText(text []byte) error {
	ref, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// Resolver turns references into public URLs.
type Resolver struct {
	CloudinaryCloud string
	LocalBaseURL    string
}

func (r Resolver) URL(ref Ref) string {
	switch ref.Provider {
	case ProviderCloudinary:
		if r.CloudinaryCloud == "" {
			return ""
		}
		return "https://res.cloudinary.com/" + r.CloudinaryCloud + "/image/upload/" + ref.Key
	case ProviderLocal:
		return strings.TrimRight(r.LocalBaseURL, "/") + "/" + ref.Key
	case ProviderURL:
		return ref.Key
	}
	return ""
}
