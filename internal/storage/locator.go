// Package storage streams single objects to and from Cloud Storage.
package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dvcrn/gcs-stream/internal/apperr"
)

// Scheme is the only accepted locator scheme.
const Scheme = "gs"

// ErrInvalidLocator marks a locator that is not gs://bucket/key.
var ErrInvalidLocator = errors.New("invalid locator")

// ObjectLocator names one object in a bucket.
type ObjectLocator struct {
	Bucket string
	Key    string
}

// ParseLocator parses gs://bucket/key. Exactly one leading "/" is removed from
// the path; the rest of the key is kept verbatim, so percent signs, "?" and
// "#" are part of the object name rather than escapes, queries or fragments.
func ParseLocator(s string) (ObjectLocator, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok || !strings.EqualFold(scheme, Scheme) {
		return ObjectLocator{}, apperr.NewFatal(fmt.Errorf("%w: %q must start with %s://", ErrInvalidLocator, s, Scheme))
	}

	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return ObjectLocator{}, apperr.NewFatal(fmt.Errorf("%w: %q has no bucket", ErrInvalidLocator, s))
	}
	// The bucket must still be a valid URL host.
	if u, err := url.Parse(Scheme + "://" + bucket); err != nil {
		return ObjectLocator{}, apperr.NewFatal(fmt.Errorf("%w: %w", ErrInvalidLocator, err))
	} else if u.Host != bucket {
		return ObjectLocator{}, apperr.NewFatal(fmt.Errorf("%w: %q is not a valid bucket", ErrInvalidLocator, bucket))
	}

	return ObjectLocator{Bucket: bucket, Key: key}, nil
}

func (l ObjectLocator) String() string {
	return fmt.Sprintf("%s://%s/%s", Scheme, l.Bucket, l.Key)
}

// escapedKey is the key as a single path segment, with "/" written as %2F.
func (l ObjectLocator) escapedKey() string {
	return url.PathEscape(l.Key)
}
