package vecio

import (
	"fmt"
	"net/url"
	"strings"
)

// Location is a parsed dataset reference.
type Location struct {
	// Scheme is "file" or "s3".
	Scheme string
	// Bucket is set for s3 locations.
	Bucket string
	// Key is the object key, or the file path for file locations.
	Key string
}

// IsRemote reports whether l lives in an object store.
func (l Location) IsRemote() bool { return l.Scheme == "s3" }

func (l Location) String() string {
	if l.IsRemote() {
		return "s3://" + l.Bucket + "/" + l.Key
	}
	return l.Key
}

// ParseURI parses "s3://bucket/key", "file:///path" or a plain path.
func ParseURI(uri string) (Location, error) {
	if uri == "" {
		return Location{}, fmt.Errorf("empty dataset location")
	}
	if !strings.Contains(uri, "://") {
		return Location{Scheme: "file", Key: uri}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("invalid dataset location %q: %w", uri, err)
	}
	switch u.Scheme {
	case "file":
		if u.Path == "" {
			return Location{}, fmt.Errorf("invalid dataset location %q: missing path", uri)
		}
		return Location{Scheme: "file", Key: u.Path}, nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("invalid dataset location %q: want s3://bucket/key", uri)
		}
		return Location{Scheme: "s3", Bucket: u.Host, Key: key}, nil
	default:
		return Location{}, fmt.Errorf("invalid dataset location %q: unsupported scheme %q", uri, u.Scheme)
	}
}
