package debrid

import (
	"context"
	"sort"

	"github.com/Luca1234105/torren/internal/models"
)

// Service names as they appear in user configuration
const (
	ServiceRealDebrid = "realdebrid"
	ServiceTorBox     = "torbox"
)

// StatusDownloaded is the resource status that means the content is ready to serve.
const StatusDownloaded = "downloaded"

// Prober reports which hashes a debrid service can serve instantly.
// Implementations never return an error: a failed probe is an empty set.
type Prober interface {
	// ProbeBatch checks all hashes with a single remote request
	ProbeBatch(ctx context.Context, hashes []models.ContentHash, credential string) HashSet

	// Name returns the service name (e.g., "realdebrid")
	Name() string
}

// ResourceClient drives the lifecycle of one remote torrent resource.
// A ResourceClient is bound to a single credential.
type ResourceClient interface {
	// Create adds the hash to the account and returns the resource id
	Create(ctx context.Context, hash models.ContentHash) (string, error)

	// SelectAll selects every file of the resource for download
	SelectAll(ctx context.Context, id string) error

	// ReadStatus returns status, files and output links of the resource
	ReadStatus(ctx context.Context, id string) (*ResourceStatus, error)

	// Delete removes the resource from the account
	Delete(ctx context.Context, id string) error

	// Unrestrict exchanges an output link for a direct download URL
	Unrestrict(ctx context.Context, link string) (*UnrestrictedLink, error)
}

// ResourceFile represents a file within a remote resource
type ResourceFile struct {
	ID       int    // Service-side file id
	Path     string // File path within torrent
	Bytes    int64  // File size in bytes
	Selected bool   // Whether this file is selected for download
}

// ResourceStatus is a snapshot of a remote resource.
type ResourceStatus struct {
	ID       string
	Filename string
	Hash     string
	Status   string
	Bytes    int64
	Files    []ResourceFile
	Links    []string
}

// Ready reports whether the resource reached the terminal downloaded state.
func (s *ResourceStatus) Ready() bool {
	return s != nil && s.Status == StatusDownloaded
}

// UnrestrictedLink is the result of exchanging an output link.
type UnrestrictedLink struct {
	ID       string
	Filename string
	Filesize int64
	Link     string
	Host     string
	Download string
}

// URL returns the direct download URL, falling back to the unrestricted link.
func (u *UnrestrictedLink) URL() string {
	if u.Download != "" {
		return u.Download
	}
	return u.Link
}

// CacheVerdict is the outcome of a cache check.
type CacheVerdict int

const (
	// Unknown covers missing input and any remote failure.
	Unknown CacheVerdict = iota
	NotCached
	Cached
)

func (v CacheVerdict) String() string {
	switch v {
	case Cached:
		return "cached"
	case NotCached:
		return "not_cached"
	default:
		return "unknown"
	}
}

// HashSet is an unordered set of content hashes.
type HashSet map[models.ContentHash]struct{}

// NewHashSet builds a set from hashes.
func NewHashSet(hashes ...models.ContentHash) HashSet {
	set := make(HashSet, len(hashes))
	for _, h := range hashes {
		set[h] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s HashSet) Has(h models.ContentHash) bool {
	_, ok := s[h]
	return ok
}

// Sorted returns the members in lexical order.
func (s HashSet) Sorted() []models.ContentHash {
	out := make([]models.ContentHash, 0, len(s))
	for h := range s {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
