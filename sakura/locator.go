package sakura

import (
	"context"
	"net/url"
	"strings"

	"github.com/Somnusochi/auto-novel/errors"
)

// LocatorKind selects how a task is resolved
type LocatorKind string

const (
	KindWeb   LocatorKind = "web"
	KindWenku LocatorKind = "wenku"
)

// Locator is a parsed task. Each kind carries its own fields and resolves its
// own description.
type Locator interface {
	Kind() LocatorKind
	// Describe resolves the frozen job description, failing when the
	// referenced work (or volume) does not exist.
	Describe(ctx context.Context, resolver WorkResolver) (string, error)
}

// WebLocator points at a web novel: web/<provider>/<novel>
type WebLocator struct {
	ProviderID string
	NovelID    string
}

// Kind implements Locator
func (WebLocator) Kind() LocatorKind { return KindWeb }

// Describe returns the novel's original title
func (l WebLocator) Describe(ctx context.Context, resolver WorkResolver) (string, error) {
	title, err := resolver.WebNovelTitle(ctx, l.ProviderID, l.NovelID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return "", errors.WithDetailf(ErrNovelNotFound, "web novel %s/%s", l.ProviderID, l.NovelID)
		}
		return "", errors.Wrapf(err, "failed to look up web novel %s/%s", l.ProviderID, l.NovelID)
	}
	return title, nil
}

// WenkuLocator points at one uploaded volume of a published novel:
// wenku/<novel>/<volume>
type WenkuLocator struct {
	NovelID  string
	VolumeID string
}

// Kind implements Locator
func (WenkuLocator) Kind() LocatorKind { return KindWenku }

// Describe returns the novel title once both novel and volume are known
func (l WenkuLocator) Describe(ctx context.Context, resolver WorkResolver) (string, error) {
	title, err := resolver.WenkuNovelTitle(ctx, l.NovelID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return "", errors.WithDetailf(ErrNovelNotFound, "wenku novel %s", l.NovelID)
		}
		return "", errors.Wrapf(err, "failed to look up wenku novel %s", l.NovelID)
	}

	exists, err := resolver.WenkuVolumeExists(ctx, l.NovelID, l.VolumeID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to look up volume %s of wenku novel %s", l.VolumeID, l.NovelID)
	}
	if !exists {
		return "", errors.WithDetailf(ErrVolumeNotFound, "volume %s of wenku novel %s", l.VolumeID, l.NovelID)
	}
	return title, nil
}

// ParseLocator parses a task such as "web/kakuyomu/1177354054881165840" or
// "wenku/42/vol1.epub". The task is read as a relative URL: a leading slash is
// tolerated and any query string (chapter ranges, translator options) is
// ignored for resolution.
func ParseLocator(task string) (Locator, error) {
	u, err := url.Parse(strings.TrimSpace(task))
	if err != nil || u.Scheme != "" || u.Host != "" {
		return nil, errors.WithDetailf(ErrTaskMalformed, "task %q", task)
	}

	segments := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(segments) != 3 {
		return nil, errors.WithDetailf(ErrTaskMalformed, "task %q needs exactly three path segments", task)
	}
	for _, s := range segments {
		if s == "" {
			return nil, errors.WithDetailf(ErrTaskMalformed, "task %q has an empty path segment", task)
		}
	}

	switch LocatorKind(segments[0]) {
	case KindWeb:
		return WebLocator{ProviderID: segments[1], NovelID: segments[2]}, nil
	case KindWenku:
		return WenkuLocator{NovelID: segments[1], VolumeID: segments[2]}, nil
	default:
		return nil, errors.WithDetailf(ErrTaskMalformed, "unknown task kind %q", segments[0])
	}
}
