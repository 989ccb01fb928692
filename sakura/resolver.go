package sakura

import "context"

// WorkResolver looks up the translatable works a task may point at.
// Missing rows are reported as errors.ErrNotFound; anything else is a
// storage fault.
type WorkResolver interface {
	// WebNovelTitle returns the original (Japanese) title of a web novel
	WebNovelTitle(ctx context.Context, providerID, novelID string) (string, error)
	// WenkuNovelTitle returns the title of a published (wenku) novel
	WenkuNovelTitle(ctx context.Context, novelID string) (string, error)
	// WenkuVolumeExists reports whether the volume file is known for the novel
	WenkuVolumeExists(ctx context.Context, novelID, volumeID string) (bool, error)
}
