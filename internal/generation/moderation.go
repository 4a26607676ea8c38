package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MsgRejected is reported when moderation blocks a job.
const MsgRejected = "NSFW content detected"

// Moderator decides whether a pair of images may be rendered. A non-empty
// reason rejects the job with that message.
type Moderator interface {
	Review(ctx context.Context, subject, garment []byte) (reason string, err error)
}

// Blocklist rejects images whose SHA-256 digest appears in the list.
type Blocklist struct {
	digests map[string]struct{}
}

// NewBlocklist builds a Blocklist from hex digests.
func NewBlocklist(digests []string) *Blocklist {
	b := &Blocklist{digests: make(map[string]struct{}, len(digests))}
	for _, d := range digests {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			b.digests[d] = struct{}{}
		}
	}
	return b
}

func (b *Blocklist) Review(_ context.Context, subject, garment []byte) (string, error) {
	if b == nil || len(b.digests) == 0 {
		return "", nil
	}
	for _, data := range [][]byte{subject, garment} {
		sum := sha256.Sum256(data)
		if _, ok := b.digests[hex.EncodeToString(sum[:])]; ok {
			return MsgRejected, nil
		}
	}
	return "", nil
}
