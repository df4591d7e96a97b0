package syncer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/agentic-research/figdex/internal/remote"
)

// fingerprint derives a deterministic content hash from a node's visually
// relevant fields: name, type, and geometry rounded to whole pixels. It is
// used only for cheap difference detection between syncs, not integrity.
func fingerprint(n *remote.Node) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d|%d|%d|%d",
		n.Name, n.Type, roundGeo(n.X), roundGeo(n.Y), roundGeo(n.Width), roundGeo(n.Height)))
	return hex.EncodeToString(h[:8])
}

func roundGeo(f *float64) int64 {
	if f == nil {
		return math.MinInt64 // distinguishes "absent" from 0
	}
	return int64(math.Round(*f))
}
