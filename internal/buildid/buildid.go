// Package buildid mints short identifiers for rendered document builds.
package buildid

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Length is the identifier length in hex characters.
const Length = 16

// New derives a build identifier from the source path, the
// classification, and the build instant. A random component is folded
// in so two builds of the same source in the same nanosecond still get
// distinct identifiers; the ledger keys entries on this value.
func New(sourcePath, classification string, now time.Time) string {
	h := sha256.New()
	h.Write([]byte(sourcePath))
	h.Write([]byte{'|'})
	h.Write([]byte(classification))
	h.Write([]byte{'|'})
	h.Write([]byte(now.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte{'|'})
	h.Write([]byte(uuid.NewString()))
	return hex.EncodeToString(h.Sum(nil))[:Length]
}
