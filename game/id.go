package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash"
)

// NewResultID derives a stable id for a game from its config and the time
// it finished. Two games with the same roles and word that end at the same
// nanosecond are indistinguishable, which is fine for an append-only log.
func NewResultID(cfg Config, finished time.Time) string {
	var b strings.Builder
	b.WriteString(cfg.DictionaryID)
	b.WriteByte('|')
	b.WriteString(cfg.Word)
	b.WriteByte('|')
	b.WriteString(cfg.HolderID)
	b.WriteByte('|')
	b.WriteString(strings.Join(cfg.AttackerIDs, ","))
	b.WriteByte('|')
	b.WriteString(finished.UTC().Format(time.RFC3339Nano))
	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}
