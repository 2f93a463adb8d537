package insight

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"gifts-assessment-service/internal/domain"
)

// Fingerprint identifies a score profile for caching. Equal vectors always hash equally.
func Fingerprint(v domain.ScoreVector) string {
	keys := make([]string, 0, len(v.Scores))
	for k := range v.Scores {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%.4f;", k, v.Scores[domain.GiftKey(k)].WeightedTotal)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
