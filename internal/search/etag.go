package search

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// computeETag derives the response ETag from the query parameters,
// filter values, and store watermark (spec.md §4.D). Any write that
// advances the watermark changes every ETag derived before it.
func computeETag(q Query, watermark int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "q=%s&mode=%s&limit=%d&rag=%t&rerank=%s&include_pending=%t",
		q.Text, q.Mode, q.Limit, q.WithRAG, q.Rerank, q.Filters.IncludePending)
	fmt.Fprintf(&b, "&type=%s", q.Filters.Type)
	writeSortedSet(&b, "caps", q.Filters.Capabilities)
	writeSortedSet(&b, "fw", q.Filters.Frameworks)
	writeSortedSet(&b, "prov", q.Filters.Providers)
	fmt.Fprintf(&b, "&watermark=%d", watermark)

	sum := sha256.Sum256([]byte(b.String()))
	return `"` + hex.EncodeToString(sum[:])[:32] + `"`
}

func writeSortedSet(b *strings.Builder, name string, values []string) {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	fmt.Fprintf(b, "&%s=%s", name, strings.Join(sorted, ","))
}
