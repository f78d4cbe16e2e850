// Package alert implements the deduplicating alert lifecycle: stable
// fingerprinting, status transitions, and the rule that links a
// deduplicated alert to its triggered workflow.
package alert

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Fingerprint computes the stable SHA-256 fingerprint of an alert name
// plus its canonicalized (key-sorted) label set: sha256(name || "-" ||
// json(sorted_labels)), hex-encoded. Sorting by key makes the result
// independent of label insertion order (spec.md §8 property 1).
func Fingerprint(name string, labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(labels[k])
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')

	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte("-"))
	h.Write(buf.Bytes())
	return hex.EncodeToString(h.Sum(nil))
}
