package runtime

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"sort"
)

// Fingerprint computes the content+lineage hash of an artifact: sha256 over
// the canonical JSON encoding of the content block and the parent
// fingerprint map sorted by parent id.
//
// The properties that matter: identical content and identical parent
// fingerprints always produce the same output regardless of map insertion
// order, and any change to either input changes the output. Every field is
// length-prefixed so adjacent values can never be confused for one another.
func Fingerprint(content any, parents map[string]string) (string, error) {
	canonical, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("content is not serializable: %w", err)
	}

	h := sha256.New()
	writeField(h, canonical)

	ids := make([]string, 0, len(parents))
	for id := range parents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	writeField(h, []byte{byte(len(ids))})
	for _, id := range ids {
		writeField(h, []byte(id))
		writeField(h, []byte(parents[id]))
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeField(h hash.Hash, data []byte) {
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], uint64(len(data)))
	h.Write(prefix[:])
	h.Write(data)
}
