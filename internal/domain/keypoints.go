package domain

import "encoding/json"

// KeyPointsFailed is stored in place of real key points when extraction
// produced nothing usable. A record whose first key point equals this
// sentinel is a poisoned cache entry: the next request for the same text
// re-analyzes instead of serving the failure.
const KeyPointsFailed = "Gagal mengekstrak poin penting"

// EncodeKeyPoints serializes points for storage. A nil slice encodes as an
// empty list, never as JSON null.
func EncodeKeyPoints(points []string) []byte {
	if points == nil {
		points = []string{}
	}
	b, _ := json.Marshal(points)
	return b
}

// DecodeKeyPoints parses stored key points back into a list of strings.
func DecodeKeyPoints(raw []byte) ([]string, error) {
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CacheValid reports whether the stored record may be served as a cache hit.
// The single rule, shared by the analyze and listing paths: key points must
// decode, be non-empty, and not start with the failure sentinel.
func (r Review) CacheValid() bool {
	pts, err := DecodeKeyPoints(r.KeyPointsRaw)
	if err != nil {
		return false
	}
	return len(pts) > 0 && pts[0] != KeyPointsFailed
}
