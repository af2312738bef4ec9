package phemex

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign computes the HMAC-SHA256 signature over the canonical message
// apiKey ‖ expiry ‖ queryStringSorted ‖ requestBody, hex-encoded, using
// the secret key (spec.md §4.1 "Request signing protocol"). Query
// parameters are lexicographically sorted by key before concatenation.
func Sign(secret, apiKey, expiry string, query map[string]string, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(apiKey))
	mac.Write([]byte(expiry))
	mac.Write([]byte(sortedQueryString(query)))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

// sortedQueryString renders each query param as its key immediately
// followed by its value, concatenated in lexicographic key order, with no
// separators ('=' or '&') at all — matching the "canonical
// message" the exchange expects its signature over, not a URL-encoded
// query string.
func sortedQueryString(query map[string]string) string {
	if len(query) == 0 {
		return ""
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(query[k])
	}
	return b.String()
}
