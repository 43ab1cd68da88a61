package api

// Cache-Control header values.
const (
	// Cover ids are never reused, so cover bytes can be cached for good.
	CacheImmutable = "public, max-age=31536000, immutable"
	CacheNoStore   = "no-store"
)

var bearerSecurity = []map[string][]string{{"bearer": {}}}
