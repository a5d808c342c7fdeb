package sigrule

import "strings"

// Headers in this allow-list are excluded from pattern scanning. Their values
// are client-controlled but structurally constrained, and scanning them
// produces false positives (an Accept-Encoding value is never an attack
// surface the backend interprets).
var safeHeaders = map[string]bool{
	"accept":                    true,
	"accept-charset":            true,
	"accept-encoding":           true,
	"accept-language":           true,
	"cache-control":             true,
	"connection":                true,
	"content-length":            true,
	"content-type":              true,
	"cookie":                    true,
	"dnt":                       true,
	"host":                      true,
	"if-modified-since":         true,
	"if-none-match":             true,
	"origin":                    true,
	"pragma":                    true,
	"range":                     true,
	"referer":                   true,
	"te":                        true,
	"upgrade-insecure-requests": true,
	"user-agent":                true,
	"via":                       true,
	"x-requested-with":          true,
}

var safeHeaderPrefixes = []string{
	"accept-",
	"content-",
	"sec-fetch-",
	"sec-ch-",
	"if-",
}

func isSafeHeader(key string) bool {
	k := strings.ToLower(key)
	if safeHeaders[k] {
		return true
	}
	for _, p := range safeHeaderPrefixes {
		if strings.HasPrefix(k, p) {
			return true
		}
	}
	return false
}
