// Package secret masks credentials before they reach logs.
package secret

import (
	"net/url"
	"strings"
)

// Mask returns a masked representation of a secret string.
// - length <= 5: fully masked
// - length <= 20: first and last characters visible
// - length > 20: first 3 and last 1 characters visible
func Mask(s string) string {
	r := []rune(s)
	n := len(r)
	switch {
	case n == 0:
		return ""
	case n <= 5:
		return strings.Repeat("*", n)
	case n <= 20:
		return string(r[:1]) + strings.Repeat("*", n-2) + string(r[n-1:])
	default:
		return string(r[:3]) + strings.Repeat("*", n-4) + string(r[n-1:])
	}
}

// credentialParams are query parameters tile providers use for access keys.
var credentialParams = []string{"tk", "token", "key", "access_token", "api_key", "apikey"}

// MaskURL masks credential query parameters and userinfo passwords in a
// provider URL. Strings that do not parse as URLs are returned unchanged.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.RawQuery == "" && u.User == nil) {
		return raw
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	q := u.Query()
	changed := false
	for _, p := range credentialParams {
		for k, vs := range q {
			if !strings.EqualFold(k, p) {
				continue
			}
			for i, v := range vs {
				vs[i] = Mask(v)
			}
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
