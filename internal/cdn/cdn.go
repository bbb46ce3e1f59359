// Package cdn recognizes scripts served from community-maintained CDNs.
//
// Scripts on these hosts are outside the page owner's control, so there is
// nothing to upload for them and they are skipped without any network request.
package cdn

import (
	"net/url"
	"strings"
)

// communityHosts is the fixed set of community CDN hosts.
// Matching is exact; subdomains are not covered.
var communityHosts = map[string]struct{}{
	"ssl.google-analytics.com": {},
	"cdn.js.com":               {},
	"ajax.googleapis.com":      {},
	"cdn.ravenjs.com":          {},
	"cdn.jsdelivr.net":         {},
}

// IsCommunityCDN reports whether u is hosted on one of the community CDNs.
// Host names compare case-insensitively.
func IsCommunityCDN(u *url.URL) bool {
	if u == nil {
		return false
	}
	_, ok := communityHosts[strings.ToLower(u.Hostname())]
	return ok
}
