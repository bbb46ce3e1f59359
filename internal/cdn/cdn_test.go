package cdn

import (
	"net/url"
	"testing"
)

// TestIsCommunityCDN tests exact host matching.
func TestIsCommunityCDN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "google analytics", url: "https://ssl.google-analytics.com/ga.js", want: true},
		{name: "cdn.js.com", url: "http://cdn.js.com/lib.js", want: true},
		{name: "google apis", url: "https://ajax.googleapis.com/ajax/libs/jquery/3.7.1/jquery.min.js", want: true},
		{name: "raven", url: "https://cdn.ravenjs.com/3.26.4/raven.min.js", want: true},
		{name: "jsdelivr", url: "https://cdn.jsdelivr.net/npm/vue@3", want: true},
		{name: "upper-case host", url: "https://CDN.JSDELIVR.NET/npm/lib.min.js", want: true},
		{name: "mixed-case host", url: "https://Ajax.GoogleAPIs.com/ajax/libs/jquery/3.7.1/jquery.min.js", want: true},
		{name: "jsdelivr with port", url: "https://cdn.jsdelivr.net:443/npm/vue@3", want: true},
		{name: "subdomain is not matched", url: "https://fastly.cdn.jsdelivr.net/npm/vue@3", want: false},
		{name: "suffix is not matched", url: "https://evilcdn.jsdelivr.net.example.com/x.js", want: false},
		{name: "own host", url: "https://example.com/static/app.js", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u, err := url.Parse(tt.url)
			if err != nil {
				t.Fatalf("failed to parse URL: %v", err)
			}
			if got := IsCommunityCDN(u); got != tt.want {
				t.Errorf("IsCommunityCDN(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}

	t.Run("nil URL", func(t *testing.T) {
		t.Parallel()
		if IsCommunityCDN(nil) {
			t.Error("expected nil URL not to match")
		}
	})
}
