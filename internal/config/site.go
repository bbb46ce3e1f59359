package config

import (
	"net/http"
	"strings"
)

// SiteConfig holds request settings for one host.
type SiteConfig struct {
	// Cookie is sent as the Cookie header.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this host.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the .sourcemapscan configuration file.
type File struct {
	// Sites maps host names without a port (e.g., "staging.example.com")
	// to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every host unless overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host merged over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := SiteConfig{Cookie: cf.Defaults.Cookie}
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	site, ok := cf.lookup(host)
	if !ok {
		return result
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		for k, v := range site.Headers {
			result.Headers[k] = v
		}
	}
	return result
}

// lookup finds the site entry for host. Keys match case-insensitively.
func (cf *File) lookup(host string) (SiteConfig, bool) {
	if site, ok := cf.Sites[host]; ok {
		return site, true
	}
	for name, site := range cf.Sites {
		if strings.EqualFold(name, host) {
			return site, true
		}
	}
	return SiteConfig{}, false
}

// HeadersFor returns the request headers configured for host.
// It satisfies fetch.HeaderSource.
func (cf *File) HeadersFor(host string) http.Header {
	if cf == nil {
		return nil
	}

	site := cf.GetSiteConfig(host)
	if site.Cookie == "" && len(site.Headers) == 0 {
		return nil
	}

	h := make(http.Header, len(site.Headers)+1)
	for k, v := range site.Headers {
		h.Set(k, v)
	}
	if site.Cookie != "" {
		h.Set("Cookie", site.Cookie)
	}
	return h
}
