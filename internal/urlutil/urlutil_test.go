package urlutil

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://Example.COM/Path/", "https://example.com/path"},
		{"  https://example.com  ", "https://example.com"},
		{"https://example.com///", "https://example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestHostname(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://Example.COM/path", "example.com"},
		{"http://sub.example.com:8080/x", "sub.example.com"},
		{"not a url at all", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Hostname(tt.in); got != tt.want {
			t.Errorf("Hostname(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestIsWebScheme(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"http://example.com", true},
		{"https://example.com", true},
		{"HTTPS://example.com", true},
		{"chrome://settings", false},
		{"about:blank", false},
		{"file:///etc/passwd", false},
		{"data:text/html,hi", false},
		{"ftp://example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsWebScheme(tt.in); got != tt.want {
			t.Errorf("IsWebScheme(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestCacheKey_StableUnderCosmeticVariation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("key ignores case and trailing slashes", prop.ForAll(
		func(host string, path string) bool {
			url := "https://" + host + ".example/" + path
			base := CacheKey("shield:url:", url)
			return CacheKey("shield:url:", strings.ToUpper(url)) == base &&
				CacheKey("shield:url:", url+"/") == base &&
				CacheKey("shield:url:", "  "+url+"  ") == base
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("distinct URLs get distinct keys", prop.ForAll(
		func(a string, b string) bool {
			if strings.EqualFold(a, b) {
				return true
			}
			return CacheKey("shield:url:", "https://"+a+".example") !=
				CacheKey("shield:url:", "https://"+b+".example")
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

func TestCacheKey_CarriesPrefix(t *testing.T) {
	key := CacheKey("shield:url:", "https://example.com")
	if !strings.HasPrefix(key, "shield:url:") {
		t.Errorf("expected the configured prefix, got %q", key)
	}
	if len(key) != len("shield:url:")+64 {
		t.Errorf("expected a sha256 hex digest after the prefix, got length %d", len(key))
	}
}
