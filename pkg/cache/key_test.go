package cache

import (
	"strings"
	"testing"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "periods and reserved characters",
			url:  "http://a.com/x.y",
			want: "http%3A%2F%2Fa_com%2Fx_y",
		},
		{
			name: "query string",
			url:  "https://example.com/search?q=go lang&page=2",
			want: "https%3A%2F%2Fexample_com%2Fsearch%3Fq%3Dgo%20lang%26page%3D2",
		},
		{
			name: "unreserved marks kept",
			url:  "https://x.io/a-b_c!~*'()",
			want: "https%3A%2F%2Fx_io%2Fa-b_c!~*'()",
		},
		{
			name: "fragment and hash",
			url:  "https://x.io/#/route",
			want: "https%3A%2F%2Fx_io%2F%23%2Froute",
		},
		{
			name: "non-ascii is utf-8 percent-encoded",
			url:  "https://x.io/café",
			want: "https%3A%2F%2Fx_io%2Fcaf%C3%A9",
		},
		{
			name: "empty",
			url:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.url); got != tt.want {
				t.Errorf("Key(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestKey_NoPeriods(t *testing.T) {
	urls := []string{
		"http://a.com/x.y",
		"https://www.example.co.uk/index.html?v=1.2.3",
		"...",
	}

	for _, u := range urls {
		if got := Key(u); strings.Contains(got, ".") {
			t.Errorf("Key(%q) = %q contains a period", u, got)
		}
	}
}

func TestKey_Determinism(t *testing.T) {
	url := "https://example.com/products/42?color=red&size=m"

	first := Key(url)
	for i := 0; i < 10; i++ {
		if got := Key(url); got != first {
			t.Errorf("Key() iteration %d = %q, want %q (not deterministic)", i, got, first)
		}
	}
}

func TestKey_DistinctURLs(t *testing.T) {
	urls := []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/a?x=1",
		"https://example.com/a/",
		"https://example.com/a%20b",
		"https://example.com/a b",
		"http://example.com/a",
	}

	seen := make(map[string]string)
	for _, u := range urls {
		k := Key(u)
		if prev, ok := seen[k]; ok {
			t.Errorf("Key(%q) collides with Key(%q): %q", u, prev, k)
		}
		seen[k] = u
	}
}

func TestStoreKey(t *testing.T) {
	got := StoreKey("http://a.com/")
	want := "cache:http%3A%2F%2Fa_com%2F"
	if got != want {
		t.Errorf("StoreKey() = %q, want %q", got, want)
	}
}
