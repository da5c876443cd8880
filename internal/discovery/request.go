package discovery

import (
	"strings"

	"github.com/evb0110/mss-downloader-sub014/internal/fetch"
)

// libRequest builds a fetch request carrying the library's timeout, header,
// and TLS policy. Adapters never set these per call site.
func libRequest(cfg *LibraryConfig, method, url string) *fetch.Request {
	return &fetch.Request{
		Method:      method,
		URL:         url,
		Headers:     cfg.Headers,
		Timeout:     cfg.Timeout(),
		InsecureTLS: cfg.InsecureTLS,
	}
}

// expand substitutes {key} placeholders in a URL template.
func expand(template string, vars map[string]string) string {
	out := template
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
