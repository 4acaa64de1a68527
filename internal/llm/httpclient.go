package llm

import (
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultTimeout bounds a single backend request.
const DefaultTimeout = 60 * time.Second

// ProxyURL picks the outbound proxy from HTTPS_PROXY/https_proxy, then
// HTTP_PROXY/http_proxy. Only http and https proxies are used; anything else
// (socks, garbage) is ignored.
func ProxyURL(getenv func(string) string) *url.URL {
	if getenv == nil {
		getenv = os.Getenv
	}
	candidates := []string{
		firstNonEmpty(getenv("HTTPS_PROXY"), getenv("https_proxy")),
		firstNonEmpty(getenv("HTTP_PROXY"), getenv("http_proxy")),
	}
	for _, raw := range candidates {
		if raw == "" {
			continue
		}
		if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		return u
	}
	return nil
}

// NewTransport returns the pooled transport shared by the vendor clients.
func NewTransport() *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConns = 50
	tr.MaxIdleConnsPerHost = 20
	tr.Proxy = nil
	if proxy := ProxyURL(nil); proxy != nil {
		tr.Proxy = http.ProxyURL(proxy)
	}
	return tr
}

// NewHTTPClient builds a client around rt with the given timeout; zero means
// DefaultTimeout.
func NewHTTPClient(rt http.RoundTripper, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if rt == nil {
		rt = NewTransport()
	}
	return &http.Client{Transport: rt, Timeout: timeout}
}

// CloseIdle drops idle keep-alive connections held by client.
func CloseIdle(client *http.Client) {
	if client != nil {
		client.CloseIdleConnections()
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
