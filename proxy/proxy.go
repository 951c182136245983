package proxy

import (
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
)

// ProxyFunc matches http.Transport.Proxy.
type ProxyFunc func(r *http.Request) (*url.URL, error)

type roundRobinSwitcher struct {
	proxyURLs []*url.URL
	index     uint32
}

// RoundRobinProxySwitcher returns a ProxyFunc that rotates through proxyURLs
// on every request. Supported schemes are http, https and socks5; a URL
// without a scheme is treated as http.
func RoundRobinProxySwitcher(proxyURLs ...string) (ProxyFunc, error) {
	if len(proxyURLs) < 1 {
		return nil, eris.New("proxy URL list is empty")
	}
	urls := make([]*url.URL, len(proxyURLs))
	for i, u := range proxyURLs {
		if !strings.Contains(u, "://") {
			u = "http://" + u
		}
		parsed, err := url.Parse(u)
		if err != nil {
			return nil, eris.Wrapf(err, "parse proxy %q", proxyURLs[i])
		}
		switch parsed.Scheme {
		case "http", "https", "socks5":
		default:
			return nil, eris.Errorf("unsupported proxy scheme %q", parsed.Scheme)
		}
		urls[i] = parsed
	}
	return (&roundRobinSwitcher{proxyURLs: urls}).GetProxy, nil
}

func (r *roundRobinSwitcher) GetProxy(_ *http.Request) (*url.URL, error) {
	index := atomic.AddUint32(&r.index, 1) - 1
	return r.proxyURLs[index%uint32(len(r.proxyURLs))], nil
}
