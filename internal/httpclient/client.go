// Package httpclient builds the *http.Client used by the transport layer,
// with the socket and proxy tuning relaydl needs for many concurrent
// range-request connections to the same host.
package httpclient

import (
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/relaydl/relaydl/internal/utils"
)

// Config controls how a Client dials and authenticates to a remote host.
// Zero value is usable; Timeout/KeepAlive fall back to sane defaults.
type Config struct {
	Timeout        time.Duration
	KeepAlive      time.Duration
	ProxyURL       string
	ProxyUsername  string
	ProxyPassword  string
	UserAgent      string
	Headers        map[string]string
	HighThreadMode bool // tune socket buffers for many concurrent segment workers
	MaxConnsPerHost int
}

// Client wraps *http.Client with the headers relaydl attaches to every
// outgoing request (User-Agent, custom headers). It satisfies
// dlcore.Doer, so the dlcore transport never sees proxy, header, or socket
// configuration.
type Client struct {
	http   *http.Client
	config Config
}

func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 60 * time.Second
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = 64
	}
	transport := &http.Transport{
		IdleConnTimeout:     cfg.KeepAlive,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     0,
		DisableCompression:  true,
	}
	dialer := &net.Dialer{
		Timeout:   cfg.Timeout,
		KeepAlive: cfg.KeepAlive,
	}
	if cfg.HighThreadMode {
		dialer.Control = func(network, address string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				setSocketOptions(fd)
			})
		}
	}
	transport.DialContext = dialer.DialContext
	if cfg.ProxyURL != "" {
		if proxyURL, err := url.Parse(cfg.ProxyURL); err == nil {
			if cfg.ProxyUsername != "" {
				if cfg.ProxyPassword != "" {
					proxyURL.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
				} else {
					proxyURL.User = url.User(cfg.ProxyUsername)
				}
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &Client{
		http: &http.Client{
			Transport: transport,
			// No client-wide Timeout: segment downloads are long-lived and
			// bounded by the caller's context instead.
		},
		config: cfg,
	}
}

func (c *Client) SetHeader(key, value string) {
	if c.config.Headers == nil {
		c.config.Headers = make(map[string]string)
	}
	c.config.Headers[key] = value
}

// Do attaches the configured User-Agent and static headers, then dispatches
// the request. Callers are expected to have already set Range and any
// request-specific headers on req.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		if c.config.UserAgent != "" {
			req.Header.Set("User-Agent", c.config.UserAgent)
		} else {
			req.Header.Set("User-Agent", utils.ToolUserAgent)
		}
	}
	for k, v := range c.config.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return c.http.Do(req)
}
