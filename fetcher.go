package scout

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// ProbeFetcher is the production Fetcher. It performs a plain GET with the
// configured user agent, follows redirects, and reports the effective URL
// the response was finally served from so ingestion can apply its redirect
// gate.
type ProbeFetcher struct {
	client *http.Client
}

// NewProbeFetcher builds a ProbeFetcher from the global fetcher config
// (timeout, optional proxy).
func NewProbeFetcher() *ProbeFetcher {
	timeout, err := time.ParseDuration(Config.Fetcher.HTTPTimeout)
	if err != nil {
		panic(err) // This won't happen b/c this duration is checked in Config
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if Config.Fetcher.ProxyHost != "" {
		proxyURL := &url.URL{
			Scheme: "http",
			Host:   fmt.Sprintf("%s:%d", Config.Fetcher.ProxyHost, Config.Fetcher.ProxyPort),
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &ProbeFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// Fetch issues the probe GET. The returned response degrades missing
// pieces to a 400 with an empty body rather than failing, so only
// transport-level problems surface as errors.
func (pf *ProbeFetcher) Fetch(target string) (*FetchResponse, error) {
	req, err := http.NewRequest("GET", target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", Config.Fetcher.UserAgent)

	logrus.Debugf("Probing %v", target)
	res, err := pf.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	fr := &FetchResponse{
		StatusCode:   res.StatusCode,
		EffectiveURL: target,
	}
	if fr.StatusCode == 0 {
		fr.StatusCode = 400
	}
	if res.Request != nil && res.Request.URL != nil {
		fr.EffectiveURL = res.Request.URL.String()
	}

	limit := int64(Config.Fetcher.MaxBodyExcerptBytes)
	if limit <= 0 {
		limit = 2048
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, limit))
	if err != nil {
		logrus.Debugf("Failed reading probe body for %v: %v", target, err)
	}
	fr.Body = string(body)

	return fr, nil
}
