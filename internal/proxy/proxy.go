// Package proxy fronts www.neopets.com with a reverse proxy that observes
// igloo purchase responses. Observation is strictly passive: the original
// bytes always reach the client, and nothing that goes wrong while
// classifying may surface into the proxied response.
package proxy

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/safeira/iglootrack/internal/classify"
	"github.com/safeira/iglootrack/internal/tracker"
)

// maxTapBody bounds how much of an observed response is read for
// classification. Igloo payloads are a few KB.
const maxTapBody = 1 << 20

// Proxy is the intercepting reverse proxy.
type Proxy struct {
	upstream *url.URL
	tracker  *tracker.Tracker
	log      zerolog.Logger
	now      func() time.Time
	rp       *httputil.ReverseProxy
}

// New builds a proxy toward the given upstream base URL.
func New(upstream string, tr *tracker.Tracker, log zerolog.Logger) (*Proxy, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, err
	}

	p := &Proxy{
		upstream: target,
		tracker:  tr,
		log:      log.With().Str("component", "proxy").Logger(),
		now:      time.Now,
	}

	p.rp = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = target.Host
			// Ask upstream for identity encoding so the tap can read the
			// target payload without decompressing.
			if classify.IsTarget(pr.Out.URL.Path) {
				pr.Out.Header.Del("Accept-Encoding")
			}
		},
		ModifyResponse: p.observe,
		ErrorLog:       nil,
	}

	return p, nil
}

// Handler returns the HTTP handler to mount.
func (p *Proxy) Handler() http.Handler {
	return p.rp
}

// observe taps responses for the igloo endpoint. The body is read once,
// restored verbatim, and the classification outcome applied to the
// tracker. Returning an error here would replace the page's response
// with a 502, so observe never does.
func (p *Proxy) observe(resp *http.Response) error {
	if resp.Request == nil || !classify.IsTarget(resp.Request.URL.Path) {
		return nil
	}

	reqID := uuid.NewString()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTapBody))
	if err != nil {
		p.log.Warn().Err(err).Str("req_id", reqID).Msg("reading observed response failed")
		resp.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), resp.Body))
		return nil
	}
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	p.dispatch(reqID, resp.Request.URL.String(), body)
	return nil
}

// dispatch classifies and applies one observed payload. Panics and apply
// errors are contained here; tracking degrades, the page does not.
func (p *Proxy) dispatch(reqID, rawURL string, body []byte) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Str("req_id", reqID).Interface("panic", r).Msg("classification panicked")
		}
	}()

	out := classify.Classify(rawURL, body)
	if out.Kind == classify.KindNoOp {
		return
	}

	p.log.Info().
		Str("req_id", reqID).
		Stringer("kind", out.Kind).
		Str("item_id", out.ItemID).
		Msg("igloo event observed")

	if err := p.tracker.Apply(context.Background(), out, p.now()); err != nil {
		p.log.Warn().Err(err).Str("req_id", reqID).Msg("applying observed event failed")
	}
}
