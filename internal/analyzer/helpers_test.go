package analyzer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/analyzer"
)

// fakeWeb serves several hosts from one httptest server, keyed by the Host
// the resolver encodes in the path.
type fakeWeb struct {
	srv   *httptest.Server
	mu    sync.Mutex
	pages map[string]map[string]string // host -> path -> body
	hits  map[string]int
}

func newFakeWeb(t *testing.T) *fakeWeb {
	t.Helper()

	w := &fakeWeb{
		pages: make(map[string]map[string]string),
		hits:  make(map[string]int),
	}
	w.srv = httptest.NewServer(http.HandlerFunc(w.serve))
	t.Cleanup(w.srv.Close)
	return w
}

func (w *fakeWeb) serve(rw http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")
	path := r.URL.Path

	w.mu.Lock()
	w.hits[host+path]++
	body, ok := w.pages[host][path]
	w.mu.Unlock()

	if !ok {
		http.NotFound(rw, r)
		return
	}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = rw.Write([]byte(body))
}

func (w *fakeWeb) page(host, path, body string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pages[host] == nil {
		w.pages[host] = make(map[string]string)
	}
	w.pages[host][path] = body
}

func (w *fakeWeb) hitCount(host, path string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hits[host+path]
}

func (w *fakeWeb) fetcher() *analyzer.PageFetcher {
	return analyzer.NewPageFetcher(analyzer.FetcherConfig{MaxAttempts: 1},
		analyzer.WithHTTPClient(w.srv.Client()),
		analyzer.WithURLResolver(func(host, path string) string {
			return w.srv.URL + path + "?host=" + host
		}),
	)
}

func (w *fakeWeb) context(ctx context.Context, industry string, competitors ...string) *analyzer.AnalysisContext {
	return analyzer.NewAnalysisContext(ctx, w.fetcher(), industry, competitors)
}

const goodPage = `<!doctype html>
<html><head>
<title>Acme Analytics - Product analytics for growing SaaS teams</title>
<meta name="description" content="Acme shows which features drive retention so product teams can ship what matters.">
<meta name="viewport" content="width=device-width, initial-scale=1">
<link rel="canonical" href="https://acme.test/">
<script type="application/ld+json">{"@context":"https://schema.org","@graph":[{"@type":"Organization","name":"Acme"},{"@type":"FAQPage"}]}</script>
</head><body>
<h1>Product analytics that explain retention</h1>
<a href="/pricing">Pricing</a>
<a href="/signup" class="btn">Start free trial</a>
<p>Plans from $49/mo. Call us at +1 (555) 010-2030.</p>
<img src="a.png" alt="Dashboard">
<form action="/signup"><input type="email" name="email"><input type="text" name="name"><button type="submit">Sign up</button></form>
</body></html>`

const poorPage = `<html><head></head><body>
<div style="width: 1200px"><p style="font-size: 9px">Welcome</p></div>
<img src="a.png"><img src="b.png">
<form><input name="a"><input name="b"><input name="c"><input name="d"><input name="e"><input name="f"><input name="g"><input name="h"></form>
</body></html>`
