package source

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"duyurubot/internal/announce"
	"duyurubot/pkg/logx"
)

// Endpoints holds the page URL per category. Overridable in tests.
type Endpoints struct {
	Main   string
	Yadyok string
	MIS    string
}

// DefaultEndpoints are the three Boğaziçi announcement pages.
var DefaultEndpoints = Endpoints{
	Main:   "https://bogazici.edu.tr/tr-TR/Content/Duyurular/Duyurular",
	Yadyok: "https://yadyok.bogazici.edu.tr/tr/duyurular",
	MIS:    "https://mis.bogazici.edu.tr/tr/latest-news",
}

func (e Endpoints) url(cat announce.Category) string {
	switch cat {
	case announce.Main:
		return e.Main
	case announce.Yadyok:
		return e.Yadyok
	case announce.MIS:
		return e.MIS
	}
	return ""
}

type Config struct {
	Endpoints Endpoints
	Timeout   time.Duration // per-fetch; 0 means 20s
}

// Scraper is the HTTP Source implementation.
type Scraper struct {
	cfg    Config
	client *http.Client
	log    logx.Logger
}

func NewScraper(cfg Config, log logx.Logger) *Scraper {
	if cfg.Endpoints == (Endpoints{}) {
		cfg.Endpoints = DefaultEndpoints
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scraper{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			// The university endpoints serve incomplete certificate
			// chains; without this the fetch fails outright.
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		log: log,
	}
}

// Fetch implements Source. Never returns an error; failures log at WARN
// and come back as nil.
func (s *Scraper) Fetch(ctx context.Context, cat announce.Category) []string {
	url := s.cfg.Endpoints.url(cat)
	log := s.log.With(logx.String("category", cat.String()))
	if url == "" {
		log.Warn("no endpoint configured")
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, url, nil)
	if err != nil {
		log.Warn("building fetch request failed", logx.Err(err))
		return nil
	}
	setBrowserHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Warn("fetch failed", logx.Err(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		log.Warn("fetch returned non-2xx", logx.Int("status", resp.StatusCode))
		return nil
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		log.Warn("parsing page failed", logx.Err(err))
		return nil
	}

	items := extract(cat, doc)
	log.Debug("fetched announcements", logx.Int("count", len(items)))
	return items
}

// The pages occasionally serve different markup to non-browser clients.
func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")
}

// extract pulls announcement titles out of the parsed page, in document
// order (the pages list newest first).
func extract(cat announce.Category, doc *html.Node) []string {
	var out []string
	add := func(text string) {
		if t := strings.TrimSpace(text); t != "" {
			out = append(out, t)
		}
	}

	switch cat {
	case announce.Main:
		// <a class="urltoGO">title</a>
		walk(doc, func(n *html.Node) {
			if isElem(n, "a") && hasClass(n, "urltoGO") {
				add(nodeText(n))
			}
		})
	case announce.Yadyok:
		// <span class="field-content">title</span>
		walk(doc, func(n *html.Node) {
			if isElem(n, "span") && hasClass(n, "field-content") {
				add(nodeText(n))
			}
		})
	case announce.MIS:
		// <td class="views-field views-field-title"><a>title</a></td>
		walk(doc, func(n *html.Node) {
			if isElem(n, "td") && hasClass(n, "views-field") && hasClass(n, "views-field-title") {
				if a := firstElem(n, "a"); a != nil {
					add(nodeText(a))
				}
			}
		})
	}
	return out
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func isElem(n *html.Node, name string) bool {
	return n.Type == html.ElementNode && n.Data == name
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, f := range strings.Fields(a.Val) {
			if f == class {
				return true
			}
		}
	}
	return false
}

func firstElem(n *html.Node, name string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isElem(c, name) {
			return c
		}
		if found := firstElem(c, name); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	// Collapse internal runs of whitespace the way browsers render them.
	return strings.Join(strings.Fields(b.String()), " ")
}

var _ Source = (*Scraper)(nil)
