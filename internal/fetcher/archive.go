package fetcher

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pbaille/fefe/internal/domain"
)

// markerPattern matches the leading permalink marker, e.g. "[\[l\]](?ts=abc) ".
// A plain-text marker comes out of the markdown renderer as "\[09:15) ".
var markerPattern = regexp.MustCompile(`\\?\[.+?\) `)

// ParseMonth extracts articles from an archive month page.
// Each body > h3 date header owns the body > ul list at the same index.
// Articles are returned in document order.
func ParseMonth(r io.Reader, pageURL string, renderer Renderer, loc *time.Location) ([]domain.Article, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, parseErrorf("invalid page URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, parseErrorf("parse html: %v", err)
	}

	headers := doc.Find("body > h3")
	lists := doc.Find("body > ul")
	if headers.Length() != lists.Length() {
		return nil, parseErrorf("%d date headers but %d lists", headers.Length(), lists.Length())
	}

	var articles []domain.Article
	var parseErr error

	headers.EachWithBreak(func(i int, h *goquery.Selection) bool {
		day, err := ParseHeaderDate(h.Text(), loc)
		if err != nil {
			parseErr = parseErrorf("header %d: %v", i, err)
			return false
		}

		lists.Eq(i).Children().Filter("li").EachWithBreak(func(j int, li *goquery.Selection) bool {
			a, err := parseItem(li, base, renderer)
			if err != nil {
				parseErr = parseErrorf("header %d item %d: %v", i, j, err)
				return false
			}
			a.PublishedAt = day.UnixMilli()
			articles = append(articles, a)
			return true
		})
		return parseErr == nil
	})

	if parseErr != nil {
		return nil, parseErr
	}
	return articles, nil
}

func parseItem(li *goquery.Selection, base *url.URL, renderer Renderer) (domain.Article, error) {
	href, ok := li.Find("a").First().Attr("href")
	if !ok {
		return domain.Article{}, fmt.Errorf("no permalink anchor")
	}
	link, err := base.Parse(href)
	if err != nil {
		return domain.Article{}, fmt.Errorf("invalid permalink %q: %w", href, err)
	}

	inner, err := li.Html()
	if err != nil {
		return domain.Article{}, fmt.Errorf("read item html: %w", err)
	}
	text, err := renderer.Render(inner)
	if err != nil {
		return domain.Article{}, fmt.Errorf("render item: %w", err)
	}

	return domain.Article{
		ID:   link.String(),
		Body: StripMarker(text),
	}, nil
}

// StripMarker removes the first "[...) " permalink marker and trims the result
func StripMarker(text string) string {
	if loc := markerPattern.FindStringIndex(text); loc != nil {
		text = text[:loc[0]] + text[loc[1]:]
	}
	return strings.TrimSpace(text)
}
