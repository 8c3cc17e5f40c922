package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
)

var (
	// stateCodeRe pulls the state code from links like "uf.php?lang=&coduf=12&search=acre".
	stateCodeRe = regexp.MustCompile(`coduf=(\d+)`)

	// cityCodeRe pulls the municipality code from links like "perfil.php?codmun=120001".
	cityCodeRe = regexp.MustCompile(`codmun=(\d+)`)
)

// ListItems returns the <li> children of the element whose id attribute is id.
func ListItems(html, id string) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", domain.ErrParse, err)
	}
	list := doc.Find(fmt.Sprintf("[id=%q]", id))
	if list.Length() == 0 {
		return nil, fmt.Errorf("%w: element #%s not found", domain.ErrParse, id)
	}
	return list.First().ChildrenFiltered("li"), nil
}

// StateItems extracts one record per state from the list identified by id.
// Records are keyed canonically plus "url", the state's page with
// relativePrefix replaced by baseURL.
func StateItems(html, id, baseURL, relativePrefix string) ([]domain.RawRecord, error) {
	items, err := ListItems(html, id)
	if err != nil {
		return nil, err
	}

	records := make([]domain.RawRecord, 0, items.Length())
	var itemErr error
	items.EachWithBreak(func(i int, li *goquery.Selection) bool {
		link := li.Find("a").First()
		href, ok := link.Attr("href")
		if !ok {
			itemErr = fmt.Errorf("%w: state item %d has no link", domain.ErrLookup, i)
			return false
		}
		code, err := matchCode(stateCodeRe, href)
		if err != nil {
			itemErr = fmt.Errorf("state item %d: %w", i, err)
			return false
		}
		title, ok := link.Attr("title")
		if !ok {
			itemErr = fmt.Errorf("%w: state item %d has no title", domain.ErrLookup, i)
			return false
		}

		records = append(records, domain.RawRecord{
			"code": code,
			"abbr": strings.TrimSpace(li.Text()),
			"name": strings.TrimSpace(title),
			"url":  resolveURL(href, baseURL, relativePrefix),
		})
		return true
	})
	if itemErr != nil {
		return nil, itemErr
	}
	return records, nil
}

// CityItems extracts one record per city from the list identified by id,
// attaching the owning state's abbreviation.
func CityItems(html, id, state string) ([]domain.RawRecord, error) {
	items, err := ListItems(html, id)
	if err != nil {
		return nil, err
	}

	records := make([]domain.RawRecord, 0, items.Length())
	var itemErr error
	items.EachWithBreak(func(i int, li *goquery.Selection) bool {
		href, ok := li.Find("a").First().Attr("href")
		if !ok {
			itemErr = fmt.Errorf("%w: city item %d of %s has no link", domain.ErrLookup, i, state)
			return false
		}
		code, err := matchCode(cityCodeRe, href)
		if err != nil {
			itemErr = fmt.Errorf("city item %d of %s: %w", i, state, err)
			return false
		}

		records = append(records, domain.RawRecord{
			"code":  code,
			"name":  strings.TrimSpace(li.Text()),
			"state": state,
		})
		return true
	})
	if itemErr != nil {
		return nil, itemErr
	}
	return records, nil
}

func matchCode(re *regexp.Regexp, href string) (string, error) {
	m := re.FindStringSubmatch(href)
	if m == nil {
		return "", fmt.Errorf("%w: pattern %s not found in %q", domain.ErrLookup, re, href)
	}
	return m[1], nil
}

func resolveURL(href, baseURL, relativePrefix string) string {
	if relativePrefix != "" && strings.HasPrefix(href, relativePrefix) {
		return baseURL + strings.TrimPrefix(href, relativePrefix)
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return baseURL + strings.TrimPrefix(href, "/")
}
