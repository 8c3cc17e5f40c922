package ibge

import (
	"context"
	"fmt"

	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
	"github.com/couchcryptid/ibge-localidades-etl/internal/extract"
)

// JSONSource extracts records from an endpoint returning a JSON array.
type JSONSource struct {
	client *Client
	url    string
}

// NewJSONSource creates an extractor for the estados, aniversarios and
// municipios APIs.
func NewJSONSource(client *Client, url string) *JSONSource {
	return &JSONSource{client: client, url: url}
}

func (s *JSONSource) Extract(ctx context.Context) ([]domain.RawRecord, error) {
	body, err := s.client.Fetch(ctx, s.url)
	if err != nil {
		return nil, err
	}
	records, err := extract.JSONArray([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.url, err)
	}
	return records, nil
}

// BundleSource extracts the states literal embedded in the cidades JS bundle.
type BundleSource struct {
	client *Client
	url    string
	marker string
}

// NewBundleSource creates an extractor for the array following marker.
func NewBundleSource(client *Client, url, marker string) *BundleSource {
	return &BundleSource{client: client, url: url, marker: marker}
}

func (s *BundleSource) Extract(ctx context.Context) ([]domain.RawRecord, error) {
	body, err := s.client.Fetch(ctx, s.url)
	if err != nil {
		return nil, err
	}
	records, err := extract.ExportedArray(body, s.marker)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.url, err)
	}
	return records, nil
}

// HTMLPages configures the scraped HTML variant.
type HTMLPages struct {
	IndexURL       string
	BaseURL        string
	RelativePrefix string
	StatesListID   string
	CitiesListID   string
}

// HTMLStatesSource extracts states from the index page list.
type HTMLStatesSource struct {
	client *Client
	pages  HTMLPages
}

// NewHTMLStatesSource creates an extractor for the states list.
func NewHTMLStatesSource(client *Client, pages HTMLPages) *HTMLStatesSource {
	return &HTMLStatesSource{client: client, pages: pages}
}

func (s *HTMLStatesSource) Extract(ctx context.Context) ([]domain.RawRecord, error) {
	body, err := s.client.Fetch(ctx, s.pages.IndexURL)
	if err != nil {
		return nil, err
	}
	records, err := extract.StateItems(body, s.pages.StatesListID, s.pages.BaseURL, s.pages.RelativePrefix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.pages.IndexURL, err)
	}
	return records, nil
}

// HTMLCitiesSource follows every state link of the index page and extracts
// that state's city list. Pages are fetched one at a time.
type HTMLCitiesSource struct {
	states *HTMLStatesSource
}

// NewHTMLCitiesSource creates an extractor for all city lists.
func NewHTMLCitiesSource(client *Client, pages HTMLPages) *HTMLCitiesSource {
	return &HTMLCitiesSource{states: NewHTMLStatesSource(client, pages)}
}

func (s *HTMLCitiesSource) Extract(ctx context.Context) ([]domain.RawRecord, error) {
	states, err := s.states.Extract(ctx)
	if err != nil {
		return nil, err
	}

	var records []domain.RawRecord
	for _, state := range states {
		abbr, _ := state["abbr"].(string)
		pageURL, _ := state["url"].(string)

		body, err := s.states.client.Fetch(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		cities, err := extract.CityItems(body, s.states.pages.CitiesListID, abbr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pageURL, err)
		}
		records = append(records, cities...)
	}
	return records, nil
}
