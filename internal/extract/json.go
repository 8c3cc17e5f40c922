// Package extract turns raw upstream text into loosely-typed records.
//
// Three strategies exist: a plain JSON array (JSONArray), a JavaScript array
// literal embedded in a bundle (ExportedArray) and HTML lists (ListItems,
// StateItems, CityItems).
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
)

// JSONArray decodes body as a JSON array of objects. Numbers are kept as
// json.Number so codes survive without float rounding.
func JSONArray(body []byte) ([]domain.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var records []domain.RawRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: decode json array: %v", domain.ErrParse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: decode json array: trailing data after array", domain.ErrParse)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: decode json array: body is null", domain.ErrParse)
	}
	return records, nil
}
