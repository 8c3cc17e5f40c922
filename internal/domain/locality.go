package domain

import (
	"bytes"
	"encoding/json"
)

// Kind identifies an entity pipeline. It doubles as the output file stem.
type Kind string

const (
	KindStates          Kind = "states"
	KindCities          Kind = "cities"
	KindStatesAndCities Kind = "states_and_cities"
)

// Headers lists the canonical CSV columns per kind, in output order.
var Headers = map[Kind][]string{
	KindStates: {"code", "abbr", "name"},
	KindCities: {"code", "name", "state"},
}

// State is a Brazilian federative unit.
type State struct {
	Code Code   `json:"code"`
	Abbr string `json:"abbr"`
	Name string `json:"name"`
}

// City is a municipality owned by exactly one State, referenced by Abbr.
type City struct {
	Code  Code   `json:"code"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// StateWithCities is a State with its cities attached in arrival order.
type StateWithCities struct {
	State
	Cities []City `json:"cities"`
}

// Record is a canonical entity ready to be written by a loader.
type Record interface {
	// Key is the record's stable identity.
	Key() string
	// SortName is the value sequences are ordered by.
	SortName() string
	// Row returns the CSV fields in Headers order.
	Row() []string
}

func (s State) Key() string      { return s.Code.String() }
func (s State) SortName() string { return s.Name }
func (s State) Row() []string {
	return []string{s.Code.String(), s.Abbr, s.Name}
}

func (c City) Key() string      { return c.Code.String() }
func (c City) SortName() string { return c.Name }
func (c City) Row() []string {
	return []string{c.Code.String(), c.Name, c.State}
}

func (s StateWithCities) Key() string { return s.Abbr }

// StatesWithCities marshals to a JSON object keyed by state abbreviation,
// keeping the slice order instead of sorting the keys.
type StatesWithCities []StateWithCities

func (s StatesWithCities) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, state := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeTo(&buf, state.Abbr); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeTo(&buf, state); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeTo appends v without HTML escaping or the encoder's trailing newline.
func encodeTo(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

// Dataset is one aggregated, ordered output unit handed to loaders.
type Dataset struct {
	Kind Kind
	// Header is empty for kinds that have no CSV representation.
	Header  []string
	Records []Record
	// Document replaces Records as the JSON payload when set.
	Document any
}

// JSONPayload returns the value to serialize as the dataset's JSON file.
func (d Dataset) JSONPayload() any {
	if d.Document != nil {
		return d.Document
	}
	return d.Records
}

// StatesDataset builds the dataset for an aggregated state sequence.
func StatesDataset(states []State) Dataset {
	return Dataset{Kind: KindStates, Header: Headers[KindStates], Records: toRecords(states)}
}

// CitiesDataset builds the dataset for an aggregated city sequence.
func CitiesDataset(cities []City) Dataset {
	return Dataset{Kind: KindCities, Header: Headers[KindCities], Records: toRecords(cities)}
}

// StatesAndCitiesDataset builds the unified nested dataset (JSON only).
func StatesAndCitiesDataset(joined []StateWithCities) Dataset {
	records := make([]Record, len(joined))
	for i, s := range joined {
		records[i] = s
	}
	return Dataset{
		Kind:     KindStatesAndCities,
		Records:  records,
		Document: StatesWithCities(joined),
	}
}

// NewDataset dispatches to the builder for the record type.
func NewDataset[T Record](records []T) Dataset {
	switch rs := any(records).(type) {
	case []State:
		return StatesDataset(rs)
	case []City:
		return CitiesDataset(rs)
	case []StateWithCities:
		return StatesAndCitiesDataset(rs)
	default:
		return Dataset{Records: toRecords(records)}
	}
}

func toRecords[T Record](records []T) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}
