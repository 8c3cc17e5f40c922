package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawRecord is a loosely-typed record as produced by an extractor.
type RawRecord map[string]any

// StateFields names the source keys holding each canonical State field.
// Dotted paths address nested objects.
type StateFields struct {
	Code string
	Abbr string
	Name string
}

// CityFields names the source keys holding each canonical City field.
type CityFields struct {
	Code  string
	Name  string
	State string
}

var (
	// BundleStateFields matches the exports.ufs literal of the JS bundle.
	BundleStateFields = StateFields{Code: "codigo", Abbr: "sigla", Name: "nome"}
	// APIStateFields matches the localidades/estados API.
	APIStateFields = StateFields{Code: "id", Abbr: "sigla", Name: "nome"}
	// AnniversaryCityFields matches the localidades/aniversarios API.
	AnniversaryCityFields = CityFields{Code: "codigo", Name: "nome", State: "uf"}
	// MunicipioCityFields matches the localidades/municipios API.
	MunicipioCityFields = CityFields{Code: "id", Name: "nome", State: "microrregiao.mesorregiao.UF.sigla"}
	// MunicipioStateFields extracts the owning state of a municipios record.
	MunicipioStateFields = StateFields{
		Code: "microrregiao.mesorregiao.UF.id",
		Abbr: "microrregiao.mesorregiao.UF.sigla",
		Name: "microrregiao.mesorregiao.UF.nome",
	}
	// CanonicalStateFields matches records already keyed canonically (HTML).
	CanonicalStateFields = StateFields{Code: "code", Abbr: "abbr", Name: "name"}
	// CanonicalCityFields matches records already keyed canonically (HTML).
	CanonicalCityFields = CityFields{Code: "code", Name: "name", State: "state"}
)

// NormalizeState maps raw onto the canonical State shape. Keys not named by
// fields are dropped.
func NormalizeState(raw RawRecord, fields StateFields) (State, error) {
	code, err := codeField(raw, fields.Code)
	if err != nil {
		return State{}, err
	}
	abbr, err := stringField(raw, fields.Abbr)
	if err != nil {
		return State{}, err
	}
	name, err := stringField(raw, fields.Name)
	if err != nil {
		return State{}, err
	}
	return State{Code: code, Abbr: abbr, Name: name}, nil
}

// NormalizeCity maps raw onto the canonical City shape.
func NormalizeCity(raw RawRecord, fields CityFields) (City, error) {
	code, err := codeField(raw, fields.Code)
	if err != nil {
		return City{}, err
	}
	name, err := stringField(raw, fields.Name)
	if err != nil {
		return City{}, err
	}
	state, err := stringField(raw, fields.State)
	if err != nil {
		return City{}, err
	}
	return City{Code: code, Name: name, State: state}, nil
}

// lookup resolves a dotted path through nested objects.
func lookup(raw RawRecord, path string) (any, error) {
	var cur any = map[string]any(raw)
	for _, key := range strings.Split(path, ".") {
		obj, ok := asObject(cur)
		if !ok {
			return nil, fmt.Errorf("%w: key %q: %q is not an object", ErrLookup, path, key)
		}
		v, ok := obj[key]
		if !ok {
			return nil, fmt.Errorf("%w: missing key %q", ErrLookup, path)
		}
		cur = v
	}
	return cur, nil
}

func asObject(v any) (map[string]any, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, true
	case RawRecord:
		return o, true
	default:
		return nil, false
	}
}

func stringField(raw RawRecord, path string) (string, error) {
	v, err := lookup(raw, path)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case nil:
		return "", fmt.Errorf("%w: key %q is null", ErrLookup, path)
	default:
		text, ok := numberString(v)
		if !ok {
			return "", fmt.Errorf("%w: key %q: unexpected %T value", ErrParse, path, s)
		}
		return text, nil
	}
}

// codeField passes the code through in the JSON form the source used.
func codeField(raw RawRecord, path string) (Code, error) {
	v, err := lookup(raw, path)
	if err != nil {
		return Code{}, err
	}
	switch c := v.(type) {
	case string:
		return StringCode(c), nil
	case nil:
		return Code{}, fmt.Errorf("%w: key %q is null", ErrLookup, path)
	default:
		text, ok := numberString(v)
		if !ok {
			return Code{}, fmt.Errorf("%w: key %q: unexpected code type %T", ErrParse, path, v)
		}
		return numberText(text), nil
	}
}

func numberString(v any) (string, bool) {
	switch n := v.(type) {
	case json.Number:
		return n.String(), true
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case int:
		return strconv.Itoa(n), true
	case int64:
		return strconv.FormatInt(n, 10), true
	default:
		return "", false
	}
}
