package app

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
)

// ErrValidation is returned by Validate when any phase fails.
var ErrValidation = errors.New("validation failed")

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// outputs holds whatever output files were found in a directory. A nil
// slice means the file was absent.
type outputs struct {
	statesCSV  [][]string
	citiesCSV  [][]string
	statesJSON []domain.State
	citiesJSON []domain.City
	unified    []domain.StateWithCities
}

func (o *outputs) empty() bool {
	return o.statesCSV == nil && o.citiesCSV == nil && o.statesJSON == nil && o.citiesJSON == nil && o.unified == nil
}

// Validate re-reads the files written to dir and checks their integrity:
// header rows, ordering, identifier uniqueness, city to state references
// and agreement between the CSV and JSON renditions. A report is written
// to out.
func Validate(dir string, out io.Writer) error {
	fmt.Fprintln(out, "=== IBGE Localities Output Validation ===")
	fmt.Fprintln(out)

	o, err := loadOutputs(dir)
	if err != nil {
		return err
	}
	if o.empty() {
		return fmt.Errorf("no output files found in %s", dir)
	}

	phases := []*phase{
		validateHeaders(o),
		validateOrdering(o),
		validateUniqueness(o),
		validateReferences(o),
		validateParity(o),
	}
	if o.unified != nil {
		phases = append(phases, validateUnified(o.unified))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d states, %d cities, %d unified states\n",
		max(len(o.statesJSON), dataRows(o.statesCSV)), max(len(o.citiesJSON), dataRows(o.citiesCSV)), len(o.unified))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return nil
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return ErrValidation
}

// ── Data loading ──

func loadOutputs(dir string) (*outputs, error) {
	o := &outputs{}
	var err error
	if o.statesCSV, err = loadCSV(filepath.Join(dir, "states.csv")); err != nil {
		return nil, err
	}
	if o.citiesCSV, err = loadCSV(filepath.Join(dir, "cities.csv")); err != nil {
		return nil, err
	}
	if o.statesJSON, err = loadJSON[domain.State](filepath.Join(dir, "states.json")); err != nil {
		return nil, err
	}
	if o.citiesJSON, err = loadJSON[domain.City](filepath.Join(dir, "cities.json")); err != nil {
		return nil, err
	}
	if o.unified, err = loadUnified(filepath.Join(dir, "states_and_cities.json")); err != nil {
		return nil, err
	}
	return o, nil
}

func loadCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if rows == nil {
		rows = [][]string{}
	}
	return rows, nil
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	items := []T{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return items, nil
}

// loadUnified decodes the abbr-keyed object, keeping key order.
func loadUnified(path string) ([]domain.StateWithCities, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, fmt.Errorf("read %s: expected a JSON object", path)
	}
	states := []domain.StateWithCities{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		key, _ := tok.(string)
		var s domain.StateWithCities
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("read %s: key %q: %w", path, key, err)
		}
		if key != s.Abbr {
			return nil, fmt.Errorf("read %s: key %q holds state %q", path, key, s.Abbr)
		}
		states = append(states, s)
	}
	return states, nil
}

func dataRows(rows [][]string) int {
	if len(rows) == 0 {
		return 0
	}
	return len(rows) - 1
}

// ── Phase 1: Headers ──

func validateHeaders(o *outputs) *phase {
	p := &phase{name: "Phase 1: CSV Headers"}
	check := func(name string, rows [][]string, want []string) {
		if rows == nil {
			return
		}
		if len(rows) == 0 {
			p.errorf("%s: file is empty, expected header %v", name, want)
			return
		}
		if !slices.Equal(rows[0], want) {
			p.errorf("%s: header %v, expected %v", name, rows[0], want)
		}
		for i, row := range rows[1:] {
			if len(row) != len(want) {
				p.errorf("%s line %d: %d fields, expected %d", name, i+2, len(row), len(want))
			}
		}
	}
	check("states.csv", o.statesCSV, domain.Headers[domain.KindStates])
	check("cities.csv", o.citiesCSV, domain.Headers[domain.KindCities])
	return p
}

// ── Phase 2: Ordering ──

func validateOrdering(o *outputs) *phase {
	p := &phase{name: "Phase 2: Name Ordering"}
	checkSorted(p, "states.json", o.statesJSON)
	checkSorted(p, "cities.json", o.citiesJSON)
	if o.unified != nil {
		states := make([]domain.State, len(o.unified))
		for i, s := range o.unified {
			states[i] = s.State
		}
		checkSorted(p, "states_and_cities.json", states)
	}
	return p
}

func checkSorted[T domain.Record](p *phase, name string, records []T) {
	for i := 1; i < len(records); i++ {
		if records[i-1].SortName() > records[i].SortName() {
			p.errorf("%s: %q at index %d sorts after %q", name, records[i-1].SortName(), i-1, records[i].SortName())
		}
	}
}

// ── Phase 3: Uniqueness ──

func validateUniqueness(o *outputs) *phase {
	p := &phase{name: "Phase 3: Identifier Uniqueness"}
	codes := map[string]bool{}
	abbrs := map[string]bool{}
	for _, s := range o.statesJSON {
		if codes[s.Key()] {
			p.errorf("states.json: duplicate code %s", s.Code)
		}
		if abbrs[s.Abbr] {
			p.errorf("states.json: duplicate abbr %q", s.Abbr)
		}
		codes[s.Key()], abbrs[s.Abbr] = true, true
	}

	cityCodes := map[string]bool{}
	for _, c := range o.citiesJSON {
		if cityCodes[c.Key()] {
			p.errorf("cities.json: duplicate code %s", c.Code)
		}
		cityCodes[c.Key()] = true
	}
	return p
}

// ── Phase 4: References ──

func validateReferences(o *outputs) *phase {
	p := &phase{name: "Phase 4: City State References"}
	if o.statesJSON == nil || o.citiesJSON == nil {
		return p
	}
	abbrs := make(map[string]bool, len(o.statesJSON))
	for _, s := range o.statesJSON {
		abbrs[s.Abbr] = true
	}
	for _, c := range o.citiesJSON {
		if !abbrs[c.State] {
			p.errorf("cities.json: city %s (%s) references unknown state %q", c.Code, c.Name, c.State)
		}
	}
	return p
}

// ── Phase 5: CSV/JSON parity ──

func validateParity(o *outputs) *phase {
	p := &phase{name: "Phase 5: CSV/JSON Parity"}
	checkParity(p, "states", o.statesCSV, o.statesJSON)
	checkParity(p, "cities", o.citiesCSV, o.citiesJSON)
	return p
}

func checkParity[T domain.Record](p *phase, kind string, rows [][]string, records []T) {
	if rows == nil || records == nil {
		if (rows == nil) != (records == nil) {
			p.errorf("%s: only one of %s.csv and %s.json exists", kind, kind, kind)
		}
		return
	}
	if dataRows(rows) != len(records) {
		p.errorf("%s: %d CSV rows, %d JSON records", kind, dataRows(rows), len(records))
		return
	}
	for i, r := range records {
		if !slices.Equal(rows[i+1], r.Row()) {
			p.errorf("%s line %d: CSV %v, JSON %v", kind, i+2, rows[i+1], r.Row())
		}
	}
}

// ── Phase 6: Unified document ──

func validateUnified(states []domain.StateWithCities) *phase {
	p := &phase{name: "Phase 6: Unified Document"}
	seen := map[string]bool{}
	cityCodes := map[string]bool{}
	for _, s := range states {
		if seen[s.Abbr] {
			p.errorf("state %q appears more than once", s.Abbr)
		}
		seen[s.Abbr] = true
		if s.Cities == nil {
			p.errorf("state %q has no cities array", s.Abbr)
		}
		for _, c := range s.Cities {
			if c.State != s.Abbr {
				p.errorf("city %s (%s) nested under %q but belongs to %q", c.Code, c.Name, s.Abbr, c.State)
			}
			if cityCodes[c.Key()] {
				p.errorf("city code %s appears more than once", c.Code)
			}
			cityCodes[c.Key()] = true
		}
	}
	return p
}
