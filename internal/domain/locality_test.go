package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRows(t *testing.T) {
	assert.Equal(t, []string{"12", "AC", "Acre"}, State{Code: NumberCode(12), Abbr: "AC", Name: "Acre"}.Row())
	assert.Equal(t, []string{"1200013", "Acrelândia", "AC"}, City{Code: NumberCode(1200013), Name: "Acrelândia", State: "AC"}.Row())
	assert.Len(t, Headers[KindStates], len(State{}.Row()))
	assert.Len(t, Headers[KindCities], len(City{}.Row()))
}

func TestStatesWithCities_MarshalJSON_KeepsOrder(t *testing.T) {
	doc := StatesWithCities{
		{State: State{Code: NumberCode(35), Abbr: "SP", Name: "São Paulo"}, Cities: []City{{Code: NumberCode(3550308), Name: "São Paulo", State: "SP"}}},
		{State: State{Code: NumberCode(12), Abbr: "AC", Name: "Acre"}, Cities: []City{}},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	out := string(data)
	assert.Less(t, strings.Index(out, `"SP"`), strings.Index(out, `"AC"`))
	assert.Contains(t, out, `"name":"São Paulo"`)
	assert.JSONEq(t, `{
		"SP": {"code":35,"abbr":"SP","name":"São Paulo","cities":[{"code":3550308,"name":"São Paulo","state":"SP"}]},
		"AC": {"code":12,"abbr":"AC","name":"Acre","cities":[]}
	}`, out)
}

func TestNewDataset(t *testing.T) {
	states := NewDataset([]State{{Code: NumberCode(12), Abbr: "AC", Name: "Acre"}})
	assert.Equal(t, KindStates, states.Kind)
	assert.Equal(t, []string{"code", "abbr", "name"}, states.Header)
	assert.Len(t, states.Records, 1)

	cities := NewDataset([]City{{Code: NumberCode(1), Name: "X", State: "AC"}})
	assert.Equal(t, KindCities, cities.Kind)
	assert.Equal(t, []string{"code", "name", "state"}, cities.Header)

	unified := NewDataset([]StateWithCities{{State: State{Abbr: "AC"}}})
	assert.Equal(t, KindStatesAndCities, unified.Kind)
	assert.Empty(t, unified.Header)
	assert.IsType(t, StatesWithCities{}, unified.JSONPayload())
}
