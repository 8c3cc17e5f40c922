// Package domain models IBGE administrative-division reference data.
//
// # Data Sources
//
// Records originate from public IBGE (Instituto Brasileiro de Geografia e
// Estatística) endpoints. None of them require authentication:
//
//	JS bundle:  https://cidades.ibge.gov.br/dist/main-client.js
//	            contains `exports.ufs =[{codigo:12,sigla:"AC",nome:"Acre",...}]`
//	            with unquoted keys; see the extract package for the repair.
//	Estados:    https://servicodados.ibge.gov.br/api/v1/localidades/estados
//	            [{"id":12,"sigla":"AC","nome":"Acre","regiao":{...}}]
//	Aniversários: .../api/v1/localidades/aniversarios
//	            [{"codigo":"1200013","nome":"Acrelândia","uf":"AC",...}]
//	Municípios: .../api/v1/localidades/municipios
//	            [{"id":1200013,"nome":"Acrelândia","microrregiao":{"mesorregiao":{"UF":{...}}}}]
//	HTML pages: one list of states, one list of cities per state, with numeric
//	            codes carried in `coduf=` and `codmun=` query parameters.
//
// # Canonical Fields
//
// Every source is normalized to the same shape before sorting and writing:
//
//	State: code, abbr, name      (CSV header "code,abbr,name")
//	City:  code, name, state     (CSV header "code,name,state")
//
// Codes are IBGE identifiers: two digits for states, seven digits for
// municipalities. Some endpoints quote them as strings, so the normalizer
// accepts both forms and always emits integers.
//
// # Ordering
//
// Sequences are sorted by Name with ordinal byte comparison (no locale
// collation), so "Águas Lindas" sorts after every ASCII name. Sorting is
// stable, which keeps reruns against unchanged upstream data byte-identical.
//
// # Errors
//
// Failures are classified by three sentinels: [ErrFetch] (network or HTTP
// status), [ErrParse] (body not in the expected shape) and [ErrLookup]
// (missing key, missing HTML attribute, or a city whose state is unknown).
package domain
