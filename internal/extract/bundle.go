package extract

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
)

// StatesMarker precedes the states array literal in the IBGE cidades bundle.
const StatesMarker = "exports.ufs ="

// bareKeys are the unquoted object keys the bundle is known to use. A key
// missing from this list makes the repaired fragment invalid JSON, which is
// reported as ErrParse.
var bareKeys = []string{"codigo", "nome", "slug", "sigla", "codigoCapital"}

// escapedNewlines are literal backslash sequences embedded in bundle strings.
var escapedNewlines = []string{`\r`, `\n`}

// ExportedArray slices the array literal following marker out of blob,
// repairs it into JSON and decodes it.
func ExportedArray(blob, marker string) ([]domain.RawRecord, error) {
	fragment, err := exportedFragment(blob, marker)
	if err != nil {
		return nil, err
	}
	return JSONArray([]byte(RepairLiteral(fragment)))
}

// exportedFragment returns the text from the end of marker through the first
// closing bracket after it.
func exportedFragment(blob, marker string) (string, error) {
	idx := strings.Index(blob, marker)
	if idx < 0 {
		return "", fmt.Errorf("%w: marker %q not found", domain.ErrParse, marker)
	}
	start := idx + len(marker)
	end := strings.Index(blob[start:], "]")
	if end < 0 {
		return "", fmt.Errorf("%w: no closing bracket after marker %q", domain.ErrParse, marker)
	}
	return blob[start : start+end+1], nil
}

// RepairLiteral quotes the known bare keys and deletes escaped CR/LF
// sequences.
func RepairLiteral(fragment string) string {
	for _, key := range bareKeys {
		fragment = strings.ReplaceAll(fragment, key+":", `"`+key+`":`)
	}
	for _, seq := range escapedNewlines {
		fragment = strings.ReplaceAll(fragment, seq, "")
	}
	return fragment
}
