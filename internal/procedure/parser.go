package procedure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shaiso/ndo/internal/domain"
)

// Форматы файлов определений.
const (
	FormatJSON = "json"
	FormatHCL  = "hcl"
)

// FormatOf определяет формат по расширению файла.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Parse разбирает определения из data. filename используется в сообщениях об ошибках.
//
// JSON: объект процедуры или массив объектов.
// HCL: один или несколько блоков procedure "name" { ... }.
//
// Parse не валидирует определения — это делает Validate (или Compile).
func Parse(data []byte, format, filename string) ([]*domain.ProcedureDef, error) {
	switch format {
	case FormatJSON:
		return parseJSON(data, filename)
	case FormatHCL:
		return parseHCL(data, filename)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ParseFile читает и разбирает файл определения.
func ParseFile(path string) ([]*domain.ProcedureDef, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return Parse(data, format, path)
}

// ParseJSON разбирает одно JSON определение (тело PUT /procedures/{name}).
func ParseJSON(data []byte) (*domain.ProcedureDef, error) {
	var def domain.ProcedureDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &def, nil
}

func parseJSON(data []byte, filename string) ([]*domain.ProcedureDef, error) {
	trimmed := bytes.TrimSpace(data)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var defs []*domain.ProcedureDef
		if err := json.Unmarshal(trimmed, &defs); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrParse, filename, err)
		}
		return defs, nil
	}

	def, err := ParseJSON(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return []*domain.ProcedureDef{def}, nil
}
