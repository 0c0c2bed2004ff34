package procedure

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/shaiso/ndo/internal/domain"
	"github.com/shaiso/ndo/internal/engine"
)

// LoadFiles разбирает и валидирует определения из файлов.
// Имя процедуры должно быть уникальным в пределах всех файлов.
func LoadFiles(paths ...string) ([]*domain.ProcedureDef, error) {
	var defs []*domain.ProcedureDef
	seen := make(map[string]string)

	for _, path := range paths {
		parsed, err := ParseFile(path)
		if err != nil {
			return nil, err
		}

		for _, def := range parsed {
			if err := Validate(def); err != nil {
				return nil, fmt.Errorf("%s: procedure %q: %w", path, def.Name, err)
			}
			if prev, dup := seen[def.Name]; dup {
				return nil, fmt.Errorf("%w: %s defined in %s and %s",
					ErrDuplicateProcedure, def.Name, prev, path)
			}
			seen[def.Name] = path
			defs = append(defs, def)
		}
	}

	return defs, nil
}

// LoadDir загружает все .json и .hcl определения из каталога (рекурсивно).
// Файлы обрабатываются в лексикографическом порядке.
func LoadDir(dir string) ([]*domain.ProcedureDef, error) {
	var paths []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, err := FormatOf(path); err == nil {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", dir, err)
	}

	sort.Strings(paths)
	return LoadFiles(paths...)
}

// Install компилирует определения и регистрирует их в реестре.
//
// Если хотя бы одно определение не компилируется, реестр не меняется.
func Install(reg *engine.Registry, c *Compiler, defs ...*domain.ProcedureDef) error {
	compiled := make([]engine.Procedure, len(defs))
	for i, def := range defs {
		proc, err := c.Compile(def)
		if err != nil {
			name := ""
			if def != nil {
				name = def.Name
			}
			return fmt.Errorf("procedure %q: %w", name, err)
		}
		compiled[i] = proc
	}

	for i, def := range defs {
		reg.Register(def.Name, compiled[i])
	}
	return nil
}
