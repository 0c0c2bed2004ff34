package procedure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"regexp"
	"strings"
	"sync"
	"text/template"
)

// Data — данные, доступные в шаблонах:
//   - {{ .Args.param }}         — именованные аргументы run
//   - {{ index .Argv 0 }}       — позиционные аргументы
//   - {{ .Vars.key }}           — переменные (outputs transform шагов)
//   - {{ .Steps.step_id.field }} — outputs выполненных шагов
//   - {{ .Env.VAR_NAME }}       — переменные окружения
type Data struct {
	Args  map[string]any            `json:"args"`
	Argv  []any                     `json:"argv"`
	Vars  map[string]any            `json:"vars"`
	Steps map[string]map[string]any `json:"steps"`
	Env   map[string]string         `json:"env"`
}

// Context — изменяемое состояние одного run процедуры.
//
// Ветки parallel шага пишут в общий Context конкурентно, поэтому
// шаблоны рендерятся по снимку (Snapshot), а не по самому Context.
type Context struct {
	mu    sync.RWMutex
	args  map[string]any
	argv  []any
	vars  map[string]any
	steps map[string]map[string]any
	env   map[string]string
}

// NewContext создаёт контекст run: аргумент i связывается с params[i].
// Лишние аргументы доступны только через Argv, недостающие — nil.
func NewContext(params []string, args []any, env map[string]string) *Context {
	named := make(map[string]any, len(params))
	for i, name := range params {
		if i < len(args) {
			named[name] = args[i]
		} else {
			named[name] = nil
		}
	}
	if env == nil {
		env = make(map[string]string)
	}
	return &Context{
		args:  named,
		argv:  args,
		vars:  make(map[string]any),
		steps: make(map[string]map[string]any),
		env:   env,
	}
}

// SetStep сохраняет outputs шага.
func (c *Context) SetStep(stepID string, outputs map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps[stepID] = outputs
}

// MergeVars добавляет значения в переменные run.
func (c *Context) MergeVars(values map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	maps.Copy(c.vars, values)
}

// Var возвращает переменную run.
func (c *Context) Var(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vars[key]
	return v, ok
}

// Snapshot возвращает копию данных для рендеринга.
func (c *Context) Snapshot() *Data {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Data{
		Args:  maps.Clone(c.args),
		Argv:  c.argv,
		Vars:  maps.Clone(c.vars),
		Steps: maps.Clone(c.steps),
		Env:   c.env,
	}
}

// Environ возвращает переменные окружения процесса в виде map.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = value
		}
	}
	return env
}

// templateFuncs — дополнительные функции для шаблонов.
var templateFuncs = template.FuncMap{
	// json — сериализует значение в JSON строку
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return string(b)
	},

	// default — возвращает значение по умолчанию, если первый аргумент пустой
	"default": func(def, val any) any {
		if val == nil {
			return def
		}
		if s, ok := val.(string); ok && s == "" {
			return def
		}
		return val
	},

	// coalesce — возвращает первое непустое значение
	"coalesce": func(values ...any) any {
		for _, v := range values {
			if v != nil {
				if s, ok := v.(string); ok && s == "" {
					continue
				}
				return v
			}
		}
		return nil
	},

	// toJSON — алиас для json
	"toJSON": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	},

	// fromJSON — парсит JSON строку
	"fromJSON": func(s string) any {
		var result any
		if err := json.Unmarshal([]byte(s), &result); err != nil {
			return nil
		}
		return result
	},

	// join — объединяет слайс строк
	"join": func(sep string, items []string) string {
		return strings.Join(items, sep)
	},

	// split — разбивает строку на слайс
	"split": func(sep, s string) []string {
		return strings.Split(s, sep)
	},

	// contains — проверяет, содержит ли строка подстроку
	"contains": strings.Contains,

	// hasPrefix — проверяет префикс строки
	"hasPrefix": strings.HasPrefix,

	// hasSuffix — проверяет суффикс строки
	"hasSuffix": strings.HasSuffix,

	// lower — приводит к нижнему регистру
	"lower": strings.ToLower,

	// upper — приводит к верхнему регистру
	"upper": strings.ToUpper,

	// trim — удаляет пробелы по краям
	"trim": strings.TrimSpace,

	// replace — заменяет подстроку
	"replace": strings.ReplaceAll,
}

// Render рендерит строковый шаблон с контекстом.
//
// Шаблон может содержать Go template выражения:
//
//	{{ .Args.box }}
//	{{ .Steps.fetch.body }}
//	{{ if .Vars.ready }}...{{ end }}
func Render(tmpl string, data *Data) (string, error) {
	// Проверяем, содержит ли строка шаблонные выражения
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	if data == nil {
		data = &Data{}
	}

	t, err := template.New("").Funcs(templateFuncs).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	return buf.String(), nil
}

// RenderValue рендерит произвольное значение.
// Рекурсивно обрабатывает map и slice.
func RenderValue(value any, data *Data) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch v := value.(type) {
	case string:
		return Render(v, data)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			rendered, err := RenderValue(val, data)
			if err != nil {
				return nil, err
			}
			result[key] = rendered
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			rendered, err := RenderValue(val, data)
			if err != nil {
				return nil, err
			}
			result[i] = rendered
		}
		return result, nil

	case map[string]string:
		result := make(map[string]string, len(v))
		for key, val := range v {
			rendered, err := Render(val, data)
			if err != nil {
				return nil, err
			}
			result[key] = rendered
		}
		return result, nil

	case []string:
		result := make([]string, len(v))
		for i, val := range v {
			rendered, err := Render(val, data)
			if err != nil {
				return nil, err
			}
			result[i] = rendered
		}
		return result, nil

	default:
		// Для остальных типов (int, float, bool) возвращаем как есть
		return value, nil
	}
}

// RenderConfig рендерит конфигурацию шага.
// Это обёртка над RenderValue для map[string]any.
func RenderConfig(config map[string]any, data *Data) (map[string]any, error) {
	if config == nil {
		return make(map[string]any), nil
	}

	rendered, err := RenderValue(config, data)
	if err != nil {
		return nil, err
	}

	result, ok := rendered.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected map, got %T", ErrTemplateRender, rendered)
	}

	return result, nil
}

// RenderCondition рендерит и вычисляет условие.
// Возвращает true, если условие выполняется.
func RenderCondition(condition string, data *Data) (bool, error) {
	if condition == "" {
		return true, nil
	}

	// Оборачиваем условие в if, чтобы получить bool
	tmpl := fmt.Sprintf(`{{if %s}}true{{else}}false{{end}}`, condition)

	result, err := Render(tmpl, data)
	if err != nil {
		return false, err
	}

	return result == "true", nil
}

// MustRender рендерит шаблон и паникует при ошибке.
// Используется только для тестов.
func MustRender(tmpl string, data *Data) string {
	result, err := Render(tmpl, data)
	if err != nil {
		panic(err)
	}
	return result
}

// simpleRef — шаблон из одной ссылки на поле: "{{ .Args.box }}".
var simpleRef = regexp.MustCompile(`^\{\{\s*\.([A-Za-z_][\w.]*)\s*\}\}$`)

// RenderArg рендерит аргумент вложенного run.
//
// Шаблон из одной ссылки на поле возвращает значение с исходным типом
// (число остаётся числом, объект — объектом). Остальные значения
// рендерятся как в RenderValue.
func RenderArg(value any, data *Data) (any, error) {
	if s, ok := value.(string); ok && data != nil {
		if m := simpleRef.FindStringSubmatch(s); m != nil {
			if v, found := resolve(data, strings.Split(m[1], ".")); found {
				return v, nil
			}
		}
	}
	return RenderValue(value, data)
}

// resolve проходит по пути полей Data.
func resolve(data *Data, path []string) (any, bool) {
	var cur any
	switch path[0] {
	case "Args":
		cur = data.Args
	case "Argv":
		cur = data.Argv
	case "Vars":
		cur = data.Vars
	case "Steps":
		cur = data.Steps
	case "Env":
		cur = data.Env
	default:
		return nil, false
	}

	for _, key := range path[1:] {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[key]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]map[string]any:
			v, ok := m[key]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]string:
			v, ok := m[key]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}
