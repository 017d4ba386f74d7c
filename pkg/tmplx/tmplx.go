// Package tmplx wraps text/template with a small set of helpers for
// rendering prompts from user-supplied templates.
package tmplx

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
)

var (
	ErrRenderTemplate = errors.New("tmplx: render error")
	ErrParseTemplate  = errors.New("tmplx: parse error")
)

type Template struct {
	tmpl *template.Template
}

type Options struct {
	validate ValidateFunc
	testData any
	funcs    template.FuncMap
}

type Option func(*Options) error

// ValidateFunc inspects a render of the test data.
type ValidateFunc func(out string) error

func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"quote":     quoteFunc,
		"default":   defaultFunc,
		"json":      jsonFunc,
		"jsonGet":   jsonGet,
		"hasPrefix": hasPrefix,
		"hasSuffix": hasSuffix,
		"truncate":  truncate,
		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
		"trim":      strings.TrimSpace,
	}
}

func WithTemplateFunc(name string, fn any) Option {
	return func(o *Options) error {
		if fn == nil {
			return fmt.Errorf("template func %q is nil", name)
		}
		o.funcs[name] = fn
		return nil
	}
}

// WithValidate renders testData once at parse time and hands the output
// to validateFn. Templates that fail either step are rejected.
func WithValidate(testData any, validateFn ValidateFunc) Option {
	return func(o *Options) error {
		o.validate = validateFn
		o.testData = testData
		return nil
	}
}

func MustParse(name, text string, opts ...Option) *Template {
	t, err := Parse(name, text, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func Parse(name, text string, args ...Option) (*Template, error) {
	opts := &Options{funcs: defaultFuncs()}
	for _, arg := range args {
		if err := arg(opts); err != nil {
			return nil, err
		}
	}

	tmpl, err := template.New(name).
		Option("missingkey=zero").
		Funcs(opts.funcs).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseTemplate, err)
	}

	t := &Template{tmpl: tmpl}
	if opts.validate != nil {
		out, err := t.Render(opts.testData)
		if err != nil {
			return nil, err
		}
		if err := opts.validate(out); err != nil {
			return nil, fmt.Errorf("validate template: %w", err)
		}
	}
	return t, nil
}

func (t *Template) Render(data any) (string, error) {
	buf := new(bytes.Buffer)
	if err := t.tmpl.Execute(buf, data); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRenderTemplate, err)
	}
	return buf.String(), nil
}

func quoteFunc(s string) (string, error) {
	return jsonFunc(s)
}

func defaultFunc(def, value any) any {
	if value != nil && value != "" {
		return value
	}
	return def
}

func jsonFunc(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// jsonGet reads a gjson path out of a raw JSON string. Invalid JSON yields "".
func jsonGet(path, raw string) string {
	if !gjson.Valid(raw) {
		return ""
	}
	return gjson.Get(raw, path).String()
}

func hasPrefix(a, b any) bool {
	return strings.HasPrefix(cast.ToString(a), cast.ToString(b))
}

func hasSuffix(a, b any) bool {
	return strings.HasSuffix(cast.ToString(a), cast.ToString(b))
}

// truncate cuts v to at most n runes.
func truncate(n, v any) string {
	s := cast.ToString(v)
	limit := cast.ToInt(n)
	if limit < 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
