package tmplx

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("with template func", func(t *testing.T) {
		tmpl, err := Parse("test", `{{custom}}`,
			WithTemplateFunc("custom", func() string { return "custom" }))
		require.NoError(t, err)

		out, err := tmpl.Render(nil)
		require.NoError(t, err)
		assert.Equal(t, "custom", out)
	})

	t.Run("nil template func", func(t *testing.T) {
		_, err := Parse("test", `x`, WithTemplateFunc("custom", nil))
		assert.Error(t, err)
	})

	t.Run("with validation", func(t *testing.T) {
		testData := map[string]string{"name": "test"}
		tmpl, err := Parse("test", `{{.name}}`, WithValidate(testData, func(out string) error {
			if out != "test" {
				return errors.New("unexpected output " + out)
			}
			return nil
		}))
		require.NoError(t, err)

		out, err := tmpl.Render(testData)
		require.NoError(t, err)
		assert.Equal(t, "test", out)
	})

	t.Run("validation rejects", func(t *testing.T) {
		_, err := Parse("test", `{{.name}}`, WithValidate(nil, func(out string) error {
			if out == "" {
				return errors.New("empty")
			}
			return nil
		}))
		assert.ErrorContains(t, err, "validate template: empty")
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := Parse("test", `{{.name`)
		assert.ErrorIs(t, err, ErrParseTemplate)
	})

	t.Run("unknown func", func(t *testing.T) {
		_, err := Parse("test", `{{nope .name}}`)
		assert.ErrorIs(t, err, ErrParseTemplate)
	})

	t.Run("merge with default funcs", func(t *testing.T) {
		tmpl, err := Parse("test", `{{custom}} {{quote "test"}}`,
			WithTemplateFunc("custom", func() string { return "custom" }))
		require.NoError(t, err)

		out, err := tmpl.Render(nil)
		require.NoError(t, err)
		assert.Equal(t, `custom "test"`, out)
	})
}

func TestRenderError(t *testing.T) {
	tmpl := MustParse("", `{{index .list 5}}`)
	_, err := tmpl.Render(map[string]any{"list": []int{1}})
	assert.ErrorIs(t, err, ErrRenderTemplate)
}

func TestCustomFunctions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		data     map[string]any
		want     string
	}{
		{"hasSuffix", `{{if hasSuffix .text ".jpg"}}image{{else}}other{{end}}`, map[string]any{"text": "photo.jpg"}, "image"},
		{"hasPrefix", `{{if hasPrefix .text "https://"}}secure{{else}}plain{{end}}`, map[string]any{"text": "http://x"}, "plain"},
		{"default with empty value", `{{default "anonymous" .name}}`, map[string]any{"name": ""}, "anonymous"},
		{"default with value", `{{default "anonymous" .name}}`, map[string]any{"name": "john"}, "john"},
		{"default with missing key", `{{default "anonymous" .name}}`, map[string]any{}, "anonymous"},
		{"json", `{{json .cfg}}`, map[string]any{"cfg": map[string]any{"tone": "dry"}}, `{"tone":"dry"}`},
		{"jsonGet", `{{jsonGet "order.id" .input}}`, map[string]any{"input": `{"order":{"id":42}}`}, "42"},
		{"jsonGet on plain text", `{{jsonGet "order.id" .input}}`, map[string]any{"input": "where is my order"}, ""},
		{"truncate", `{{truncate 3 .text}}`, map[string]any{"text": "héllo"}, "hél"},
		{"truncate short", `{{truncate 10 .text}}`, map[string]any{"text": "hi"}, "hi"},
		{"upper and trim", `{{upper (trim .text)}}`, map[string]any{"text": "  bot "}, "BOT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MustParse("", tt.template).Render(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}
}
