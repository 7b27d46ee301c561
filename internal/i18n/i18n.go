// Package i18n holds the label catalog for the dashboard. The catalog is
// parsed once from an embedded YAML file and never mutated afterwards.
package i18n

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales.yaml
var embedded []byte

// RequiredLabels must be present in every language.
var RequiredLabels = []string{
	"language", "app_title", "analysis_tab", "upload_dataset", "no_file",
	"need_numeric", "constant_column", "select_columns", "select_method",
	"pearson", "spearman", "calculate", "result_title", "coef", "p_value",
	"weak", "moderate", "strong", "positive", "negative", "interpretation",
	"scatter_title", "photo_section", "upload_photo", "rotation",
	"brightness", "contrast", "original", "processed",
}

// ErrUnsupportedLanguage is returned for a code not present in the catalog.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// MissingLabelError lists label ids a language does not define.
type MissingLabelError struct {
	Lang    string
	Missing []string
}

func (e *MissingLabelError) Error() string {
	return fmt.Sprintf("locale %q is missing labels: %s", e.Lang, strings.Join(e.Missing, ", "))
}

// Labels is the label set of one language.
type Labels struct {
	lang   string
	labels map[string]string
}

// Lang returns the language code.
func (l Labels) Lang() string { return l.lang }

// T formats the label id with args. Unknown ids render as the id itself.
func (l Labels) T(id string, args ...any) string {
	tmpl, ok := l.labels[id]
	if !ok {
		return id
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// Map returns a copy of the raw templates, for templates rendered client side.
func (l Labels) Map() map[string]string {
	out := make(map[string]string, len(l.labels))
	for k, v := range l.labels {
		out[k] = v
	}
	return out
}

// Catalog maps language codes to label sets.
type Catalog struct {
	order []string
	langs map[string]Labels
}

// Load parses and validates the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(embedded)
}

// Parse builds a catalog from YAML of the form {lang: {id: template}}.
// Language order follows the document.
func Parse(data []byte) (*Catalog, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse locales: %w", err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("parse locales: expected a mapping of languages")
	}
	doc := root.Content[0]
	c := &Catalog{langs: map[string]Labels{}}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		code := doc.Content[i].Value
		var labels map[string]string
		if err := doc.Content[i+1].Decode(&labels); err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", code, err)
		}
		if _, dup := c.langs[code]; dup {
			return nil, fmt.Errorf("parse locales: duplicate language %q", code)
		}
		c.order = append(c.order, code)
		c.langs[code] = Labels{lang: code, labels: labels}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	if len(c.order) == 0 {
		return errors.New("locales: no languages defined")
	}
	for _, code := range c.order {
		var missing []string
		for _, id := range RequiredLabels {
			if strings.TrimSpace(c.langs[code].labels[id]) == "" {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return &MissingLabelError{Lang: code, Missing: missing}
		}
	}
	return nil
}

// Languages returns the supported codes in catalog order.
func (c *Catalog) Languages() []string {
	return append([]string(nil), c.order...)
}

// Supports reports whether code is in the catalog.
func (c *Catalog) Supports(code string) bool {
	_, ok := c.langs[code]
	return ok
}

// Lang returns the labels for code.
func (c *Catalog) Lang(code string) (Labels, error) {
	l, ok := c.langs[code]
	if !ok {
		return Labels{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}
	return l, nil
}
