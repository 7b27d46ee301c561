package i18n

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedCatalogIsComplete(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "id", "cn"}, cat.Languages())

	for _, code := range cat.Languages() {
		l, err := cat.Lang(code)
		require.NoError(t, err)
		assert.Equal(t, code, l.Lang())
		for _, id := range RequiredLabels {
			assert.NotEqual(t, id, l.T(id), "%s/%s", code, id)
		}
	}
}

func TestEnglishRendering(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	en, err := cat.Lang("en")
	require.NoError(t, err)

	assert.Equal(t, "Correlation Coefficient (r): 0.857", en.T("coef", 0.85714))
	assert.Equal(t, "p-value: 0.0001", en.T("p_value", 0.00012))
	assert.Equal(t, "Interpretation: Positive – Strong correlation",
		en.T("interpretation", en.T("positive"), en.T("strong")))
	assert.Equal(t, "no_such_label", en.T("no_such_label"))
}

func TestParseRejectsMissingLabel(t *testing.T) {
	var b strings.Builder
	b.WriteString("en:\n")
	for _, id := range RequiredLabels {
		b.WriteString("  " + id + ": \"x\"\n")
	}
	b.WriteString("xx:\n")
	for _, id := range RequiredLabels {
		if id == "contrast" || id == "weak" {
			continue
		}
		b.WriteString("  " + id + ": \"x\"\n")
	}

	_, err := Parse([]byte(b.String()))
	var mle *MissingLabelError
	require.ErrorAs(t, err, &mle)
	assert.Equal(t, "xx", mle.Lang)
	assert.Equal(t, []string{"contrast", "weak"}, mle.Missing)
	assert.Contains(t, err.Error(), `locale "xx"`)
}

func TestParseRejectsMalformedCatalog(t *testing.T) {
	_, err := Parse([]byte("- en\n- id\n"))
	assert.Error(t, err)

	_, err = Parse([]byte(""))
	assert.Error(t, err)

	_, err = Parse([]byte("en: {language: \"A\"}\nen: {language: \"B\"}\n"))
	assert.Error(t, err)
}

func TestUnsupportedLanguage(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	assert.False(t, cat.Supports("fr"))
	_, err = cat.Lang("fr")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestMapIsACopy(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	en, _ := cat.Lang("en")
	m := en.Map()
	m["app_title"] = "changed"
	assert.Equal(t, "Statistical Analysis App", en.T("app_title"))
}
