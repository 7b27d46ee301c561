package analysis

// Translator formats a localized label by id.
type Translator interface {
	T(id string, args ...any) string
}

// Summary is the rendered, localized form of a CorrelationResult.
type Summary struct {
	Title          string `json:"title"`
	Coefficient    string `json:"coef"`
	PValue         string `json:"p_value"`
	Interpretation string `json:"interpretation"`
}

// Summarize renders r with the labels of one language. The method name in
// the title is always the canonical one ("Pearson", "Spearman").
func (r *CorrelationResult) Summarize(tr Translator) Summary {
	return Summary{
		Title:          tr.T("result_title", r.Method.String()),
		Coefficient:    tr.T("coef", r.R),
		PValue:         tr.T("p_value", r.P),
		Interpretation: r.Interpret(tr),
	}
}

// Interpret renders "<direction> – <strength>" through the interpretation label.
func (r *CorrelationResult) Interpret(tr Translator) string {
	return tr.T("interpretation", tr.T(string(r.Direction)), tr.T(string(r.Strength)))
}
