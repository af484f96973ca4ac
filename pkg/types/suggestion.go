package types

// Suggestion is a canned, bilingual, prioritized follow-up prompt offered to
// the user. Suggestions are static configuration data built once at startup
// and never mutated at runtime.
type Suggestion struct {
	TextAR         string `json:"text_ar" yaml:"text_ar"`                             // Arabic version
	TextEN         string `json:"text_en" yaml:"text_en"`                             // English version
	TriggerReason  string `json:"trigger_reason" yaml:"trigger_reason"`               // Why this suggestion was generated
	Priority       int    `json:"priority" yaml:"priority"`                           // 1-5, higher = more important
	ServiceRelated string `json:"service_related,omitempty" yaml:"service_related,omitempty"` // Related service identifier, if any
}

// Text returns the variant for the given language code: Arabic for
// LanguageArabic, English otherwise.
func (s Suggestion) Text(language string) string {
	if language == LanguageArabic {
		return s.TextAR
	}
	return s.TextEN
}
