package quiz

import "strings"

// Language is the learner's preferred language for translated explanations.
type Language string

const (
	English Language = "english"
	Spanish Language = "spanish"
	Hindi   Language = "hindi"
)

// DefaultLanguage is used when no language was selected.
const DefaultLanguage = English

// Languages lists the languages offered in the setup screen.
var Languages = []Language{English, Spanish, Hindi}

var languageNames = map[Language]string{
	English: "English",
	Spanish: "Español",
	Hindi:   "हिंदी",
}

// ParseLanguage normalizes a user supplied language name. Empty input
// yields DefaultLanguage.
func ParseLanguage(s string) Language {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultLanguage
	}
	return Language(s)
}

// DisplayName returns the language's name as shown to the learner.
func (l Language) DisplayName() string {
	if n, ok := languageNames[l]; ok {
		return n
	}
	if l == "" {
		return languageNames[DefaultLanguage]
	}
	return strings.ToUpper(string(l[:1])) + string(l[1:])
}

// IsDefault reports whether l is the default (untranslated) language.
func (l Language) IsDefault() bool {
	return l == "" || l == DefaultLanguage
}
