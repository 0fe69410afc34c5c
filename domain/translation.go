package domain

// Language is an ISO 639-1 code, "fil" for Filipino.
type Language string

const (
	English  Language = "en"
	Arabic   Language = "ar"
	Filipino Language = "fil"
	French   Language = "fr"
	German   Language = "de"
	Hindi    Language = "hi"
	Russian  Language = "ru"

	// AutoDetect asks the gateway to detect the source language.
	AutoDetect Language = "auto"
)

var languageNames = map[Language]string{
	English:  "English",
	Arabic:   "Arabic",
	Filipino: "Filipino",
	French:   "French",
	German:   "German",
	Hindi:    "Hindi",
	Russian:  "Russian",
}

// Name returns the English name of the language, or the raw code if unknown.
func (l Language) Name() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return string(l)
}

// LanguagePair keys the translator handle cache.
type LanguagePair struct {
	Source Language
	Target Language
}

type TranslationRequest struct {
	Text    string
	Source  Language
	Targets []Language
}
