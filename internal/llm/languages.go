package llm

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var languageNames = map[string]string{
	"zh_cn": "Simplified Chinese",
	"zh_tw": "Traditional Chinese",
	"en_us": "English",
	"ja_jp": "Japanese",
	"de_de": "German",
	"es_es": "Spanish",
	"fr_fr": "French",
	"ru_ru": "Russian",
	"pt_br": "Brazilian Portuguese",
	"ko_kr": "Korean",
	"it_it": "Italian",
}

// LanguageName returns the English name used in prompts for a Minecraft-style
// locale code such as "zh_cn". Codes outside the built-in table are parsed as
// BCP 47 tags and named by their base language; anything unparseable falls
// back to English.
func LanguageName(code string) string {
	key := strings.ToLower(strings.TrimSpace(code))
	if name, ok := languageNames[key]; ok {
		return name
	}
	if key == "" {
		return "English"
	}
	tag, err := language.Parse(strings.ReplaceAll(key, "_", "-"))
	if err != nil || tag == language.Und {
		return "English"
	}
	base, _ := tag.Base()
	name := display.English.Languages().Name(base)
	if name == "" {
		return "English"
	}
	return name
}

// SupportedLanguages lists the locale codes with a fixed prompt name.
func SupportedLanguages() []string {
	out := make([]string, 0, len(languageNames))
	for code := range languageNames {
		out = append(out, code)
	}
	return out
}
