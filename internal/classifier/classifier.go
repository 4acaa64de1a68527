// Package classifier decides which constant-pool strings look like user-facing
// text worth sending to translation.
package classifier

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var packagePrefixes = []string{
	"net.", "com.", "org.",
	"java.", "javax.", "mojang.",
	"forge.", "minecraft.", "mixin.",
}

var fileSuffixes = []string{
	".class", ".java", ".png", ".json", ".jar",
	".properties", ".xml", ".txt", ".cfg", ".lang",
	".mcmeta", ".yml", ".yaml", ".toml", ".mod",
	".ogg", ".wav", ".nbt", ".dat",
}

var descriptorCodes = set("V", "I", "Z", "B", "S", "C", "D", "F", "J", "L")

var reservedNames = set(
	"Code", "LineNumberTable", "LocalVariableTable", "SourceFile", "Signature",
	"InnerClasses", "EnclosingMethod", "Exceptions", "ConstantValue", "Deprecated",
	"RuntimeVisibleAnnotations", "StackMapTable", "BootstrapMethods", "MethodParameters",
	"this", "super", "null", "true", "false", "void", "int", "boolean", "String",
)

// Rule is a named rejection test.
type Rule struct {
	Name  string
	Match func(text string) bool
}

// Rules is the full rejection set. A string matching any rule is never
// translated.
var Rules = []Rule{
	{"package_name", func(s string) bool { return hasAnyPrefix(s, packagePrefixes) }},
	{"path", func(s string) bool { return strings.ContainsAny(s, `/\`) }},
	{"file_extension", func(s string) bool { return hasAnySuffix(s, fileSuffixes) }},
	{"type_descriptor", func(s string) bool { return strings.HasPrefix(s, "L") && strings.HasSuffix(s, ";") }},
	{"primitive_code", func(s string) bool { return descriptorCodes[s] }},
	{"method_descriptor", func(s string) bool { return strings.HasPrefix(s, "(") && strings.Contains(s, ")") }},
	{"initializer", func(s string) bool { return strings.Contains(s, "<init>") || strings.Contains(s, "<clinit>") }},
	{"array_descriptor", func(s string) bool { return strings.HasPrefix(s, "[") }},
	{"inner_class", func(s string) bool { return strings.Contains(s, "$") }},
	{"markup", func(s string) bool { return strings.Contains(s, "<") && strings.Contains(s, ">") }},
	{"reserved_name", func(s string) bool { return reservedNames[s] }},
	{"camel_case", func(s string) bool { return hasCamelHump(s) && !hasSpace(s) }},
	{"snake_case", func(s string) bool { return isLower(s) && strings.Contains(s, "_") && !hasSpace(s) }},
	{"constant_case", func(s string) bool { return isUpper(s) && strings.Contains(s, "_") && !hasSpace(s) }},
	{"short_upper", func(s string) bool { return isUpper(s) && !hasSpace(s) && utf8.RuneCountInString(s) < 20 }},
	{"resource_location", func(s string) bool { return strings.Contains(s, ":") && !hasSpace(s) }},
	{"annotation", func(s string) bool { return strings.HasPrefix(s, "@") }},
	{"nbt", func(s string) bool { return strings.HasPrefix(s, "{") || strings.HasSuffix(s, "}") }},
	{"version", func(s string) bool { return strings.Contains(s, ".") && !hasSpace(s) && strings.IndexFunc(s, unicode.IsDigit) >= 0 }},
	{"hash_prefix", func(s string) bool { return strings.HasPrefix(s, "#") }},
	{"assignment", func(s string) bool { return strings.Contains(s, "=") && !hasSpace(s) }},
	{"lower_word", func(s string) bool { return !hasSpace(s) && isLower(s) && strings.IndexFunc(s, unicode.IsUpper) < 0 }},
}

// Verdict is the outcome of Check. Rule names the rejection rule that fired,
// "too_short", "too_few_letters" or "no_sentence_signal"; it is empty when
// Translate is true.
type Verdict struct {
	Translate bool
	Rule      string
}

// ShouldTranslate reports whether text is a translation candidate.
func ShouldTranslate(text string) bool {
	return Check(text).Translate
}

// Check runs the full decision and reports which rule rejected the text.
func Check(text string) Verdict {
	if utf8.RuneCountInString(text) < 4 {
		return Verdict{Rule: "too_short"}
	}
	letters := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < 2 {
		return Verdict{Rule: "too_few_letters"}
	}

	for _, rule := range Rules {
		if rule.Match(text) {
			return Verdict{Rule: rule.Name}
		}
	}

	if !hasSpace(text) && !capitalizedWithPunct(text) {
		return Verdict{Rule: "no_sentence_signal"}
	}
	return Verdict{Translate: true}
}

func capitalizedWithPunct(s string) bool {
	first, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(first) && strings.ContainsAny(s, " .!?")
}

func hasSpace(s string) bool {
	return strings.Contains(s, " ")
}

func hasCamelHump(s string) bool {
	prev := rune(-1)
	for _, r := range s {
		if prev >= 0 && unicode.IsLower(prev) && unicode.IsUpper(r) {
			return true
		}
		prev = r
	}
	return false
}

// isLower mirrors the usual string "is lower-case" test: at least one cased
// rune and no upper- or title-case runes.
func isLower(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r), unicode.IsTitle(r):
			return false
		case unicode.IsLower(r):
			cased = true
		}
	}
	return cased
}

func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, p := range suffixes {
		if strings.HasSuffix(s, p) {
			return true
		}
	}
	return false
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
