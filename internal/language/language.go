package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto is the hint value that asks the engine to detect the language itself.
const Auto = "auto"

// English word forms accepted in addition to codes.
var wordForms = map[string]language.Base{
	"english":    language.MustParseBase("en"),
	"spanish":    language.MustParseBase("es"),
	"french":     language.MustParseBase("fr"),
	"german":     language.MustParseBase("de"),
	"italian":    language.MustParseBase("it"),
	"portuguese": language.MustParseBase("pt"),
	"japanese":   language.MustParseBase("ja"),
	"korean":     language.MustParseBase("ko"),
	"chinese":    language.MustParseBase("zh"),
	"russian":    language.MustParseBase("ru"),
	"arabic":     language.MustParseBase("ar"),
	"hindi":      language.MustParseBase("hi"),
	"dutch":      language.MustParseBase("nl"),
	"polish":     language.MustParseBase("pl"),
	"swedish":    language.MustParseBase("sv"),
	"danish":     language.MustParseBase("da"),
	"norwegian":  language.MustParseBase("no"),
	"finnish":    language.MustParseBase("fi"),
}

// ISO 639-2/B bibliographic codes that differ from the terminology codes.
var bibliographic = map[string]string{
	"alb": "sq", "arm": "hy", "baq": "eu", "bur": "my", "chi": "zh",
	"cze": "cs", "dut": "nl", "fre": "fr", "geo": "ka", "ger": "de",
	"gre": "el", "ice": "is", "mac": "mk", "mao": "mi", "may": "ms",
	"per": "fa", "rum": "ro", "slo": "sk", "tib": "bo", "wel": "cy",
}

// Normalize returns the base language code for hint. Empty and "auto" hints
// return "" so the engine detects the language.
func Normalize(hint string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(hint))
	if value == "" || value == Auto {
		return "", nil
	}
	if base, ok := wordForms[value]; ok {
		return base.String(), nil
	}
	if code, ok := bibliographic[value]; ok {
		return code, nil
	}
	tag, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("unrecognized language %q: %w", hint, err)
	}
	base, confidence := tag.Base()
	if confidence == language.No || base.String() == "und" {
		return "", fmt.Errorf("unrecognized language %q", hint)
	}
	return base.String(), nil
}

// ToISO3 returns the ISO 639-2 code for a normalized or raw hint, or "" when unknown.
func ToISO3(hint string) string {
	code, err := Normalize(hint)
	if err != nil || code == "" {
		return ""
	}
	base, err := language.ParseBase(code)
	if err != nil {
		return ""
	}
	return base.ISO3()
}

// DisplayName returns the English name of the language, falling back to the
// upper-cased hint.
func DisplayName(hint string) string {
	code, err := Normalize(hint)
	if err != nil || code == "" {
		return strings.ToUpper(strings.TrimSpace(hint))
	}
	if name := display.English.Tags().Name(language.Make(code)); name != "" {
		return name
	}
	return strings.ToUpper(code)
}
