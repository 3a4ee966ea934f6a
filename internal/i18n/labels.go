package i18n

import (
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/pavelanni/lessonword/internal/convert"
)

// LabelKeys is the fixed set of labels exported documents need.
var LabelKeys = convert.LabelKeys

// Labels localizes document labels for one language. It implements
// convert.Localizer.
type Labels struct {
	lang string
	loc  *i18n.Localizer
}

// NewLabels returns the labels for lang. Init must have been called.
func NewLabels(lang string) *Labels {
	return &Labels{lang: lang, loc: NewLocalizer(lang)}
}

// Lang returns the language the labels were requested for.
func (l *Labels) Lang() string { return l.lang }

// Localize returns the label for key, or key itself when untranslated.
func (l *Labels) Localize(key string) string {
	return localize(l.loc, &i18n.LocalizeConfig{MessageID: key})
}

// Map returns every label key with its localized value.
func (l *Labels) Map() map[string]string {
	out := make(map[string]string, len(LabelKeys))
	for _, k := range LabelKeys {
		out[k] = l.Localize(k)
	}
	return out
}

var rtlScripts = map[string]bool{
	"Arab": true,
	"Hebr": true,
	"Thaa": true,
	"Syrc": true,
	"Nkoo": true,
	"Adlm": true,
	"Rohg": true,
}

// Direction returns "rtl" for languages written right to left and "ltr"
// otherwise, including for unparseable tags.
func Direction(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return "ltr"
	}
	script, _ := tag.Script()
	if rtlScripts[script.String()] {
		return "rtl"
	}
	return "ltr"
}
