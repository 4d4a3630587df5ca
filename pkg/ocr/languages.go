package ocr

import "strings"

// Language codes accepted by the OCR service's free tier, keyed by display
// name. The "auto" sentinel maps to English, which is what the service uses
// when no better hint exists.
var languageCodes = map[string]string{
	"auto":                  "eng",
	"english":               "eng",
	"arabic":                "ara",
	"bulgarian":             "bul",
	"chinese (simplified)":  "chs",
	"chinese (traditional)": "cht",
	"croatian":              "hrv",
	"czech":                 "cze",
	"danish":                "dan",
	"dutch":                 "dut",
	"finnish":               "fin",
	"french":                "fre",
	"german":                "ger",
	"greek":                 "gre",
	"hungarian":             "hun",
	"italian":               "ita",
	"japanese":              "jpn",
	"korean":                "kor",
	"polish":                "pol",
	"portuguese":            "por",
	"russian":               "rus",
	"slovenian":             "slv",
	"spanish":               "spa",
	"swedish":               "swe",
	"turkish":               "tur",
}

// LanguageCode maps a display name (or an already-valid code) to the wire
// code. Unknown inputs fall back to English.
func LanguageCode(language string) string {
	key := strings.ToLower(strings.TrimSpace(language))
	if code, ok := languageCodes[key]; ok {
		return code
	}
	for _, code := range languageCodes {
		if key == code {
			return code
		}
	}
	return "eng"
}
