package gap

import (
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"
)

var (
	modelNumberPattern = regexp.MustCompile(`^[A-Za-z]{1,4}-?\d{2,}[A-Za-z0-9/-]*$`)
	faultCodePattern   = regexp.MustCompile(`^(?i)(?:e|f|p|err|al|flt)-?\d{1,4}$`)
)

// equipmentTerms covers the equipment classes the knowledge store is
// organized around. Matching is exact on normalized tokens.
var equipmentTerms = map[string]struct{}{
	"chiller":    {},
	"boiler":     {},
	"pump":       {},
	"compressor": {},
	"furnace":    {},
	"ahu":        {},
	"rtu":        {},
	"vfd":        {},
	"motor":      {},
	"valve":      {},
	"condenser":  {},
	"evaporator": {},
}

var symptomTerms = map[string]struct{}{
	"leak":        {},
	"leaking":     {},
	"vibration":   {},
	"vibrating":   {},
	"noise":       {},
	"noisy":       {},
	"trip":        {},
	"tripping":    {},
	"overheat":    {},
	"overheating": {},
	"stall":       {},
	"stalling":    {},
	"fault":       {},
	"alarm":       {},
	"error":       {},
	"surging":     {},
	"frozen":      {},
	"icing":       {},
}

// Lexicon holds the vendor list and token rules the detector and the
// retrieval adapter share. Vendor names come from configuration so new
// vendors do not require a code change.
type Lexicon struct {
	vendors map[string]string
}

func NewLexicon(vendors map[string]string) *Lexicon {
	normalized := make(map[string]string, len(vendors))
	for name, domain := range vendors {
		normalized[strings.ToLower(name)] = domain
	}
	return &Lexicon{vendors: normalized}
}

// Normalize lowercases and collapses whitespace. Fingerprints and cache keys
// are computed over this form so formatting differences collapse.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Tokenize splits text with the prose tokenizer, falling back to whitespace
// splitting if the tokenizer rejects the input. Output is deterministic.
func Tokenize(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false),
		prose.WithTagging(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return strings.Fields(text)
	}

	tokens := doc.Tokens()
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Text)
	}
	return out
}

// VendorHint returns the first known vendor named in the text, or "".
func (l *Lexicon) VendorHint(text string) string {
	for _, tok := range Tokenize(Normalize(text)) {
		if _, ok := l.vendors[tok]; ok {
			return tok
		}
	}
	return ""
}

// VendorDomain returns the documentation domain for a vendor, or "".
func (l *Lexicon) VendorDomain(vendor string) string {
	return l.vendors[strings.ToLower(vendor)]
}

// EquipmentHint returns the first equipment-class token in the text, or "".
func (l *Lexicon) EquipmentHint(text string) string {
	for _, tok := range Tokenize(Normalize(text)) {
		if _, ok := equipmentTerms[tok]; ok {
			return tok
		}
	}
	return ""
}

// EntityTokens returns the model-number-like, vendor and equipment tokens of
// the text, in order of first appearance. Used both by gap detection and by
// the retrieval adapter's graph lookup.
func (l *Lexicon) EntityTokens(text string) []string {
	var entities []string
	seen := make(map[string]struct{})

	for _, tok := range Tokenize(Normalize(text)) {
		if _, dup := seen[tok]; dup {
			continue
		}

		_, isVendor := l.vendors[tok]
		_, isEquipment := equipmentTerms[tok]
		if isVendor || isEquipment || modelNumberPattern.MatchString(tok) {
			entities = append(entities, tok)
			seen[tok] = struct{}{}
		}
	}

	return entities
}

func isSymptomToken(tok string) bool {
	_, ok := symptomTerms[tok]
	return ok
}

func isFaultCodeToken(tok string) bool {
	return faultCodePattern.MatchString(tok)
}

func isModelNumberToken(tok string) bool {
	return modelNumberPattern.MatchString(tok)
}
