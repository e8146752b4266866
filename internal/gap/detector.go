package gap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fieldmate/backend/internal/domain"
	"github.com/fieldmate/backend/pkg/logger"
)

const (
	basePriority = 50
	maxPriority  = 100

	minSearchTerms = 4
	maxSearchTerms = 8
)

// FrequencyLookup reports how many times a fingerprint has already been
// recorded. Zero means unseen. Implemented by the gap store.
type FrequencyLookup interface {
	Frequency(ctx context.Context, fingerprint string) int
}

// Detector turns a poorly-covered request into a prioritized repair request.
// Extraction is rule-based so output is reproducible; there is no randomness
// and no learned model on this path.
type Detector struct {
	lex            *Lexicon
	freq           FrequencyLookup
	faultCodeBonus int
}

func NewDetector(lex *Lexicon, freq FrequencyLookup, faultCodeBonus int) *Detector {
	if faultCodeBonus == 0 {
		faultCodeBonus = 20
	}
	return &Detector{
		lex:            lex,
		freq:           freq,
		faultCodeBonus: faultCodeBonus,
	}
}

// Detect always produces a repair request. When extraction finds nothing the
// search terms fall back to the normalized query text alone.
func (d *Detector) Detect(ctx context.Context, req domain.Request, cov domain.Coverage) domain.RepairRequest {
	normalized := Normalize(req.Text)
	tokens := Tokenize(normalized)

	var vendor, equipment, symptom string
	var modelTokens []string
	faultCodeFound := false

	for _, tok := range tokens {
		switch {
		case vendor == "" && d.lex.VendorDomain(tok) != "":
			vendor = tok
		case equipment == "" && isEquipmentToken(tok):
			equipment = tok
		case symptom == "" && isSymptomToken(tok):
			symptom = tok
		case isFaultCodeToken(tok):
			faultCodeFound = true
			modelTokens = append(modelTokens, tok)
		case isModelNumberToken(tok):
			modelTokens = append(modelTokens, tok)
		}
	}

	// A query like "what does E04 mean" names no vendor, but the matches
	// that did come back often do. Borrow the strongest one.
	if vendor == "" {
		for _, item := range cov.Items {
			if item.Vendor != "" {
				vendor = Normalize(item.Vendor)
				break
			}
		}
	}
	if equipment == "" {
		for _, item := range cov.Items {
			if item.EquipmentType != "" {
				equipment = Normalize(item.EquipmentType)
				break
			}
		}
	}

	fingerprint := Fingerprint(normalized, vendor, equipment)
	terms := d.buildSearchTerms(normalized, vendor, equipment, modelTokens)
	priority := d.computePriority(ctx, fingerprint, faultCodeFound)

	logger.Debug("Gap detected",
		zap.String("fingerprint", fingerprint),
		zap.String("vendor", vendor),
		zap.String("equipment", equipment),
		zap.Int("priority", priority),
		zap.Int("search_terms", len(terms)),
	)

	return domain.RepairRequest{
		QueryText:     normalized,
		Fingerprint:   fingerprint,
		VendorHint:    vendor,
		EquipmentHint: equipment,
		SymptomHint:   symptom,
		SearchTerms:   terms,
		Priority:      priority,
	}
}

func (d *Detector) buildSearchTerms(normalized, vendor, equipment string, modelTokens []string) []string {
	var terms []string
	seen := make(map[string]struct{})

	add := func(term string) {
		if term == "" || len(terms) >= maxSearchTerms {
			return
		}
		if _, dup := seen[term]; dup {
			return
		}
		terms = append(terms, term)
		seen[term] = struct{}{}
	}

	for _, entity := range modelTokens {
		add(fmt.Sprintf("%s manual", entity))
		add(fmt.Sprintf("%s fault code", entity))
		if vendorDomain := d.lex.VendorDomain(vendor); vendorDomain != "" {
			add(fmt.Sprintf("site:%s %s", vendorDomain, entity))
		}
	}

	if vendor != "" && equipment != "" {
		add(fmt.Sprintf("%s %s troubleshooting", vendor, equipment))
		add(fmt.Sprintf("%s %s service manual", vendor, equipment))
	} else if equipment != "" {
		add(fmt.Sprintf("%s troubleshooting guide", equipment))
	}

	if len(terms) < minSearchTerms {
		add(normalized)
	}

	// Extraction found nothing usable; the raw query is still a lead.
	if len(terms) == 0 {
		terms = []string{normalized}
	}

	return terms
}

func (d *Detector) computePriority(ctx context.Context, fingerprint string, faultCodeFound bool) int {
	priority := basePriority

	if faultCodeFound {
		priority += d.faultCodeBonus
	}

	if d.freq != nil {
		if f := d.freq.Frequency(ctx, fingerprint); f > 0 {
			bonus := 2 * f
			if bonus > 30 {
				bonus = 30
			}
			priority += bonus
		}
	}

	if priority > maxPriority {
		priority = maxPriority
	}
	return priority
}

func isEquipmentToken(tok string) bool {
	_, ok := equipmentTerms[tok]
	return ok
}
