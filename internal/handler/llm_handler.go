package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/fieldmate/backend/internal/domain"
	"github.com/fieldmate/backend/internal/llm"
)

// Completer is the slice of the LLM client the handlers need.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

const genericSystemPrompt = `You are FieldMate, an assistant for field service technicians working on
commercial HVAC and industrial equipment. Answer using ONLY the reference
excerpts provided. If the excerpts do not cover the question, say what is
missing and suggest the safest next diagnostic step. Never invent fault code
meanings or torque values. Keep answers short and procedural.`

const specialistSystemPrompt = `You are FieldMate, a %s equipment specialist supporting field service
technicians. Answer using ONLY the reference excerpts provided. Use the
vendor's own terminology for parts and fault codes. If the excerpts do not
cover the question, say so explicitly. Keep answers short and procedural.`

// LLMHandler turns matched knowledge items into a grounded answer via the
// completion model. One instance serves as the generic handler; specialist
// instances carry a vendor or equipment specialty.
type LLMHandler struct {
	llm       Completer
	specialty string
}

func NewGenericHandler(llm Completer) *LLMHandler {
	return &LLMHandler{llm: llm}
}

func NewSpecialistHandler(llm Completer, specialty string) *LLMHandler {
	return &LLMHandler{llm: llm, specialty: specialty}
}

func (h *LLMHandler) Handle(ctx context.Context, req domain.Request, cov domain.Coverage) (domain.Answer, error) {
	system := genericSystemPrompt
	if h.specialty != "" {
		system = fmt.Sprintf(specialistSystemPrompt, h.specialty)
	}

	resp, err := h.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		UserPrompt:   buildUserPrompt(req, cov),
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("completion failed: %w", err)
	}

	return domain.Answer{
		Text:       strings.TrimSpace(resp.Content),
		Citations:  collectCitations(cov.Items),
		Confidence: cov.Confidence,
	}, nil
}

func buildUserPrompt(req domain.Request, cov domain.Coverage) string {
	var b strings.Builder

	b.WriteString("Question:\n")
	b.WriteString(req.Text)
	b.WriteString("\n")

	for _, att := range req.Attachments {
		if att.Text == "" {
			continue
		}
		fmt.Fprintf(&b, "\nAttachment (%s):\n%s\n", att.Name, att.Text)
	}

	if len(cov.Items) == 0 {
		b.WriteString("\nNo reference excerpts are available for this question.\n")
		return b.String()
	}

	b.WriteString("\nReference excerpts:\n")
	for i, item := range cov.Items {
		fmt.Fprintf(&b, "[%d] (%s %s, source %s)\n",
			i+1, item.Vendor, item.EquipmentType, item.SourceRef)
		if item.Snippet != "" {
			b.WriteString(item.Snippet)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func collectCitations(items []domain.MatchedItem) []string {
	seen := make(map[string]bool, len(items))
	citations := make([]string, 0, len(items))
	for _, item := range items {
		if item.SourceRef == "" || seen[item.SourceRef] {
			continue
		}
		seen[item.SourceRef] = true
		citations = append(citations, item.SourceRef)
	}
	return citations
}
