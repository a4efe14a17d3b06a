package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"alfredoptarigan/underwriting-intake/internal/apperrors"
	"alfredoptarigan/underwriting-intake/internal/metrics"
	"alfredoptarigan/underwriting-intake/internal/models"
)

const (
	defaultConfidence = 0.8
	snippetRadius     = 80
	chunkOverlap      = 200
)

// ConditionExtractor turns document text into raw condition terms.
type ConditionExtractor interface {
	Name() string
	ExtractConditions(ctx context.Context, text string) ([]models.ExtractedTerm, error)
}

type PipelineOptions struct {
	FallbackText string
	MaxTextChars int
	RateLimit    float64
	RateBurst    int
}

// ExtractionPipeline produces ranked candidate conditions for one file.
// Provider failures degrade to the fallback text and the keyword extractor;
// only an expired context fails the file.
type ExtractionPipeline struct {
	text      TextExtractor
	extractor ConditionExtractor
	keyword   ConditionExtractor
	matcher   *ConditionMatcher
	chunker   TextChunker
	redactor  *PHIRedactor
	limiter   *rate.Limiter
	opts      PipelineOptions
	log       *zap.Logger
}

// NewExtractionPipeline builds a pipeline. extractor may be nil, in which case
// every file goes through the keyword extractor.
func NewExtractionPipeline(
	text TextExtractor,
	extractor ConditionExtractor,
	dict *ConditionDictionary,
	matcher *ConditionMatcher,
	opts PipelineOptions,
	log *zap.Logger,
) *ExtractionPipeline {
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &ExtractionPipeline{
		text:      text,
		extractor: extractor,
		keyword:   NewKeywordExtractor(dict),
		matcher:   matcher,
		chunker:   NewTextChunker(),
		redactor:  NewPHIRedactor(false),
		limiter:   rate.NewLimiter(limit, burst),
		opts:      opts,
		log:       log.Named("pipeline"),
	}
}

// Process extracts, matches and ranks the conditions found in one file.
// Candidate ids are candidate-{fileID}-{n}, numbered in extraction order.
func (p *ExtractionPipeline) Process(ctx context.Context, fileID string, content []byte, mimeType string) ([]models.CandidateCondition, error) {
	doc, err := p.extractText(ctx, content, mimeType)
	if err != nil {
		return nil, err
	}

	terms, err := p.extractTerms(ctx, doc.Text)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.CandidateCondition, 0, len(terms))
	for i, term := range terms {
		match := p.matcher.Match(ctx, term.OriginalTerm)
		metrics.RecordCandidate(match.Method)

		confidence := term.Confidence
		if confidence <= 0 {
			confidence = defaultConfidence
		}

		raw := snippetAround(doc.Text, term.OriginalTerm)
		candidates = append(candidates, models.CandidateCondition{
			ID:           fmt.Sprintf("candidate-%s-%d", fileID, i),
			OriginalTerm: term.OriginalTerm,
			Canonical: models.CanonicalCondition{
				Code:  match.Entry.Code,
				Label: match.Entry.Label,
			},
			Confidence: clamp01(confidence),
			Status:     clinicalStatus(term.Status),
			Severity:   term.Severity,
			OnsetDate:  term.OnsetDate,
			Evidence: models.Evidence{
				DocumentID: fileID,
				Page:       doc.PageOf(term.OriginalTerm),
				Snippet:    p.redactor.Redact(raw),
				RawSnippet: raw,
			},
			MatchMethod: match.Method,
			Unresolved:  match.Unresolved,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	return candidates, nil
}

func (p *ExtractionPipeline) extractText(ctx context.Context, content []byte, mimeType string) (*ExtractedText, error) {
	if isImageMime(mimeType) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, timeoutError(ctx, err)
		}
	}

	doc, err := p.text.ExtractText(ctx, content, mimeType)
	if err == nil {
		return doc, nil
	}
	if ctx.Err() != nil {
		return nil, timeoutError(ctx, err)
	}

	p.log.Warn("Text extraction failed, using fallback text",
		zap.String("mime", mimeType),
		zap.Error(apperrors.ProviderFailure("text extraction", err)),
	)
	metrics.RecordProviderFallback("text")

	fallback := p.opts.FallbackText
	return &ExtractedText{Text: fallback, Pages: []string{fallback}}, nil
}

func (p *ExtractionPipeline) extractTerms(ctx context.Context, text string) ([]models.ExtractedTerm, error) {
	if p.extractor != nil {
		terms, err := p.extractWithProvider(ctx, text)
		if err == nil {
			return terms, nil
		}
		if ctx.Err() != nil {
			return nil, timeoutError(ctx, err)
		}

		p.log.Warn("Condition extraction failed, using keyword fallback",
			zap.String("provider", p.extractor.Name()),
			zap.Error(apperrors.ProviderFailure(p.extractor.Name(), err)),
		)
		metrics.RecordProviderFallback("conditions")
	}

	return p.keyword.ExtractConditions(ctx, text)
}

// extractWithProvider sends each chunk to the provider and merges the terms,
// keeping the highest confidence seen for each term.
func (p *ExtractionPipeline) extractWithProvider(ctx context.Context, text string) ([]models.ExtractedTerm, error) {
	chunks := p.chunker.ChunkText(text, p.opts.MaxTextChars, chunkOverlap)

	var merged []models.ExtractedTerm
	seen := make(map[string]int)

	for _, chunk := range chunks {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		terms, err := p.extractor.ExtractConditions(ctx, chunk)
		if err != nil {
			return nil, err
		}

		for _, t := range terms {
			key := strings.ToLower(t.OriginalTerm)
			if i, ok := seen[key]; ok {
				if t.Confidence > merged[i].Confidence {
					merged[i].Confidence = t.Confidence
				}
				continue
			}
			seen[key] = len(merged)
			merged = append(merged, t)
		}
	}

	return merged, nil
}

func timeoutError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.ExtractionTimeout(fmt.Sprintf("extraction exceeded its time budget: %v", err))
	}
	return fmt.Errorf("extraction canceled: %w", err)
}

func clinicalStatus(s string) models.ClinicalStatus {
	if strings.EqualFold(strings.TrimSpace(s), string(models.ClinicalResolved)) {
		return models.ClinicalResolved
	}
	return models.ClinicalActive
}

func isImageMime(mimeType string) bool {
	m := baseMime(mimeType)
	return m == MimeJPEG || m == MimePNG
}

// snippetAround returns the text surrounding the first occurrence of term,
// or term itself when it does not occur verbatim.
func snippetAround(text, term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return ""
	}

	lower := strings.ToLower(text)
	if len(lower) != len(text) {
		return term
	}
	idx := strings.Index(lower, strings.ToLower(term))
	if idx < 0 {
		return term
	}

	start := idx - snippetRadius
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	end := idx + len(term) + snippetRadius
	if end > len(text) {
		end = len(text)
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}

	return strings.Join(strings.Fields(text[start:end]), " ")
}
