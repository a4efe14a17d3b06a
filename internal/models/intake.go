package models

import "time"

type ExtractionStatus string

const (
	ExtractionPending    ExtractionStatus = "pending"
	ExtractionProcessing ExtractionStatus = "processing"
	ExtractionCompleted  ExtractionStatus = "completed"
	ExtractionFailed     ExtractionStatus = "failed"
)

type ClinicalStatus string

const (
	ClinicalActive   ClinicalStatus = "active"
	ClinicalResolved ClinicalStatus = "resolved"
)

type FileStatus string

const (
	FileUploaded  FileStatus = "uploaded"
	FileScanning  FileStatus = "scanning"
	FileExtracted FileStatus = "extracted"
	FileFailed    FileStatus = "failed"
)

const SourcePrefill = "prefill"

type CanonicalCondition struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

type Evidence struct {
	DocumentID string `json:"docId"`
	Page       int    `json:"page"`
	Snippet    string `json:"snippet"`
	RawSnippet string `json:"rawSnippet,omitempty"`
}

type CandidateCondition struct {
	ID           string             `json:"id"`
	OriginalTerm string             `json:"originalTerm"`
	Canonical    CanonicalCondition `json:"canonical"`
	Confidence   float64            `json:"confidence"`
	Status       ClinicalStatus     `json:"status,omitempty"`
	Severity     string             `json:"severity,omitempty"`
	OnsetDate    string             `json:"onsetDate,omitempty"`
	Evidence     Evidence           `json:"evidence"`
	MatchMethod  string             `json:"matchMethod,omitempty"`
	Unresolved   bool               `json:"unresolved,omitempty"`
}

// ExtractionJob aggregates candidates from every file uploaded to one session.
type ExtractionJob struct {
	SessionID   string               `json:"sessionId"`
	Status      ExtractionStatus     `json:"status"`
	Candidates  []CandidateCondition `json:"candidates"`
	FileIDs     []string             `json:"fileIds"`
	Outstanding int                  `json:"outstanding"`
	Succeeded   int                  `json:"succeeded"`
	Failed      int                  `json:"failed"`
	TimedOut    bool                 `json:"timedOut,omitempty"`
	StartedAt   time.Time            `json:"startedAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
	CompletedAt *time.Time           `json:"completedAt,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// Candidate looks up a candidate by id.
func (j *ExtractionJob) Candidate(id string) (CandidateCondition, bool) {
	for _, c := range j.Candidates {
		if c.ID == id {
			return c, true
		}
	}
	return CandidateCondition{}, false
}

type UploadedFile struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"sessionId"`
	OriginalName string     `json:"originalName"`
	StoredName   string     `json:"storedName"`
	Path         string     `json:"path"`
	MimeType     string     `json:"mimeType"`
	Size         int64      `json:"size"`
	Status       FileStatus `json:"status"`
	Error        string     `json:"error,omitempty"`
	Candidates   int        `json:"candidates"`
	UploadedAt   time.Time  `json:"uploadedAt"`
	ExtractedAt  *time.Time `json:"extractedAt,omitempty"`
}

type ConfirmedCondition struct {
	CandidateID string         `json:"candidateId"`
	Status      ClinicalStatus `json:"status,omitempty"`
	Severity    string         `json:"severity,omitempty"`
	OnsetDate   string         `json:"onsetDate,omitempty"`
}

type ManualCondition struct {
	Code      string         `json:"code"`
	Label     string         `json:"label"`
	Status    ClinicalStatus `json:"status,omitempty"`
	Severity  string         `json:"severity,omitempty"`
	OnsetDate string         `json:"onsetDate,omitempty"`
}

// ConfirmationRecord is immutable once stored; a resubmission replaces it.
// ConfirmedCandidates holds snapshots of the confirmed candidates with the
// applicant's edits applied.
type ConfirmationRecord struct {
	SessionID           string               `json:"sessionId"`
	Confirmed           []ConfirmedCondition `json:"confirmed"`
	Rejected            []string             `json:"rejected"`
	ManualAdd           []ManualCondition    `json:"manualAdd"`
	ConfirmedCandidates []CandidateCondition `json:"confirmedCandidates"`
	Prefill             []PrefillAnswer      `json:"prefill"`
	SubmittedAt         time.Time            `json:"submittedAt"`
	ConsumedAt          *time.Time           `json:"consumedAt,omitempty"`
}

// Labels returns confirmed candidate labels followed by manual addition labels.
func (r *ConfirmationRecord) Labels() []string {
	labels := make([]string, 0, len(r.ConfirmedCandidates)+len(r.ManualAdd))
	for _, c := range r.ConfirmedCandidates {
		labels = append(labels, c.Canonical.Label)
	}
	for _, m := range r.ManualAdd {
		if m.Label != "" {
			labels = append(labels, m.Label)
		}
	}
	return labels
}

type PrefillAnswer struct {
	QuestionID   string   `json:"questionId"`
	Answer       []string `json:"answer"`
	Source       string   `json:"source"`
	EvidenceRefs []string `json:"evidenceRefs"`
}

type DictionaryEntry struct {
	Code     string   `json:"code" yaml:"code"`
	Label    string   `json:"label" yaml:"label"`
	Synonyms []string `json:"synonyms" yaml:"synonyms"`
	Category string   `json:"category" yaml:"category"`
}

type DictionarySearchResult struct {
	Code     string `json:"code"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

// ExtractedTerm is one raw term reported by a condition extraction provider.
type ExtractedTerm struct {
	OriginalTerm string  `json:"originalTerm"`
	Confidence   float64 `json:"confidence"`
	Status       string  `json:"status,omitempty"`
	Severity     string  `json:"severity,omitempty"`
	OnsetDate    string  `json:"onsetDate,omitempty"`
}
