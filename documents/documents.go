// Package documents drives the generation and history screens: résumé and
// cover letter generation requests and the list of generated documents.
package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/resume-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	ResumePath      = "/generate/resume"
	CoverLetterPath = "/generate/cover-letter"
	ListPath        = "/documents"

	// DefaultTemplate is used when a request names no template.
	DefaultTemplate = "classic"
)

// Document types as sent by the API.
const (
	TypeResume      = "resume"
	TypeCoverLetter = "cover_letter"
)

var (
	validTones   = []string{"professional", "casual", "creative"}
	validLengths = []string{"short", "medium", "long"}
)

// Request asks for one generated document. Only JobDescription is required.
type Request struct {
	Type           string   `json:"type"`
	JobDescription string   `json:"job_description"`
	JobTitle       string   `json:"job_title,omitempty"`
	CompanyName    string   `json:"company_name,omitempty"`
	TemplateID     string   `json:"template_id"`
	Tone           string   `json:"tone,omitempty"`
	Length         string   `json:"length,omitempty"`
	CustomSections []string `json:"custom_sections,omitempty"`
}

// Document is a generated résumé or cover letter. Content is left as the raw
// JSON the generator produced.
type Document struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Type           string          `json:"type"`
	Title          string          `json:"title"`
	Content        json.RawMessage `json:"content,omitempty"`
	TemplateID     string          `json:"template_id,omitempty"`
	JobTitle       string          `json:"job_title,omitempty"`
	CompanyName    string          `json:"company_name,omitempty"`
	JobDescription string          `json:"job_description,omitempty"`
	Status         string          `json:"status,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Result is the generation response.
type Result struct {
	ID       string    `json:"id"`
	Status   string    `json:"status"`
	Message  string    `json:"message,omitempty"`
	Document *Document `json:"document,omitempty"`
}

// Doer is the part of *api.Client the service calls.
type Doer interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, in, out any) error
}

// CreditTracker is told when a generation used up a credit.
type CreditTracker interface {
	ConsumeCredit()
}

type Service struct {
	api     Doer
	credits CreditTracker
}

func NewService(client Doer, credits CreditTracker) *Service {
	return &Service{api: client, credits: credits}
}

func (s *Service) GenerateResume(ctx context.Context, req Request) (*Result, error) {
	req.Type = TypeResume
	return s.generate(ctx, ResumePath, req)
}

func (s *Service) GenerateCoverLetter(ctx context.Context, req Request) (*Result, error) {
	req.Type = TypeCoverLetter
	return s.generate(ctx, CoverLetterPath, req)
}

// List returns the user's documents, newest first.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	var docs []Document
	if err := s.api.Get(ctx, ListPath, &docs); err != nil {
		return nil, errors.Wrap(err, "[Service.List] get documents")
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

func (s *Service) generate(ctx context.Context, path string, req Request) (*Result, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var res Result
	if err := s.api.Post(ctx, path, req, &res); err != nil {
		return nil, errors.Wrapf(err, "[Service.generate] %s", req.Type)
	}
	if s.credits != nil {
		s.credits.ConsumeCredit()
	}
	log.Info().Str("type", req.Type).Str("document_id", res.ID).Msg("document generated")
	return &res, nil
}

func (r Request) withDefaults() Request {
	r.JobDescription = strings.TrimSpace(r.JobDescription)
	if r.TemplateID == "" {
		r.TemplateID = DefaultTemplate
	}
	return r
}

// Validate checks the request before it is sent. Failures are a
// *users.ValidationError.
func (r Request) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(r.JobDescription) == "" {
		fields["job_description"] = "Job description is required"
	}
	if r.Tone != "" && !slices.Contains(validTones, r.Tone) {
		fields["tone"] = fmt.Sprintf("Tone must be one of %s", strings.Join(validTones, ", "))
	}
	if r.Length != "" && !slices.Contains(validLengths, r.Length) {
		fields["length"] = fmt.Sprintf("Length must be one of %s", strings.Join(validLengths, ", "))
	}
	if len(fields) == 0 {
		return nil
	}
	return &users.ValidationError{Fields: fields}
}
