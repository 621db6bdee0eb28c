package storage

import (
	"errors"
	"strconv"
	"strings"
)

const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusArchived  = "archived"
	StatusDeleted   = "deleted"

	legacyStatusApproved = "approved"
)

// ListSeparator joins the ordered values of the domains and certifications columns.
const ListSeparator = "|"

var (
	ErrDuplicateURL  = errors.New("record with this url already exists")
	ErrDuplicateFeed = errors.New("feed url already exists")
)

// Record is a single credit entry. All values are kept as text, exactly as
// they appear in the CSV file.
type Record struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	URL            string `json:"url"`
	PublishedDate  string `json:"published_date"`
	FetchedDate    string `json:"fetched_date"`
	Source         string `json:"source"`
	Type           string `json:"type"`
	CPEHours       string `json:"cpe_hours"`
	Domain         string `json:"domain"`
	Notes          string `json:"notes"`
	Status         string `json:"status"`
	Presenter      string `json:"presenter"`
	Summary        string `json:"cpe_summary"`
	Domains        string `json:"domains"`
	ProofImage     string `json:"proof_image"`
	Subtitle       string `json:"subtitle"`
	Duration       string `json:"duration"`
	SubmittedDate  string `json:"submitted_date"`
	Certifications string `json:"certifications"`
}

// Hours returns the numeric credit value, 0 when the stored text is not a number.
func (r Record) Hours() float64 {
	h, err := strconv.ParseFloat(strings.TrimSpace(r.CPEHours), 64)
	if err != nil {
		return 0
	}
	return h
}

// DomainList splits the pipe-delimited domains column, dropping empty elements.
func (r Record) DomainList() []string {
	return SplitList(r.Domains)
}

func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ListSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *Record) get(column string) string {
	switch column {
	case "id":
		return r.ID
	case "title":
		return r.Title
	case "description":
		return r.Description
	case "url":
		return r.URL
	case "published_date":
		return r.PublishedDate
	case "fetched_date":
		return r.FetchedDate
	case "source":
		return r.Source
	case "type":
		return r.Type
	case "cpe_hours":
		return r.CPEHours
	case "domain":
		return r.Domain
	case "notes":
		return r.Notes
	case "status":
		return r.Status
	case "presenter":
		return r.Presenter
	case "cpe_summary":
		return r.Summary
	case "domains":
		return r.Domains
	case "proof_image":
		return r.ProofImage
	case "subtitle":
		return r.Subtitle
	case "duration":
		return r.Duration
	case "submitted_date":
		return r.SubmittedDate
	case "certifications":
		return r.Certifications
	}
	return ""
}

func (r *Record) set(column, value string) {
	switch column {
	case "id":
		r.ID = value
	case "title":
		r.Title = value
	case "description":
		r.Description = value
	case "url":
		r.URL = value
	case "published_date":
		r.PublishedDate = value
	case "fetched_date":
		r.FetchedDate = value
	case "source":
		r.Source = value
	case "type":
		r.Type = value
	case "cpe_hours":
		r.CPEHours = value
	case "domain":
		r.Domain = value
	case "notes":
		r.Notes = value
	case "status":
		r.Status = value
	case "presenter":
		r.Presenter = value
	case "cpe_summary":
		r.Summary = value
	case "domains":
		r.Domains = value
	case "proof_image":
		r.ProofImage = value
	case "subtitle":
		r.Subtitle = value
	case "duration":
		r.Duration = value
	case "submitted_date":
		r.SubmittedDate = value
	case "certifications":
		r.Certifications = value
	}
}

// FeedSource is a configured syndication feed.
type FeedSource struct {
	ID         string `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	URL        string `yaml:"url" json:"url"`
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	AddedDate  string `yaml:"added_date" json:"added_date"`
	CutoffDays int    `yaml:"cutoff_days" json:"cutoff_days"`

	// Title rewrite for the primary feed, e.g. "SN 1000:" -> "Security Now 1000:".
	Primary          bool   `yaml:"primary,omitempty" json:"primary"`
	TitleCode        string `yaml:"title_code,omitempty" json:"title_code,omitempty"`
	TitlePrefix      string `yaml:"title_prefix,omitempty" json:"title_prefix,omitempty"`
	DefaultPresenter string `yaml:"default_presenter,omitempty" json:"default_presenter,omitempty"`
}

// FeedUpdate carries the mutable feed fields; nil means unchanged.
type FeedUpdate struct {
	Name       *string `json:"name"`
	Enabled    *bool   `json:"enabled"`
	CutoffDays *int    `json:"cutoff_days"`
}
