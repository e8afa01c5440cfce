package models

import (
	"time"
)

// TimeCommitment is the expected effort bucket of a competition
type TimeCommitment string

const (
	CommitmentLow    TimeCommitment = "low"    // 1-3 hours
	CommitmentMedium TimeCommitment = "medium" // 10-50 hours
	CommitmentHigh   TimeCommitment = "high"   // 48+ hours
)

// IsValid reports whether the commitment is one of the known buckets
func (t TimeCommitment) IsValid() bool {
	return t == CommitmentLow || t == CommitmentMedium || t == CommitmentHigh
}

// Prize describes the reward of a competition (display only)
type Prize struct {
	Type     string `json:"type,omitempty" yaml:"type"` // cash | internship | learning | experience | equity
	Value    string `json:"value" yaml:"value"`         // amount or description
	Currency string `json:"currency,omitempty" yaml:"currency"`
}

// Competition is a single catalog record as delivered by the data source.
// Records are treated as an immutable snapshot; nothing in this module mutates them.
type Competition struct {
	ID             string         `json:"id" yaml:"id" validate:"required"`
	Title          string         `json:"title" yaml:"title" validate:"required"`
	Description    string         `json:"description" yaml:"description"`
	Category       string         `json:"category" yaml:"category" validate:"required"` // coding_contests | data_science | hackathons | ...
	Platform       string         `json:"platform" yaml:"platform"`
	StartDate      time.Time      `json:"startDate" yaml:"-" validate:"required"` // operative deadline for urgency
	EndDate        *time.Time     `json:"endDate,omitempty" yaml:"-"`
	Difficulty     string         `json:"difficulty" yaml:"difficulty"` // beginner | intermediate | advanced | expert | mixed
	TimeCommitment TimeCommitment `json:"timeCommitment" yaml:"time_commitment" validate:"omitempty,oneof=low medium high"`
	Prize          *Prize         `json:"prize,omitempty" yaml:"prize"`
	Tags           []string       `json:"tags" yaml:"tags"`
	TeamSize       string         `json:"teamSize,omitempty" yaml:"team_size"`
	Link           string         `json:"link,omitempty" yaml:"link" validate:"omitempty,url"`

	// Career relevance
	RecruitmentPotential bool     `json:"recruitmentPotential,omitempty" yaml:"recruitment_potential"`
	PortfolioValue       int      `json:"portfolioValue,omitempty" yaml:"portfolio_value" validate:"gte=0,lte=100"`
	Company              string   `json:"company,omitempty" yaml:"company"`
	Location             string   `json:"location,omitempty" yaml:"location"`
	SkillsRequired       []string `json:"skillsRequired,omitempty" yaml:"skills_required"`
}

// CatalogQuery is the server-side prefilter applied when reading the catalog from storage.
// Zero values mean "no constraint".
type CatalogQuery struct {
	Category        string
	Difficulty      string
	TimeCommitment  string
	Platform        string
	Search          string
	RecruitmentOnly bool
	Limit           int
	Offset          int
}

// Stats summarises a competition set
type Stats struct {
	Total        int            `json:"total"`
	ByCategory   map[string]int `json:"byCategory"`
	ByDifficulty map[string]int `json:"byDifficulty"`
	ByPlatform   map[string]int `json:"byPlatform"`
}
