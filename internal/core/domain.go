package core

import (
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const (
	StatusPending  InitiativeStatus = "PENDING"
	StatusApproved InitiativeStatus = "APPROVED"
	StatusRejected InitiativeStatus = "REJECTED"
)

const (
	DifficultyEasy   Difficulty = 1
	DifficultyMedium Difficulty = 2
	DifficultyHard   Difficulty = 3
)

// DefaultTotalBudget is the budget a fresh brand profile starts with.
const DefaultTotalBudget = 50000

const (
	maxNameLength = 200
	maxTextLength = 2000

	benchmarkIDPrefix  = "BM-"
	initiativeIDPrefix = "IN-"
)

// ChannelSuggestions are offered when a channel is added to a brand profile.
var ChannelSuggestions = []string{
	"Digital Advertising",
	"Digital Publishing",
	"Event Activations",
	"News, Press, Media",
	"Outbound Sales",
	"Print Advertising",
	"Referrals & Partnerships",
	"Product Experience",
	"Retail",
	"Social Media",
}

type (
	InitiativeStatus string

	Difficulty int

	BrandProfile struct {
		Name        string   `json:"name" yaml:"name"`
		TotalBudget float64  `json:"total_budget" yaml:"total_budget"`
		Personnel   []string `json:"personnel" yaml:"personnel"`
		Products    string   `json:"products" yaml:"products"`
		Industry    string   `json:"industry" yaml:"industry"`
		Segments    []string `json:"segments" yaml:"segments"`
		Channels    []string `json:"channels" yaml:"channels"`
		Logo        string   `json:"logo,omitempty" yaml:"logo,omitempty"`
	}

	Benchmark struct {
		ID          string       `json:"id"`
		Title       string       `json:"title"`
		Timeline    string       `json:"timeline"`
		MetricName  string       `json:"metric_name"`
		Benchmark   string       `json:"benchmark"`
		Goal        string       `json:"goal"`
		Notes       string       `json:"notes"`
		Expanded    bool         `json:"expanded"`
		Initiatives []Initiative `json:"initiatives"`
	}

	// Initiative is a planned action under a benchmark. Its budget share is
	// held by the owning scorecard's initiative ledger, keyed by ID.
	Initiative struct {
		ID         string           `json:"id"`
		Name       string           `json:"name"`
		Difficulty Difficulty       `json:"difficulty"`
		Personnel  []string         `json:"personnel"`
		Status     InitiativeStatus `json:"status"`
	}

	// GeneratedInitiative is a suggestion produced by an initiative generator.
	GeneratedInitiative struct {
		Name       string     `json:"name"`
		Cost       float64    `json:"cost"`
		Difficulty Difficulty `json:"difficulty"`
		Personnel  []string   `json:"personnel"`
	}
)

var (
	ErrEmptyName         = errors.New("empty name")
	ErrNameTooLong       = errors.New("name too long (max 200 characters)")
	ErrTextTooLong       = errors.New("text too long (max 2000 characters)")
	ErrInvalidStatus     = errors.New("invalid initiative status")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrUnknownChannel    = errors.New("unknown channel")
	ErrUnknownBenchmark  = errors.New("unknown benchmark")
	ErrUnknownInitiative = errors.New("unknown initiative")
)

// NewBrandProfile returns a profile with the default budget and empty lists.
func NewBrandProfile() BrandProfile {
	return BrandProfile{
		TotalBudget: DefaultTotalBudget,
		Personnel:   []string{},
		Segments:    []string{},
		Channels:    []string{},
	}
}

// NewBenchmark returns a collapsed benchmark with a fresh ID.
func NewBenchmark() Benchmark {
	return Benchmark{
		ID:          benchmarkIDPrefix + uuid.NewString(),
		Title:       "New Benchmark",
		Initiatives: []Initiative{},
	}
}

// NewInitiative returns a pending, easy initiative with a fresh ID.
func NewInitiative() Initiative {
	return Initiative{
		ID:         initiativeIDPrefix + uuid.NewString(),
		Difficulty: DifficultyEasy,
		Personnel:  []string{},
		Status:     StatusPending,
	}
}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (InitiativeStatus, error) {
	st := InitiativeStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

func (s InitiativeStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

func (d Difficulty) Valid() bool {
	return d >= DifficultyEasy && d <= DifficultyHard
}

// ClampDifficulty bounds d to the supported range.
func ClampDifficulty(d Difficulty) Difficulty {
	return min(max(d, DifficultyEasy), DifficultyHard)
}

// AddItem appends a trimmed value to list unless it is blank or already present.
func AddItem(list []string, item string) ([]string, bool) {
	item = strings.TrimSpace(item)
	if item == "" || slices.Contains(list, item) {
		return list, false
	}
	return append(list, item), true
}

// RemoveItem drops every occurrence of item from list.
func RemoveItem(list []string, item string) ([]string, bool) {
	item = strings.TrimSpace(item)
	if !slices.Contains(list, item) {
		return list, false
	}
	return slices.DeleteFunc(slices.Clone(list), func(s string) bool { return s == item }), true
}

func (p BrandProfile) Validate() error {
	if len(p.Name) > maxNameLength {
		return ErrNameTooLong
	}
	if len(p.Products) > maxTextLength || len(p.Industry) > maxTextLength || len(p.Logo) > 1<<20 {
		return ErrTextTooLong
	}
	for _, list := range [][]string{p.Personnel, p.Segments, p.Channels} {
		for _, v := range list {
			if strings.TrimSpace(v) == "" {
				return ErrEmptyName
			}
			if len(v) > maxNameLength {
				return ErrNameTooLong
			}
		}
	}
	return nil
}

func (b Benchmark) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return ErrEmptyName
	}
	if len(b.Title) > maxNameLength || len(b.Timeline) > maxNameLength || len(b.MetricName) > maxNameLength {
		return ErrNameTooLong
	}
	if len(b.Benchmark) > maxTextLength || len(b.Goal) > maxTextLength || len(b.Notes) > maxTextLength {
		return ErrTextTooLong
	}
	for _, in := range b.Initiatives {
		if err := in.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate allows an empty name since new initiatives start blank.
func (i Initiative) Validate() error {
	if len(i.Name) > maxNameLength {
		return ErrNameTooLong
	}
	if !i.Difficulty.Valid() {
		return ErrInvalidDifficulty
	}
	if !i.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}
