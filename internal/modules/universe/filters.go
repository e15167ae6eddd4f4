package universe

import (
	"strings"

	"github.com/aristath/carbonscreen/internal/domain"
)

// DefaultStatuses are the registry statuses screened by default
var DefaultStatuses = []string{"Registered", "Under Development", "Registration Requested"}

// FilterOptions restrict the screened universe. Zero values accept everything.
type FilterOptions struct {
	Statuses     []string // Case-insensitive; an empty record status is always accepted
	ProjectTypes []string // Raw labels or canonical names, matched after canonicalisation
	MinCredits   int64    // Minimum credits issued
}

// filter is FilterOptions compiled for lookup
type filter struct {
	statuses   map[string]bool
	types      map[domain.ProjectType]bool
	minCredits int64
}

func (o FilterOptions) compile() filter {
	f := filter{minCredits: o.MinCredits}
	if len(o.Statuses) > 0 {
		f.statuses = make(map[string]bool, len(o.Statuses))
		for _, s := range o.Statuses {
			f.statuses[normalizeStatus(s)] = true
		}
	}
	if len(o.ProjectTypes) > 0 {
		f.types = make(map[domain.ProjectType]bool, len(o.ProjectTypes))
		for _, t := range o.ProjectTypes {
			f.types[domain.ParseProjectType(t)] = true
		}
	}
	return f
}

func (f filter) accept(r domain.ProjectRecord) bool {
	if f.statuses != nil && r.Status != "" && !f.statuses[normalizeStatus(r.Status)] {
		return false
	}
	if f.types != nil && !f.types[r.Type] {
		return false
	}
	return r.Issued >= f.minCredits
}

// ApplyFilters returns the accepted records in input order and the number rejected
func ApplyFilters(records []domain.ProjectRecord, opts FilterOptions) ([]domain.ProjectRecord, int) {
	f := opts.compile()
	kept := make([]domain.ProjectRecord, 0, len(records))
	for _, r := range records {
		if f.accept(r) {
			kept = append(kept, r)
		}
	}
	return kept, len(records) - len(kept)
}

func normalizeStatus(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
