package storage

import (
	"math"
	"sort"
	"strings"
)

// RecordFilter narrows a record listing. Empty fields match everything.
type RecordFilter struct {
	Domain   string
	Status   string
	Type     string
	DateFrom string
	DateTo   string
}

// FilterRecords returns matching records, newest published first. Deleted
// records are only returned when Status asks for them.
func FilterRecords(rows []Record, f RecordFilter) []Record {
	out := make([]Record, 0, len(rows))

	for _, r := range rows {
		if f.Status == "" {
			if r.Status == StatusDeleted {
				continue
			}
		} else if !strings.EqualFold(r.Status, f.Status) {
			continue
		}

		if f.Domain != "" && !hasDomain(r, f.Domain) {
			continue
		}
		if f.Type != "" && !strings.EqualFold(r.Type, f.Type) {
			continue
		}
		// Dates are RFC 3339 in UTC, so lexical order is chronological order.
		if f.DateFrom != "" && r.PublishedDate < f.DateFrom {
			continue
		}
		if f.DateTo != "" && r.PublishedDate > f.DateTo {
			continue
		}

		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedDate > out[j].PublishedDate
	})

	return out
}

func hasDomain(r Record, domain string) bool {
	for _, d := range recordDomains(r) {
		if strings.EqualFold(d, domain) {
			return true
		}
	}
	return false
}

// recordDomains falls back to the primary domain for rows without a domains value.
func recordDomains(r Record) []string {
	if r.Domains != "" {
		return r.DomainList()
	}
	return SplitList(r.Domain)
}

type Summary struct {
	TotalEntries int                `json:"total_entries"`
	TotalHours   float64            `json:"total_hours"`
	ByDomain     map[string]float64 `json:"by_domain"`
	ByStatus     map[string]int     `json:"by_status"`
	ByType       map[string]int     `json:"by_type"`
}

// Summarize aggregates all non-deleted records. A record tagged with several
// domains counts its full hours toward each of them.
func Summarize(rows []Record) Summary {
	s := Summary{
		ByDomain: map[string]float64{},
		ByStatus: map[string]int{},
		ByType:   map[string]int{},
	}

	total := 0.0
	for _, r := range rows {
		if r.Status == StatusDeleted {
			continue
		}

		hours := r.Hours()
		s.TotalEntries++
		total += hours

		domains := recordDomains(r)
		if len(domains) == 0 {
			domains = []string{"Unknown"}
		}
		for _, d := range domains {
			s.ByDomain[d] += hours
		}

		s.ByStatus[r.Status]++
		s.ByType[r.Type]++
	}

	s.TotalHours = math.Round(total*10) / 10
	for d, h := range s.ByDomain {
		s.ByDomain[d] = math.Round(h*100) / 100
	}

	return s
}
