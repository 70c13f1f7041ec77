// AngelaMos | 2026
// aggregate.go

package payment

import (
	"cmp"
	"slices"
	"strconv"
)

const unknownKey = "unknown"

// Aggregate summarizes payments. Breakdowns count completed payments only;
// the daily series carries both.
func Aggregate(rows []Payment, contentNames map[int64]string) Stats {
	stats := Stats{
		ByPaymentType: []Breakdown{},
		ByGender:      []Breakdown{},
		ByContent:     []Breakdown{},
		Daily:         []DailyPoint{},
	}

	byType := map[string]*Breakdown{}
	byGender := map[string]*Breakdown{}
	byContent := map[string]*Breakdown{}
	daily := map[string]*DailyPoint{}

	for _, p := range rows {
		stats.All.Count++
		stats.All.Amount += p.Pay

		if p.CompletedAt != nil {
			day := p.CompletedAt.In(KST).Format("2006-01-02")
			point, ok := daily[day]
			if !ok {
				point = &DailyPoint{Date: day}
				daily[day] = point
			}
			point.Count++
			point.Amount += p.Pay
			if p.Completed() {
				point.CompletedCount++
				point.CompletedAmount += p.Pay
			}
		}

		if !p.Completed() {
			continue
		}

		stats.Completed.Count++
		stats.Completed.Amount += p.Pay

		bump(byType, keyOrUnknown(p.PaymentType), "", p.Pay)
		bump(byGender, keyOrUnknown(p.Gender), "", p.Pay)

		contentKey, label := unknownKey, ""
		if p.ContentID != nil {
			contentKey = strconv.FormatInt(*p.ContentID, 10)
			label = contentNames[*p.ContentID]
		}
		bump(byContent, contentKey, label, p.Pay)
	}

	stats.ByPaymentType = sortedBreakdowns(byType)
	stats.ByGender = sortedBreakdowns(byGender)
	stats.ByContent = sortedBreakdowns(byContent)

	for _, point := range daily {
		stats.Daily = append(stats.Daily, *point)
	}
	slices.SortFunc(stats.Daily, func(a, b DailyPoint) int {
		return cmp.Compare(a.Date, b.Date)
	})

	return stats
}

// ContentIDs returns the distinct content ids referenced by rows.
func ContentIDs(rows []Payment) []int64 {
	seen := map[int64]struct{}{}
	ids := []int64{}
	for _, p := range rows {
		if p.ContentID == nil {
			continue
		}
		if _, ok := seen[*p.ContentID]; ok {
			continue
		}
		seen[*p.ContentID] = struct{}{}
		ids = append(ids, *p.ContentID)
	}
	slices.Sort(ids)
	return ids
}

func bump(m map[string]*Breakdown, key, label string, amount int64) {
	b, ok := m[key]
	if !ok {
		b = &Breakdown{Key: key, Label: label}
		m[key] = b
	}
	b.Count++
	b.Amount += amount
}

func sortedBreakdowns(m map[string]*Breakdown) []Breakdown {
	out := make([]Breakdown, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b Breakdown) int {
		if c := cmp.Compare(b.Amount, a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}

func keyOrUnknown(s string) string {
	if s == "" {
		return unknownKey
	}
	return s
}
