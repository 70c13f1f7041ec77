// AngelaMos | 2026
// dto.go

package payment

import (
	"time"
)

// KST is the business day boundary for filters and the daily series.
var KST = time.FixedZone("KST", 9*60*60)

type StatsFilter struct {
	From      *time.Time
	To        *time.Time
	ContentID *int64
}

type Totals struct {
	Count  int   `json:"count"`
	Amount int64 `json:"amount"`
}

type Breakdown struct {
	Key    string `json:"key"`
	Label  string `json:"label,omitempty"`
	Count  int    `json:"count"`
	Amount int64  `json:"amount"`
}

type DailyPoint struct {
	Date            string `json:"date"`
	Count           int    `json:"count"`
	Amount          int64  `json:"amount"`
	CompletedCount  int    `json:"completed_count"`
	CompletedAmount int64  `json:"completed_amount"`
}

type Stats struct {
	All           Totals       `json:"all"`
	Completed     Totals       `json:"completed"`
	ByPaymentType []Breakdown  `json:"by_payment_type"`
	ByGender      []Breakdown  `json:"by_gender"`
	ByContent     []Breakdown  `json:"by_content"`
	Daily         []DailyPoint `json:"daily"`
}
