// AngelaMos | 2026
// entity.go

package payment

import (
	"time"
)

const StatusSuccess = "success"

type Payment struct {
	ID          int64      `db:"id"`
	Status      string     `db:"status"`
	Pay         int64      `db:"pay"`
	PaymentType string     `db:"payment_type"`
	Gender      string     `db:"gender"`
	ContentID   *int64     `db:"content_id"`
	CompletedAt *time.Time `db:"completed_at"`
}

func (p Payment) Completed() bool {
	return p.Status == StatusSuccess
}
