package service

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/meditrack/meditrack-backend/internal/inventory/repository"
	"golang.org/x/text/unicode/norm"
)

// CategoryMultiple is the category shown when a group's batches disagree.
const CategoryMultiple = "Multiple"

// AggregatedRow is one display row of a branch inventory: every active batch
// whose medicine name normalizes to the same key, folded together.
type AggregatedRow struct {
	Key            string                    `json:"-"`
	MedicineID     string                    `json:"medicine_id,omitempty"`
	MedicineName   string                    `json:"medicine_name"`
	Category       string                    `json:"category"`
	TotalQuantity  int                       `json:"total_quantity"`
	DateReceived   time.Time                 `json:"date_received"`
	ExpirationDate time.Time                 `json:"expiration_date"`
	Batches        []*repository.StockBatch  `json:"batches"`
}

// NormalizeName produces the grouping key for a medicine name: NFKC-folded,
// lowercased, punctuation stripped, whitespace collapsed. "Paracetamol,
// 500mg" and "paracetamol 500MG" share a key.
func NormalizeName(name string) string {
	folded := norm.NFKC.String(name)
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range folded {
		switch {
		case unicode.IsPunct(r):
			// stripped entirely, not turned into a space
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Aggregate folds batches into per-medicine rows keyed by normalized name.
// The fold is order-independent: totals, categories, and date bounds depend
// only on the set of batches, never on input order. Rows come back soonest
// expiration first; batches inside a row likewise.
func Aggregate(batches []*repository.StockBatch) []AggregatedRow {
	groups := make(map[string]*AggregatedRow)

	for _, batch := range batches {
		key := NormalizeName(batch.MedicineName)

		row, ok := groups[key]
		if !ok {
			groups[key] = &AggregatedRow{
				Key:            key,
				MedicineID:     batch.MedicineID,
				MedicineName:   batch.MedicineName,
				Category:       batch.Category,
				TotalQuantity:  batch.Quantity,
				DateReceived:   batch.DateReceived,
				ExpirationDate: batch.ExpirationDate,
				Batches:        []*repository.StockBatch{batch},
			}
			continue
		}

		row.TotalQuantity += batch.Quantity
		row.Batches = append(row.Batches, batch)
		if batch.DateReceived.After(row.DateReceived) {
			row.DateReceived = batch.DateReceived
		}
		if batch.ExpirationDate.Before(row.ExpirationDate) {
			row.ExpirationDate = batch.ExpirationDate
		}
		if batch.Category != row.Category {
			row.Category = CategoryMultiple
		}
		if batch.MedicineID != row.MedicineID {
			row.MedicineID = ""
		}
		// Deterministic display name whatever the input order.
		if batch.MedicineName < row.MedicineName {
			row.MedicineName = batch.MedicineName
		}
	}

	rows := make([]AggregatedRow, 0, len(groups))
	for _, row := range groups {
		sort.Slice(row.Batches, func(i, j int) bool {
			if row.Batches[i].ExpirationDate.Equal(row.Batches[j].ExpirationDate) {
				return row.Batches[i].ID < row.Batches[j].ID
			}
			return row.Batches[i].ExpirationDate.Before(row.Batches[j].ExpirationDate)
		})
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ExpirationDate.Equal(rows[j].ExpirationDate) {
			return rows[i].Key < rows[j].Key
		}
		return rows[i].ExpirationDate.Before(rows[j].ExpirationDate)
	})
	return rows
}

// PickFEFO returns the default batch to dispense from: the one expiring
// soonest (first-expire-first-out). Batches already emptied are skipped.
// Returns nil when nothing is dispensable.
func PickFEFO(batches []*repository.StockBatch) *repository.StockBatch {
	var pick *repository.StockBatch
	for _, batch := range batches {
		if batch.Quantity <= 0 {
			continue
		}
		if pick == nil ||
			batch.ExpirationDate.Before(pick.ExpirationDate) ||
			(batch.ExpirationDate.Equal(pick.ExpirationDate) && batch.ID < pick.ID) {
			pick = batch
		}
	}
	return pick
}
