// Package seatmap expands a compact grid specification into a concrete
// seat collection. Generation is pure: it never touches storage, the
// caller persists the result.
package seatmap

import (
    "fmt"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// MaxGridDim bounds rows and columns to cap the size of a generated
// map (200×200 = 40k seats).
const MaxGridDim = 200

// SpecError reports an invalid grid specification. Callers can use
// errors.As to distinguish bad input from other failures.
type SpecError struct {
    Msg string
}

func (e *SpecError) Error() string { return e.Msg }

func specErrorf(format string, args ...any) *SpecError {
    return &SpecError{Msg: fmt.Sprintf(format, args...)}
}

// TierPrice pairs a tier label with its price.
type TierPrice struct {
    Tier       string `json:"tier"`
    PriceCents uint32 `json:"price_cents"`
}

// RowRule overrides the tier/price for the rows it lists. Rules are
// applied in array order; when two rules list the same row, the last
// one wins.
type RowRule struct {
    Rows       []int  `json:"rows"`
    Tier       string `json:"tier"`
    PriceCents uint32 `json:"price_cents"`
}

// GridSpec is the compact description of a rectangular seat map.
type GridSpec struct {
    Rows    int           `json:"rows"`
    Cols    int           `json:"cols"`
    Default TierPrice     `json:"default"`
    Rules   []RowRule     `json:"rules,omitempty"`
    Blocked []model.Coord `json:"blocked_seats,omitempty"`
}

// BuildGridSeats materializes the grid into a flat AVAILABLE seat list
// in row-major order. Every row starts from the default tier/price,
// rules overwrite per row in array order, and blocked coordinates are
// skipped. Validation is all-or-nothing: any out-of-range dimension,
// rule row or blocked coordinate fails the whole call before a single
// seat is produced.
func BuildGridSeats(spec GridSpec) ([]model.Seat, error) {
    if spec.Rows < 1 || spec.Rows > MaxGridDim {
        return nil, specErrorf("rows must be between 1 and %d, got %d", MaxGridDim, spec.Rows)
    }
    if spec.Cols < 1 || spec.Cols > MaxGridDim {
        return nil, specErrorf("cols must be between 1 and %d, got %d", MaxGridDim, spec.Cols)
    }
    if spec.Default.Tier == "" {
        return nil, specErrorf("default tier is required")
    }
    // Seed every row with the default, then let each rule overwrite
    // the rows it names. Later rules win because they write last.
    byRow := make(map[int]TierPrice, spec.Rows)
    for row := 1; row <= spec.Rows; row++ {
        byRow[row] = spec.Default
    }
    for i, rule := range spec.Rules {
        if rule.Tier == "" {
            return nil, specErrorf("rule %d: tier is required", i)
        }
        for _, row := range rule.Rows {
            if row < 1 || row > spec.Rows {
                return nil, specErrorf("rule %d: row %d out of range 1..%d", i, row, spec.Rows)
            }
            byRow[row] = TierPrice{Tier: rule.Tier, PriceCents: rule.PriceCents}
        }
    }
    blocked := make(map[model.Coord]struct{}, len(spec.Blocked))
    for _, c := range spec.Blocked {
        if c.X < 1 || c.X > spec.Rows || c.Y < 1 || c.Y > spec.Cols {
            return nil, specErrorf("blocked seat (%d,%d) out of range %dx%d", c.X, c.Y, spec.Rows, spec.Cols)
        }
        blocked[c] = struct{}{}
    }
    seats := make([]model.Seat, 0, spec.Rows*spec.Cols-len(blocked))
    for row := 1; row <= spec.Rows; row++ {
        tp := byRow[row]
        for col := 1; col <= spec.Cols; col++ {
            if _, skip := blocked[model.Coord{X: row, Y: col}]; skip {
                continue
            }
            seats = append(seats, model.Seat{
                X:          row,
                Y:          col,
                Tier:       tp.Tier,
                PriceCents: tp.PriceCents,
                Status:     model.SeatAvailable,
            })
        }
    }
    return seats, nil
}
