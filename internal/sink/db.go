package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"skyflip/internal/models"
	"skyflip/internal/repository"
)

// DBSink persists each candidate as a flip_candidates row.
type DBSink struct {
	Repo repository.FlipRepository
}

func (s *DBSink) Accept(ctx context.Context, cycleID string, candidates []models.FlipCandidate) error {
	if s == nil || s.Repo == nil || len(candidates) == 0 {
		return nil
	}
	rows := make([]models.FlipRecord, 0, len(candidates))
	for _, c := range candidates {
		row, err := ToFlipRecord(cycleID, c)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return s.Repo.InsertFlipRecords(ctx, rows)
}

// ToFlipRecord stores the quote that made the candidate eligible as JSON next to the
// edge ratio.
func ToFlipRecord(cycleID string, c models.FlipCandidate) (models.FlipRecord, error) {
	var quote any
	switch {
	case c.Bazaar != nil:
		quote = c.Bazaar
	case c.Auction != nil:
		quote = c.Auction
	default:
		return models.FlipRecord{}, fmt.Errorf("candidate %s has no quote", c.ItemID)
	}
	raw, err := json.Marshal(quote)
	if err != nil {
		return models.FlipRecord{}, err
	}
	return models.FlipRecord{
		CycleID:   cycleID,
		ItemID:    c.ItemID,
		Kind:      string(c.Kind),
		SourceKey: c.SourceKey,
		EdgeRatio: decimal.NewFromFloat(c.EdgeRatio).Round(10),
		Quote:     datatypes.JSON(raw),
	}, nil
}

// FromFlipRecord rebuilds a candidate from a stored row.
func FromFlipRecord(r models.FlipRecord) (models.FlipCandidate, error) {
	c := models.FlipCandidate{
		ItemID:    r.ItemID,
		Kind:      models.QuoteKind(r.Kind),
		SourceKey: r.SourceKey,
		EdgeRatio: r.EdgeRatio.InexactFloat64(),
	}
	switch c.Kind {
	case models.QuoteKindBazaar:
		var q models.BazaarQuote
		if err := json.Unmarshal(r.Quote, &q); err != nil {
			return c, fmt.Errorf("decode bazaar quote %d: %w", r.ID, err)
		}
		c.Bazaar = &q
	case models.QuoteKindAuction:
		var q models.AuctionQuote
		if err := json.Unmarshal(r.Quote, &q); err != nil {
			return c, fmt.Errorf("decode auction quote %d: %w", r.ID, err)
		}
		c.Auction = &q
	}
	return c, nil
}
