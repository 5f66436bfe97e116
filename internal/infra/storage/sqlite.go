// Package storage persists emitted events to a local SQLite database for
// later inspection. It is an output sink: the simulation never reads its own
// state back from here.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketsim/internal/event"
)

// QuoteRecord is the persisted form of a quote event.
type QuoteRecord struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Seq           uint64          `gorm:"index" json:"seq"`
	Symbol        string          `gorm:"index" json:"symbol"`
	Timestamp     time.Time       `json:"timestamp"`
	Bid           decimal.Decimal `gorm:"type:text" json:"bid"`
	Ask           decimal.Decimal `gorm:"type:text" json:"ask"`
	Last          decimal.Decimal `gorm:"type:text" json:"last"`
	Volume        int64           `json:"volume"`
	ChangePercent decimal.Decimal `gorm:"type:text" json:"change_percent"`
}

// TradeRecord is the persisted form of a trade event.
type TradeRecord struct {
	ID        string          `gorm:"primaryKey" json:"id"`
	Seq       uint64          `gorm:"index" json:"seq"`
	Symbol    string          `gorm:"index" json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `gorm:"type:text" json:"price"`
	Size      int64           `json:"size"`
	Side      string          `json:"side"`
	Exchange  string          `json:"exchange"`
}

// Journal is the SQLite-backed event sink.
type Journal struct {
	db *gorm.DB
}

// NewJournal opens (creating if needed) the journal database at path.
func NewJournal(path string) (*Journal, error) {
	if path == "" {
		path = filepath.Join("data", "marketsim.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if err := db.AutoMigrate(&QuoteRecord{}, &TradeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// SaveQuote persists one quote event.
func (j *Journal) SaveQuote(ev *event.QuoteEvent) error {
	q := ev.Quote
	return j.db.Create(&QuoteRecord{
		Seq:           ev.Seq,
		Symbol:        q.Symbol,
		Timestamp:     q.Timestamp,
		Bid:           q.Bid,
		Ask:           q.Ask,
		Last:          q.Last,
		Volume:        q.Volume,
		ChangePercent: q.ChangePercent,
	}).Error
}

// SaveTrade persists one trade event.
func (j *Journal) SaveTrade(ev *event.TradeEvent) error {
	t := ev.Trade
	return j.db.Create(&TradeRecord{
		ID:        t.ID,
		Seq:       ev.Seq,
		Symbol:    t.Symbol,
		Timestamp: t.Timestamp,
		Price:     t.Price,
		Size:      t.Size,
		Side:      string(t.Side),
		Exchange:  t.Exchange,
	}).Error
}

// RecentQuotes returns the latest limit quote records for symbol, newest first.
func (j *Journal) RecentQuotes(symbol string, limit int) ([]QuoteRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []QuoteRecord
	err := j.db.Where("symbol = ?", symbol).Order("seq desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// RecentTrades returns the latest limit trade records for symbol, newest first.
func (j *Journal) RecentTrades(symbol string, limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []TradeRecord
	err := j.db.Where("symbol = ?", symbol).Order("seq desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// Run consumes a subscription, persisting quotes and trades until the
// context ends or the channel closes. Write failures are returned to the
// caller when the loop exits; the stream itself is never blocked on retry.
func (j *Journal) Run(ctx context.Context, sub *event.Subscription) error {
	var lastErr error
	for {
		select {
		case <-ctx.Done():
			return lastErr
		case ev, ok := <-sub.Events():
			if !ok {
				return lastErr
			}
			switch e := ev.(type) {
			case *event.QuoteEvent:
				if err := j.SaveQuote(e); err != nil {
					lastErr = err
				}
			case *event.TradeEvent:
				if err := j.SaveTrade(e); err != nil {
					lastErr = err
				}
			}
		}
	}
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
