package ingest

import (
	"context"
	"sync"
	"time"

	"signal-trade-bot-go/internal/market"
	"signal-trade-bot-go/internal/models"
	"signal-trade-bot-go/internal/signal"

	"go.uber.org/zap"
)

// Message is one chat message handed to the pipeline by the host's
// chat layer. The group fields are empty for direct messages.
type Message struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	GroupID    string    `json:"group_id"`
	GroupTitle string    `json:"group_title"`
	GroupType  string    `json:"group_type"`
	Text       string    `json:"text"`
	At         time.Time `json:"at"`
}

// TradeOpener is the paper-trade entry point fed by the pipeline.
type TradeOpener interface {
	ProcessScan(ctx context.Context, scan *models.Scan)
}

// MetadataLookup is the best-effort token enrichment collaborator.
type MetadataLookup interface {
	LookupTokenMetadata(ctx context.Context, address string) (*market.TokenMetadata, error)
}

// PriceLookup captures the reference price of a ticker at scan time.
type PriceLookup interface {
	LookupPrice(ctx context.Context, ticker string) (float64, error)
}

// Pipeline turns incoming messages into scan records. Scans are
// written synchronously in arrival order; enrichment and the trade
// open path run asynchronously per scan, since each works on its own
// freshly created record.
type Pipeline struct {
	logger    *zap.Logger
	extractor *signal.Extractor
	scans     ScanStore
	directory Directory
	metadata  MetadataLookup
	prices    PriceLookup
	trader    TradeOpener

	wg sync.WaitGroup
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(logger *zap.Logger, extractor *signal.Extractor, scans ScanStore, directory Directory,
	metadata MetadataLookup, prices PriceLookup, trader TradeOpener) *Pipeline {
	return &Pipeline{
		logger:    logger,
		extractor: extractor,
		scans:     scans,
		directory: directory,
		metadata:  metadata,
		prices:    prices,
		trader:    trader,
	}
}

// HandleMessage records one scan per extracted signal occurrence and
// kicks off the async enrichment and trade-open work for each. A
// message without signals is a silent no-op. A failure persisting one
// scan does not stop the siblings from the same message.
func (p *Pipeline) HandleMessage(ctx context.Context, msg Message) {
	signals := p.extractor.Extract(msg.Text)
	if len(signals) == 0 {
		return
	}

	p.logger.Debug("Found signals",
		zap.String("user_id", msg.UserID),
		zap.Int("count", len(signals)))

	if err := p.directory.UpsertUser(ctx, &models.User{
		TelegramID: msg.UserID,
		Username:   msg.Username,
		FirstName:  msg.FirstName,
	}); err != nil {
		p.logger.Error("Failed to upsert user", zap.String("user_id", msg.UserID), zap.Error(err))
		// Scans are still worth recording.
	}

	if msg.GroupID != "" {
		if err := p.directory.UpsertGroup(ctx, &models.Group{
			TelegramID: msg.GroupID,
			Title:      msg.GroupTitle,
			Type:       msg.GroupType,
		}); err != nil {
			p.logger.Error("Failed to upsert group", zap.String("group_id", msg.GroupID), zap.Error(err))
		}
	}

	capturedAt := msg.At
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	for _, sig := range signals {
		scan := &models.Scan{
			UserID:          msg.UserID,
			GroupID:         msg.GroupID,
			Ticker:          sig.Ticker,
			ContractAddress: sig.ContractAddress,
			CapturedAt:      capturedAt.Unix(),
		}
		if err := p.scans.CreateScan(ctx, scan); err != nil {
			p.logger.Error("Failed to persist scan",
				zap.String("user_id", msg.UserID), zap.Error(err))
			continue
		}

		p.wg.Add(1)
		go func(scan *models.Scan) {
			defer p.wg.Done()
			p.processScan(ctx, scan)
		}(scan)
	}
}

// processScan is the async half: enrichment, then the trade gate.
func (p *Pipeline) processScan(ctx context.Context, scan *models.Scan) {
	if scan.ContractAddress != "" {
		p.enrichAddress(ctx, scan)
		return
	}

	p.capturePrice(ctx, scan)
	p.trader.ProcessScan(ctx, scan)
}

// enrichAddress fills market cap, liquidity and pair age. Absence of
// enrichment never blocks or fails the scan itself.
func (p *Pipeline) enrichAddress(ctx context.Context, scan *models.Scan) {
	meta, err := p.metadata.LookupTokenMetadata(ctx, scan.ContractAddress)
	if err != nil {
		p.logger.Debug("Token enrichment unavailable",
			zap.String("address", scan.ContractAddress), zap.Error(err))
		return
	}

	if err := p.scans.SetEnrichment(ctx, scan.ID, meta); err != nil {
		p.logger.Warn("Failed to store enrichment",
			zap.Uint("scan_id", scan.ID), zap.Error(err))
		return
	}

	scan.MarketCap = meta.MarketCap
	scan.Liquidity = meta.Liquidity
	scan.PairAge = meta.PairAge
}

// capturePrice records the ticker's reference price at scan time, the
// anchor later used to score the scan's outcome.
func (p *Pipeline) capturePrice(ctx context.Context, scan *models.Scan) {
	price, err := p.prices.LookupPrice(ctx, scan.Ticker)
	if err != nil {
		p.logger.Debug("Capture price unavailable",
			zap.String("ticker", scan.Ticker), zap.Error(err))
		return
	}

	if err := p.scans.SetPriceAtCapture(ctx, scan.ID, price); err != nil {
		p.logger.Warn("Failed to store capture price",
			zap.Uint("scan_id", scan.ID), zap.Error(err))
		return
	}

	scan.PriceAtCapture = price
}

// Wait blocks until all in-flight per-scan work has finished. Used on
// shutdown and in tests.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
