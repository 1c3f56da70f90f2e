package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"signal-trade-bot-go/internal/market"
	"signal-trade-bot-go/internal/models"
	"signal-trade-bot-go/internal/signal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memScanStore struct {
	mu        sync.Mutex
	nextID    uint
	scans     []*models.Scan
	users     map[string]*models.User
	groups    map[string]*models.Group
	createErr error
}

func newMemScanStore() *memScanStore {
	return &memScanStore{
		nextID: 1,
		users:  make(map[string]*models.User),
		groups: make(map[string]*models.Group),
	}
}

func (s *memScanStore) CreateScan(_ context.Context, scan *models.Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	scan.ID = s.nextID
	s.nextID++
	copied := *scan
	s.scans = append(s.scans, &copied)
	return nil
}

func (s *memScanStore) SetEnrichment(_ context.Context, scanID uint, meta *market.TokenMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, scan := range s.scans {
		if scan.ID == scanID {
			scan.MarketCap = meta.MarketCap
			scan.Liquidity = meta.Liquidity
			scan.PairAge = meta.PairAge
			return nil
		}
	}
	return errors.New("scan not found")
}

func (s *memScanStore) SetPriceAtCapture(_ context.Context, scanID uint, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, scan := range s.scans {
		if scan.ID == scanID {
			scan.PriceAtCapture = price
			return nil
		}
	}
	return errors.New("scan not found")
}

func (s *memScanStore) ScansByUser(_ context.Context, userID string) ([]models.Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Scan
	for _, scan := range s.scans {
		if scan.UserID == userID {
			out = append(out, *scan)
		}
	}
	return out, nil
}

func (s *memScanStore) UpsertUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.TelegramID] = user
	return nil
}

func (s *memScanStore) UpsertGroup(_ context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group.TelegramID] = group
	return nil
}

func (s *memScanStore) all() []models.Scan {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Scan, 0, len(s.scans))
	for _, scan := range s.scans {
		out = append(out, *scan)
	}
	return out
}

type fakeMetadata struct {
	meta *market.TokenMetadata
	err  error
}

func (f *fakeMetadata) LookupTokenMetadata(_ context.Context, _ string) (*market.TokenMetadata, error) {
	return f.meta, f.err
}

type fakeTickerPrices struct {
	price float64
	err   error
}

func (f *fakeTickerPrices) LookupPrice(_ context.Context, _ string) (float64, error) {
	return f.price, f.err
}

type recordingTrader struct {
	mu    sync.Mutex
	scans []models.Scan
}

func (r *recordingTrader) ProcessScan(_ context.Context, scan *models.Scan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans = append(r.scans, *scan)
}

func (r *recordingTrader) all() []models.Scan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Scan(nil), r.scans...)
}

func newTestPipeline(store *memScanStore, metadata *fakeMetadata, prices *fakeTickerPrices, trader *recordingTrader) *Pipeline {
	return NewPipeline(zap.NewNop(), signal.NewExtractor(true, false), store, store, metadata, prices, trader)
}

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Ticker message records a scan and reaches the trader", func(t *testing.T) {
		store := newMemScanStore()
		trader := &recordingTrader{}
		p := newTestPipeline(store, &fakeMetadata{}, &fakeTickerPrices{price: 140}, trader)

		p.HandleMessage(ctx, Message{UserID: "42", Username: "alice", Text: "aping $SOL", At: at})
		p.Wait()

		scans := store.all()
		require.Len(t, scans, 1)
		assert.Equal(t, "$SOL", scans[0].Ticker)
		assert.Equal(t, "42", scans[0].UserID)
		assert.Equal(t, at.Unix(), scans[0].CapturedAt)
		assert.Equal(t, 140.0, scans[0].PriceAtCapture)

		require.Len(t, trader.all(), 1)
		assert.Contains(t, store.users, "42")
	})

	t.Run("Address scan is enriched, not traded", func(t *testing.T) {
		store := newMemScanStore()
		trader := &recordingTrader{}
		metadata := &fakeMetadata{meta: &market.TokenMetadata{
			MarketCap: 5e6, Liquidity: 2e5, PairAge: "3 days",
		}}
		p := newTestPipeline(store, metadata, &fakeTickerPrices{}, trader)

		p.HandleMessage(ctx, Message{UserID: "42", Text: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", At: at})
		p.Wait()

		scans := store.all()
		require.Len(t, scans, 1)
		assert.Equal(t, 5e6, scans[0].MarketCap)
		assert.Equal(t, "3 days", scans[0].PairAge)
		assert.Empty(t, trader.all())
	})

	t.Run("Enrichment failure does not block the scan", func(t *testing.T) {
		store := newMemScanStore()
		trader := &recordingTrader{}
		metadata := &fakeMetadata{err: errors.New("api down")}
		p := newTestPipeline(store, metadata, &fakeTickerPrices{}, trader)

		p.HandleMessage(ctx, Message{UserID: "42", Text: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", At: at})
		p.Wait()

		scans := store.all()
		require.Len(t, scans, 1)
		assert.Zero(t, scans[0].MarketCap)
	})

	t.Run("Every occurrence gets its own scan", func(t *testing.T) {
		store := newMemScanStore()
		trader := &recordingTrader{}
		p := newTestPipeline(store, &fakeMetadata{}, &fakeTickerPrices{price: 1}, trader)

		p.HandleMessage(ctx, Message{UserID: "42", Text: "$PEPE $PEPE", At: at})
		p.Wait()

		assert.Len(t, store.all(), 2)
		assert.Len(t, trader.all(), 2)
	})

	t.Run("Group message records the group", func(t *testing.T) {
		store := newMemScanStore()
		trader := &recordingTrader{}
		p := newTestPipeline(store, &fakeMetadata{}, &fakeTickerPrices{price: 1}, trader)

		p.HandleMessage(ctx, Message{
			UserID:     "42",
			GroupID:    "-1001",
			GroupTitle: "Alpha Calls",
			GroupType:  "supergroup",
			Text:       "$SOL",
			At:         at,
		})
		p.Wait()

		require.Contains(t, store.groups, "-1001")
		assert.Equal(t, "Alpha Calls", store.groups["-1001"].Title)
		assert.Equal(t, "supergroup", store.groups["-1001"].Type)
	})

	t.Run("Direct message records no group", func(t *testing.T) {
		store := newMemScanStore()
		trader := &recordingTrader{}
		p := newTestPipeline(store, &fakeMetadata{}, &fakeTickerPrices{price: 1}, trader)

		p.HandleMessage(ctx, Message{UserID: "42", Text: "$SOL", At: at})
		p.Wait()

		assert.Empty(t, store.groups)
	})

	t.Run("Message without signals is a no-op", func(t *testing.T) {
		store := newMemScanStore()
		trader := &recordingTrader{}
		p := newTestPipeline(store, &fakeMetadata{}, &fakeTickerPrices{}, trader)

		p.HandleMessage(ctx, Message{UserID: "42", Text: "gm", At: at})
		p.Wait()

		assert.Empty(t, store.all())
		assert.Empty(t, store.users)
	})

	t.Run("Capture price failure still trades", func(t *testing.T) {
		store := newMemScanStore()
		trader := &recordingTrader{}
		p := newTestPipeline(store, &fakeMetadata{}, &fakeTickerPrices{err: errors.New("feed down")}, trader)

		p.HandleMessage(ctx, Message{UserID: "42", Text: "$SOL", At: at})
		p.Wait()

		require.Len(t, store.all(), 1)
		assert.Zero(t, store.all()[0].PriceAtCapture)
		assert.Len(t, trader.all(), 1)
	})
}
