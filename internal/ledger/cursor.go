package ledger

import (
	"context"
	"sync"

	"messbook/internal/models"
	"messbook/internal/storage"
)

// DefaultPageSize is the cursor page size when none is given.
const DefaultPageSize = 20

// Cursor is a keyset-pagination cursor over a mess's transactions, ordered
// by date then id, both descending. Fetches are read-only and take no locks
// in the store. A Cursor instance is not reentrant: Reload and LoadMore must
// not be invoked concurrently by the caller.
type Cursor struct {
	store    storage.Store
	messID   string
	pageSize int

	mu       sync.Mutex
	items    []*models.Transaction
	inFlight bool
	done     bool
}

// NewCursor creates a cursor for a mess's ledger. It holds no data until the
// first Reload.
func (s *Service) NewCursor(messID string, pageSize int) *Cursor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Cursor{store: s.store, messID: messID, pageSize: pageSize}
}

// Items returns a snapshot of the currently held result set. Readers never
// observe a half-replaced list.
func (c *Cursor) Items() []*models.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.Transaction, len(c.items))
	copy(out, c.items)
	return out
}

// Reload discards any cursor state and fetches page one. The held result set
// is replaced atomically; a failed fetch leaves prior state unchanged and
// surfaces the error.
func (c *Cursor) Reload(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil
	}
	c.inFlight = true
	c.mu.Unlock()

	page, err := c.store.ListTransactionsPage(ctx, c.messID, storage.Page{Limit: c.pageSize})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err != nil {
		return err
	}
	c.items = page
	c.done = len(page) < c.pageSize
	return nil
}

// LoadMore fetches the next page after the last held record and appends it.
// It is a no-op while a fetch is already in flight or once the prior page
// came back short (end of data).
func (c *Cursor) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight || c.done || len(c.items) == 0 {
		c.mu.Unlock()
		return nil
	}
	c.inFlight = true
	last := c.items[len(c.items)-1]
	c.mu.Unlock()

	page, err := c.store.ListTransactionsPage(ctx, c.messID, storage.Page{
		AfterDate: last.Date,
		AfterID:   last.ID,
		Limit:     c.pageSize,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err != nil {
		return err
	}
	c.items = append(c.items, page...)
	c.done = len(page) < c.pageSize
	return nil
}
