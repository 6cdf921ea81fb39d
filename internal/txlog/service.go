// Package txlog keeps the bounded audit log of handled mock requests.
package txlog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hcplat/mockapi/internal/models"
)

// DefaultMaxRecords is the retention cap applied when none is configured.
const DefaultMaxRecords = 1000

// Service records one transaction per inbound request and enforces the
// retention cap: the insert and the oldest-eviction happen under the same
// lock, so concurrent inserts can neither double-trim nor lose records.
type Service struct {
	mu          sync.RWMutex
	records     []*models.Transaction
	maxRecords  int
	nextSeq     uint64
	subscribers map[string]chan *models.Transaction
}

// NewService creates a transaction log with the given retention cap
func NewService(maxRecords int) *Service {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}

	return &Service{
		records:     make([]*models.Transaction, 0),
		maxRecords:  maxRecords,
		subscribers: make(map[string]chan *models.Transaction),
	}
}

// Record appends a transaction and trims the oldest excess so at most the
// configured cap remains. The record is immutable once stored.
func (s *Service) Record(tx *models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now()
	}
	s.nextSeq++
	tx.Seq = s.nextSeq

	s.records = append(s.records, tx)
	if len(s.records) > s.maxRecords {
		s.records = s.records[len(s.records)-s.maxRecords:]
	}

	// Notify under the lock: Unsubscribe closes channels under the same
	// lock, so a send can never hit a closed channel. The channels are
	// buffered and the send drops on a full buffer, so the request path
	// never blocks on a slow subscriber.
	for _, ch := range s.subscribers {
		select {
		case ch <- tx:
		default:
		}
	}
}

// List returns one page of records, newest first. Page numbering starts at
// 1; limit falls back to 50 when unset.
func (s *Service) List(page, limit int) *models.TransactionPage {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.records)
	start := (page - 1) * limit

	result := make([]*models.Transaction, 0, limit)
	for i := total - 1 - start; i >= 0 && len(result) < limit; i-- {
		result = append(result, s.records[i])
	}

	return &models.TransactionPage{
		Records: result,
		Total:   total,
		Page:    page,
		Limit:   limit,
	}
}

// Get returns a single record by ID, or nil
func (s *Service) Get(id string) *models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.records {
		if tx.ID == id {
			return tx
		}
	}

	return nil
}

// Count returns the number of stored records
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear removes all records and returns how many were deleted
func (s *Service) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := len(s.records)
	s.records = make([]*models.Transaction, 0)
	return deleted
}

// ClearByProject removes records belonging to one project
func (s *Service) ClearByProject(projectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]*models.Transaction, 0, len(s.records))
	deleted := 0
	for _, tx := range s.records {
		if tx.ProjectID == projectID {
			deleted++
			continue
		}
		kept = append(kept, tx)
	}
	s.records = kept
	return deleted
}

// Subscribe creates a subscription for live transactions
func (s *Service) Subscribe() (string, chan *models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan *models.Transaction, 100)
	s.subscribers[id] = ch

	return id, ch
}

// Unsubscribe removes a subscription
func (s *Service) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Stats returns log-level counters
func (s *Service) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"totalRecords":      len(s.records),
		"maxRecords":        s.maxRecords,
		"activeSubscribers": len(s.subscribers),
	}
}
