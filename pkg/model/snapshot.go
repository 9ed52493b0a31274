package model

import "time"

// Snapshot is the merged result of one successful refresh cycle. It is never
// modified after NewSnapshot returns.
type Snapshot struct {
	id        string
	account   string
	usage     []UsageRecord
	balance   BalanceRecord
	fetchedAt time.Time
}

// NewSnapshot builds a snapshot from both sub-fetch results. The usage slice is copied.
func NewSnapshot(id, account string, usage []UsageRecord, balance BalanceRecord, fetchedAt time.Time) *Snapshot {
	u := make([]UsageRecord, len(usage))
	copy(u, usage)
	return &Snapshot{
		id:        id,
		account:   account,
		usage:     u,
		balance:   balance,
		fetchedAt: fetchedAt,
	}
}

// ID identifies the refresh cycle that produced the snapshot.
func (s *Snapshot) ID() string { return s.id }

// Account is the configured account name.
func (s *Snapshot) Account() string { return s.account }

// FetchedAt is the time the producing cycle completed.
func (s *Snapshot) FetchedAt() time.Time { return s.fetchedAt }

// Balance returns the balance record.
func (s *Snapshot) Balance() BalanceRecord { return s.balance }

// Usage returns a copy of the usage records in provider order.
func (s *Snapshot) Usage() []UsageRecord {
	u := make([]UsageRecord, len(s.usage))
	copy(u, s.usage)
	return u
}

// FindUsage returns the first usage record matching the discriminator pair.
func (s *Snapshot) FindUsage(sourceType, specialType string) (UsageRecord, bool) {
	for _, r := range s.usage {
		if r.Matches(sourceType, specialType) {
			return r, true
		}
	}
	return UsageRecord{}, false
}
