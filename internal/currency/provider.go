package currency

import (
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/internal/models"
	"github.com/mdjukic/settleup/pkg/errors"
)

// Snapshot is an in-memory rate table: currency -> day -> rate into the
// base currency. Lookups fall back to the most recent rate on or before the
// requested date, matching how daily FX feeds publish.
type Snapshot struct {
	mu    sync.RWMutex
	rates map[models.Currency]map[string]decimal.Decimal
	days  map[models.Currency][]string // sorted ISO dates, lazily rebuilt
}

// NewSnapshot creates an empty rate table.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		rates: make(map[models.Currency]map[string]decimal.Decimal),
		days:  make(map[models.Currency][]string),
	}
}

// Set records the rate for a currency on a day.
func (s *Snapshot) Set(c models.Currency, on date.Date, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rates[c] == nil {
		s.rates[c] = make(map[string]decimal.Decimal)
	}
	day := on.String()
	if _, exists := s.rates[c][day]; !exists {
		s.days[c] = insertSorted(s.days[c], day)
	}
	s.rates[c][day] = rate
}

// Rate implements RateProvider.
func (s *Snapshot) Rate(c models.Currency, on date.Date) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byDay := s.rates[c]
	if len(byDay) == 0 {
		return decimal.Zero, false
	}
	day := on.String()
	if r, ok := byDay[day]; ok {
		return r, true
	}
	// most recent day at or before the requested one; ISO strings sort
	// chronologically
	days := s.days[c]
	i := sort.SearchStrings(days, day)
	if i == 0 {
		return decimal.Zero, false
	}
	return byDay[days[i-1]], true
}

// LoadFile merges rates from a JSON file shaped like
// {"EUR": {"2025-01-02": "117.25"}, "USD": {...}}.
func (s *Snapshot) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "read rates file %s", path)
	}
	var table map[string]map[string]string
	if err := json.Unmarshal(raw, &table); err != nil {
		return errors.Wrap(err, errors.KindValidation, "parse rates file %s", path)
	}
	for code, byDay := range table {
		c, err := models.ParseCurrency(code)
		if err != nil {
			return err
		}
		for day, val := range byDay {
			on, err := date.Parse(day)
			if err != nil {
				return errors.Wrap(err, errors.KindValidation, "rates file %s: currency %s", path, code)
			}
			rate, err := decimal.NewFromString(val)
			if err != nil {
				return errors.Wrap(err, errors.KindValidation, "rates file %s: rate for %s on %s", path, code, day)
			}
			s.Set(c, on, rate)
		}
	}
	return nil
}

func insertSorted(days []string, day string) []string {
	i := sort.SearchStrings(days, day)
	days = append(days, "")
	copy(days[i+1:], days[i:])
	days[i] = day
	return days
}
