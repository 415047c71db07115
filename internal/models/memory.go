// Package models contains the domain types shared by the local store, the
// remote persistence service and the lifecycle manager.
package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/moments/internal/common"
)

// DateLayout is the calendar-day layout used for Memory.Date.
const DateLayout = time.DateOnly

// Memory is one dated journal entry. Date is the natural merge key: at most
// one memory is expected per calendar day.
type Memory struct {
	ID        string
	Date      string
	Note      string
	PhotoIDs  []string
	CreatedAt int64
	UpdatedAt int64

	// PhotoCount is the cached number of photos kept by the remote store.
	PhotoCount int
}

// Clone returns a deep copy so callers can not mutate cached state.
func (m Memory) Clone() Memory {
	c := m
	if m.PhotoIDs != nil {
		c.PhotoIDs = append([]string(nil), m.PhotoIDs...)
	}
	return c
}

// ParseDate validates a YYYY-MM-DD calendar day.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", common.ErrorValidation, s)
	}
	return d, nil
}
