// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ledger

//go:generate mockgen -source clock.go -destination clock_mocks.go -package ledger

import (
	"encoding/binary"
	"time"

	"github.com/0xsoniclabs/ledger/database/storage"
)

// CurrentTimeEntry is the name of the entry holding the consensus time.
const CurrentTimeEntry = "time.current"

// Clock provides the time transactions are executed at. Replicas must agree
// on it, so it is derived from the ledger state rather than a local clock.
type Clock interface {
	// Now returns the current time, or false if no time is known yet.
	Now(view storage.View) (time.Time, bool)
}

// StoredClock reads the time written to the state by SetTime.
type StoredClock struct{}

func (StoredClock) Now(view storage.View) (time.Time, bool) {
	data, found := storage.NewEntry(CurrentTimeEntry, view).Get()
	if !found || len(data) != 12 {
		return time.Time{}, false
	}
	seconds := int64(binary.BigEndian.Uint64(data[:8]))
	nanos := int64(binary.BigEndian.Uint32(data[8:]))
	return time.Unix(seconds, nanos).UTC(), true
}

// SetTime records the time reported by StoredClock.
func SetTime(fork *storage.Fork, t time.Time) {
	data := binary.BigEndian.AppendUint64(nil, uint64(t.Unix()))
	data = binary.BigEndian.AppendUint32(data, uint32(t.Nanosecond()))
	storage.NewEntry(CurrentTimeEntry, fork).Set(data)
}
