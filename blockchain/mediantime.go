// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"sort"
	"sync"
	"time"
)

const (
	// maxAllowedOffsetSecs is the maximum number of seconds in either
	// direction that local clock is allowed to be offset from the
	// median of the time samples gathered from peers without a warning
	// being logged.
	maxAllowedOffsetSecs = 70 * 60

	// maxMedianTimeEntries is the maximum number of time samples kept
	// for computing the median offset.
	maxMedianTimeEntries = 200
)

// MedianTimeSource provides a mechanism to add several time samples which
// are used to determine a median time which is then used to offset the
// local clock, per spec.md's "block.time > now + 2h" sanity check.
type MedianTimeSource interface {
	// AdjustedTime returns the current time adjusted by the median time
	// offset gathered from peer samples.
	AdjustedTime() time.Time

	// AddTimeSample adds a time sample that is used when determining the
	// median time of the added samples.
	AddTimeSample(sourceID string, timeVal time.Time)

	// Offset returns the current time offset.
	Offset() time.Duration
}

// int64Sorter implements sort.Interface to allow a slice of int64s to be
// sorted.
type int64Sorter []int64

func (s int64Sorter) Len() int           { return len(s) }
func (s int64Sorter) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s int64Sorter) Less(i, j int) bool { return s[i] < s[j] }

// medianTime is an implementation of the MedianTimeSource interface which
// keeps one time sample per distinct source and returns the median offset
// of those samples from the local clock.
type medianTime struct {
	mtx              sync.Mutex
	knownIDs         map[string]struct{}
	offsets          []int64
	offsetSecs       int64
	invalidTimeChecked bool
}

// NewMedianTime returns a new instance of a concurrency-safe MedianTimeSource.
func NewMedianTime() MedianTimeSource {
	return &medianTime{
		knownIDs: make(map[string]struct{}),
	}
}

// AdjustedTime returns the current time adjusted by the median time offset.
func (m *medianTime) AdjustedTime() time.Time {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	now := time.Unix(time.Now().Unix(), 0)
	return now.Add(time.Duration(m.offsetSecs) * time.Second)
}

// AddTimeSample adds a time sample observed from sourceID, recomputing the
// median offset. A given sourceID only ever contributes a single sample;
// subsequent calls for the same ID are ignored.
func (m *medianTime) AddTimeSample(sourceID string, timeVal time.Time) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if _, exists := m.knownIDs[sourceID]; exists {
		return
	}
	m.knownIDs[sourceID] = struct{}{}

	now := time.Unix(time.Now().Unix(), 0)
	offsetSecs := int64(timeVal.Sub(now).Seconds())
	numOffsets := len(m.offsets)
	if numOffsets >= maxMedianTimeEntries {
		m.offsets = m.offsets[1:]
		numOffsets--
	}
	m.offsets = append(m.offsets, offsetSecs)
	numOffsets++

	sortedOffsets := make([]int64, numOffsets)
	copy(sortedOffsets, m.offsets)
	sort.Sort(int64Sorter(sortedOffsets))

	if numOffsets < 5 {
		return
	}

	median := sortedOffsets[numOffsets/2]
	if numOffsets%2 == 0 {
		medianAvg := float64(median+sortedOffsets[numOffsets/2-1]) / 2
		median = int64(medianAvg)
	}

	if int64Abs(median) < maxAllowedOffsetSecs {
		m.offsetSecs = median
	} else {
		m.offsetSecs = 0

		if !m.invalidTimeChecked {
			m.invalidTimeChecked = true

			var duplicateMax bool
			for i := 0; i < numOffsets; i++ {
				if sortedOffsets[i] == median {
					if duplicateMax {
						continue
					}
					duplicateMax = true
				}
			}

			if duplicateMax {
				log.Warnf("Please check your date and time " +
					"are correct! The clock appears to " +
					"be substantially out of sync with " +
					"peers")
			}
		}
	}
}

// Offset returns the current time offset used to adjust the local clock.
func (m *medianTime) Offset() time.Duration {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return time.Duration(m.offsetSecs) * time.Second
}

func int64Abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// ErrNoSamples is returned when an operation requires at least one time
// sample to have been recorded and none has been.
var ErrNoSamples = errors.New("no time samples available")
