// Package stats derives dashboard statistics from a snapshot of the
// event log. Compute is pure and total: it never mutates its input and
// never fails, including on an empty log.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/calclabs/mathstream/pkg/mathstream/wire"
)

// Complexity classifies a query by its LaTeX payload.
type Complexity string

// Complexity classes.
const (
	ComplexitySimple  Complexity = "Simple"
	ComplexityMedium  Complexity = "Medium"
	ComplexityComplex Complexity = "Complex"
)

// Bucket is one row of a frequency table.
type Bucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TopicCount is one trending-topic entry.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// HourBucket is one hour-of-day activity bucket.
type HourBucket struct {
	// Hour is the 0-23 hour-of-day value.
	Hour int `json:"hour"`

	// Label is the display form, e.g. "15:00".
	Label string `json:"label"`

	// Queries is the number of events in this bucket.
	Queries int `json:"queries"`

	// Users is the number of distinct user IDs in this bucket.
	Users int `json:"users"`
}

// Snapshot is one derived-statistics result. It is recomputed from
// scratch on every log change and holds no reference to the log.
type Snapshot struct {
	TotalEvents int

	UniqueFormulas     int
	UniqueTopics       int
	UniqueFormulaTypes int

	// Frequency tables, sorted descending by count. Ties break
	// alphabetically by name so results are deterministic.
	FormulaTypes []Bucket
	Topics       []Bucket
	Complexity   []Bucket

	// Hourly holds 24 buckets for the trailing 24 hours anchored at
	// ComputedAt, oldest hour first.
	Hourly []HourBucket

	// Trending is the top 5 topics by frequency.
	Trending []TopicCount

	ComputedAt time.Time
}

// Classify derives the complexity class of a LaTeX payload.
func Classify(latex string) Complexity {
	if strings.Contains(latex, `\begin{`) || strings.Contains(latex, `\end{`) ||
		strings.Contains(latex, `\frac`) || strings.Contains(latex, `\int`) {
		return ComplexityComplex
	}
	if strings.Contains(latex, `\`) || len(latex) > 20 {
		return ComplexityMedium
	}
	return ComplexitySimple
}

// Compute derives a Snapshot from events, with hour buckets anchored at
// now. The events slice is read-only input; newest-first or any other
// order is fine since every computation is order-insensitive.
func Compute(events []wire.QueryEvent, now time.Time) Snapshot {
	snap := Snapshot{
		TotalEvents:  len(events),
		FormulaTypes: []Bucket{},
		Topics:       []Bucket{},
		Complexity:   []Bucket{},
		Trending:     []TopicCount{},
		ComputedAt:   now,
		Hourly:       emptyHourly(now),
	}

	if len(events) == 0 {
		return snap
	}

	formulas := make(map[string]struct{})
	topicCounts := make(map[string]int)
	typeCounts := make(map[string]int)
	complexityCounts := make(map[string]int)

	for _, evt := range events {
		formulas[evt.LaTeX] = struct{}{}
		topicCounts[evt.Topic]++
		typeCounts[evt.FormulaType]++
		complexityCounts[string(Classify(evt.LaTeX))]++
	}

	snap.UniqueFormulas = len(formulas)
	snap.UniqueTopics = len(topicCounts)
	snap.UniqueFormulaTypes = len(typeCounts)

	snap.Topics = frequencyTable(topicCounts)
	snap.FormulaTypes = frequencyTable(typeCounts)
	snap.Complexity = frequencyTable(complexityCounts)

	fillHourly(snap.Hourly, events)
	snap.Trending = trending(topicCounts, 5)

	return snap
}

// frequencyTable converts counts into buckets sorted descending by
// count, ties broken alphabetically.
func frequencyTable(counts map[string]int) []Bucket {
	table := make([]Bucket, 0, len(counts))
	for name, count := range counts {
		table = append(table, Bucket{Name: name, Count: count})
	}
	sort.Slice(table, func(i, j int) bool {
		if table[i].Count != table[j].Count {
			return table[i].Count > table[j].Count
		}
		return table[i].Name < table[j].Name
	})
	return table
}

// emptyHourly builds the 24 fixed buckets for the trailing 24 hours,
// oldest first, labeled by hour-of-day.
func emptyHourly(now time.Time) []HourBucket {
	buckets := make([]HourBucket, 24)
	for i := range buckets {
		hour := now.Add(-time.Duration(23-i) * time.Hour).Hour()
		buckets[i] = HourBucket{
			Hour:  hour,
			Label: fmt.Sprintf("%d:00", hour),
		}
	}
	return buckets
}

// fillHourly maps each event into the bucket sharing its hour-of-day.
// Matching is by hour-of-day value only: an event older than 24 hours
// that shares an hour value still lands in that bucket. The bounded log
// makes this unreachable in practice, but the behavior is kept as-is.
// On a DST fall-back day two buckets can share an hour value; events go
// to the first of them.
func fillHourly(buckets []HourBucket, events []wire.QueryEvent) {
	users := make([]map[string]struct{}, len(buckets))
	index := make(map[int]int, len(buckets))
	for i, b := range buckets {
		if _, seen := index[b.Hour]; !seen {
			index[b.Hour] = i
		}
		users[i] = make(map[string]struct{})
	}

	for _, evt := range events {
		hour := time.UnixMilli(evt.Timestamp).Hour()
		i, ok := index[hour]
		if !ok {
			continue
		}
		buckets[i].Queries++
		users[i][evt.UserID] = struct{}{}
	}

	for i := range buckets {
		buckets[i].Users = len(users[i])
	}
}

// trending returns the top n topics by frequency, ties broken
// alphabetically.
func trending(counts map[string]int, n int) []TopicCount {
	top := make([]TopicCount, 0, len(counts))
	for topic, count := range counts {
		top = append(top, TopicCount{Topic: topic, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Topic < top[j].Topic
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}
