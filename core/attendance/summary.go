package attendance

import (
	"fmt"
	"sort"
	"time"

	"github.com/japhetcordova/clc-sub000/core"
)

const unknownKey = "unknown"

// Summarize groups check-ins by groupBy. Date buckets are ordered chronologically,
// slot buckets follow the slots order and the others are ordered by total, then key.
func Summarize(rows []SummaryRow, groupBy string, slots Slots) Summary {
	type acc struct {
		total   int
		members map[string]struct{}
	}

	sum := Summary{GroupBy: groupBy, Buckets: []Bucket{}}
	all := make(map[string]struct{})
	buckets := make(map[string]*acc)
	for _, row := range rows {
		sum.Total++
		all[row.MemberID] = struct{}{}

		key := bucketKey(row, groupBy)
		b, ok := buckets[key]
		if !ok {
			b = &acc{members: make(map[string]struct{})}
			buckets[key] = b
		}
		b.total++
		b.members[row.MemberID] = struct{}{}
	}
	sum.Unique = len(all)

	for key, b := range buckets {
		sum.Buckets = append(sum.Buckets, Bucket{Key: key, Total: b.total, Unique: len(b.members)})
	}

	switch groupBy {
	case GroupByDay, GroupByWeek, GroupByMonth:
		sort.Slice(sum.Buckets, func(i, j int) bool { return sum.Buckets[i].Key < sum.Buckets[j].Key })
	case GroupBySlot:
		order := make(map[string]int)
		for i, name := range slots.Names() {
			order[name] = i + 1
		}
		rank := func(key string) int {
			if r, ok := order[key]; ok {
				return r
			}
			return len(order) + 1 // slots removed from the configuration
		}
		sort.Slice(sum.Buckets, func(i, j int) bool {
			ri, rj := rank(sum.Buckets[i].Key), rank(sum.Buckets[j].Key)
			if ri != rj {
				return ri < rj
			}
			return sum.Buckets[i].Key < sum.Buckets[j].Key
		})
	default:
		sort.Slice(sum.Buckets, func(i, j int) bool {
			if sum.Buckets[i].Total != sum.Buckets[j].Total {
				return sum.Buckets[i].Total > sum.Buckets[j].Total
			}
			return sum.Buckets[i].Key < sum.Buckets[j].Key
		})
	}
	return sum
}

func bucketKey(row SummaryRow, groupBy string) string {
	switch groupBy {
	case GroupByWeek:
		return weekKey(row.Date)
	case GroupByMonth:
		if len(row.Date) >= 7 {
			return row.Date[:7]
		}
		return row.Date
	case GroupBySlot:
		return row.Slot
	case GroupByGender:
		return orUnknown(row.Gender)
	case GroupByMinistry:
		return orUnknown(row.Ministry)
	default:
		return row.Date
	}
}

// weekKey returns the ISO week "YYYY-Www" of a YYYY-MM-DD date.
func weekKey(date string) string {
	d, err := time.Parse(core.DateLayout, date)
	if err != nil {
		return date
	}
	year, week := d.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func orUnknown(s string) string {
	if s == "" {
		return unknownKey
	}
	return s
}
