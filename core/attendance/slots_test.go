package attendance

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultSlots = "first-service@06:00-09:30,second-service@09:30-12:00,evening-service@16:00-20:00"

func TestParseSlots(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    Slots
		wantErr bool
	}{
		{name: "empty", value: ""},
		{name: "one", value: "morning@06:00-12:00", want: Slots{{Name: "morning", Start: 360, End: 720}}},
		{name: "spaces and case", value: " Morning @ 06:00 - 12:00 , ", want: Slots{{Name: "morning", Start: 360, End: 720}}},
		{name: "no window", value: "morning", wantErr: true},
		{name: "no name", value: "@06:00-12:00", wantErr: true},
		{name: "reserved name", value: "general@06:00-12:00", wantErr: true},
		{name: "bad time", value: "morning@6am-12:00", wantErr: true},
		{name: "end before start", value: "morning@12:00-06:00", wantErr: true},
		{name: "empty window", value: "morning@12:00-12:00", wantErr: true},
		{name: "duplicate", value: "morning@06:00-09:00,morning@10:00-11:00", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSlots(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlotsClassify(t *testing.T) {
	slots, err := ParseSlots(defaultSlots)
	require.NoError(t, err)

	at := func(h, m int) time.Time { return time.Date(2026, 3, 1, h, m, 0, 0, time.UTC) }
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{name: "before first", t: at(5, 59), want: GeneralSlot},
		{name: "first start", t: at(6, 0), want: "first-service"},
		{name: "boundary goes to next slot", t: at(9, 30), want: "second-service"},
		{name: "second end excluded", t: at(12, 0), want: GeneralSlot},
		{name: "evening", t: at(19, 59), want: "evening-service"},
		{name: "late night", t: at(23, 0), want: GeneralSlot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slots.Classify(tt.t))
		})
	}
}

func TestSlotsClassifyProperties(t *testing.T) {
	slots, err := ParseSlots(defaultSlots)
	require.NoError(t, err)

	properties := gopter.NewProperties(nil)
	properties.Property("classified slot contains the time of day", prop.ForAll(
		func(minute int) bool {
			name := slots.Classify(time.Date(2026, 1, 1, 0, minute, 0, 0, time.UTC))
			if name == GeneralSlot {
				for _, s := range slots {
					if s.contains(minute) {
						return false
					}
				}
				return true
			}
			for _, s := range slots {
				if s.Name == name {
					return s.contains(minute)
				}
			}
			return false
		},
		gen.IntRange(0, 24*60-1),
	))
	properties.Property("classification is a known slot name", prop.ForAll(
		func(minute int) bool {
			return slots.Has(slots.Classify(time.Date(2026, 1, 1, 0, minute, 0, 0, time.UTC)))
		},
		gen.IntRange(0, 24*60-1),
	))
	properties.TestingRun(t)
}

func TestSlotTitle(t *testing.T) {
	assert.Equal(t, "First service", Slot{Name: "first-service"}.Title())
	assert.Equal(t, "06:00", Slot{Start: 360}.StartString())
	assert.Equal(t, "09:30", Slot{End: 570}.EndString())
}
