package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// GeneralSlot is used for check-ins outside every configured slot.
const GeneralSlot = "general"

// Slot is a named window of the church day, [Start, End) in minutes after local midnight.
type Slot struct {
	Name  string `json:"name"`
	Start int    `json:"-"`
	End   int    `json:"-"`
}

func (s Slot) StartString() string { return fmtMinutes(s.Start) }
func (s Slot) EndString() string   { return fmtMinutes(s.End) }

// Title is the human name of the slot: "first-service" -> "First service".
func (s Slot) Title() string {
	title := strings.ReplaceAll(s.Name, "-", " ")
	if title == "" {
		return ""
	}
	return strings.ToUpper(title[:1]) + title[1:]
}

func (s Slot) contains(minute int) bool {
	return minute >= s.Start && minute < s.End
}

type Slots []Slot

// ParseSlots parses "name@HH:MM-HH:MM,name@HH:MM-HH:MM".
func ParseSlots(s string) (Slots, error) {
	var slots Slots
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, window, ok := strings.Cut(part, "@")
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" || name == GeneralSlot {
			return nil, errors.Errorf("invalid slot %q", part)
		}
		if seen[name] {
			return nil, errors.Errorf("duplicate slot %q", name)
		}
		from, to, ok := strings.Cut(window, "-")
		if !ok {
			return nil, errors.Errorf("invalid slot window %q", part)
		}
		start, err := parseMinutes(from)
		if err != nil {
			return nil, errors.Wrapf(err, "slot %q", name)
		}
		end, err := parseMinutes(to)
		if err != nil {
			return nil, errors.Wrapf(err, "slot %q", name)
		}
		if start >= end {
			return nil, errors.Errorf("slot %q must start before it ends", name)
		}
		seen[name] = true
		slots = append(slots, Slot{Name: name, Start: start, End: end})
	}
	return slots, nil
}

// Classify returns the name of the first slot containing the time of day of t (already in church time).
func (slots Slots) Classify(t time.Time) string {
	minute := t.Hour()*60 + t.Minute()
	for _, s := range slots {
		if s.contains(minute) {
			return s.Name
		}
	}
	return GeneralSlot
}

// Names returns every slot name, general included.
func (slots Slots) Names() []string {
	names := make([]string, 0, len(slots)+1)
	for _, s := range slots {
		names = append(names, s.Name)
	}
	return append(names, GeneralSlot)
}

func (slots Slots) Has(name string) bool {
	for _, n := range slots.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func parseMinutes(hhmm string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return 0, errors.Errorf("invalid time %q", hhmm)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func fmtMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
