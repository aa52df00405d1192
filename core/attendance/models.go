package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/japhetcordova/clc-sub000/core"
)

const (
	MethodQR     = "qr"
	MethodManual = "manual"

	// group by
	GroupByDay      = "day"
	GroupByWeek     = "week"
	GroupByMonth    = "month"
	GroupBySlot     = "slot"
	GroupByGender   = "gender"
	GroupByMinistry = "ministry"
)

var GroupByValues = []string{GroupByDay, GroupByWeek, GroupByMonth, GroupBySlot, GroupByGender, GroupByMinistry}

type Record struct {
	ID        string    `json:"id"`
	MemberID  string    `json:"member_id"`
	Date      string    `json:"date"` // church-local YYYY-MM-DD
	Slot      string    `json:"slot"`
	ClassID   string    `json:"class_id,omitempty"`
	Method    string    `json:"method"`
	ScannedBy string    `json:"scanned_by"`
	ScannedAt time.Time `json:"scanned_at"` // UTC

	// filled on reads
	MemberCode string `json:"member_code,omitempty"`
	MemberName string `json:"member_name,omitempty"`
}

// CheckIn identifies the member by the QR payload or, for manual entries, by ID.
type CheckIn struct {
	Payload  string    `json:"payload" validate:"required_without=MemberID"`
	MemberID string    `json:"member_id" validate:"required_without=Payload"`
	ClassID  string    `json:"class_id"`
	At       time.Time `json:"at"` // defaults to now; backfills are manual entries
}

func (ci *CheckIn) Validate(validate *validator.Validate) error {
	ci.Payload = core.CleanString(ci.Payload)
	ci.MemberID = core.CleanString(ci.MemberID)
	ci.ClassID = core.CleanString(ci.ClassID)
	return validate.Struct(ci)
}

type QueryFilter struct {
	DateFrom string   `query:"date_from" validate:"omitempty,date"`
	DateTo   string   `query:"date_to" validate:"omitempty,date"`
	Slots    []string `query:"slot"`
	MemberID string   `query:"member_id"`
	ClassID  string   `query:"class_id"`
	Method   string   `query:"method" validate:"omitempty,oneof=qr manual"`
}

func (qf *QueryFilter) Clean() {
	qf.DateFrom = core.CleanString(qf.DateFrom)
	qf.DateTo = core.CleanString(qf.DateTo)
	qf.MemberID = core.CleanString(qf.MemberID)
	qf.ClassID = core.CleanString(qf.ClassID)
	qf.Method = core.CleanString(qf.Method, true /* lower */)
	slots := qf.Slots[:0]
	for _, s := range qf.Slots {
		if s = core.CleanString(s, true /* lower */); s != "" {
			slots = append(slots, s)
		}
	}
	qf.Slots = slots
}

// SummaryRow is one check-in joined with the member attributes summaries group by.
type SummaryRow struct {
	MemberID string
	Date     string
	Slot     string
	Gender   string
	Ministry string
}

type Bucket struct {
	Key    string `json:"key"`
	Total  int    `json:"total"`
	Unique int    `json:"unique"`
}

type Summary struct {
	GroupBy string   `json:"group_by"`
	Total   int      `json:"total"`
	Unique  int      `json:"unique"`
	Buckets []Bucket `json:"buckets"`
}

// OrderingFields are the fields attendance records can be ordered by.
var OrderingFields = core.OrderingFields{
	"date":       "a.date",
	"slot":       "a.slot",
	"scanned_at": "a.scanned_at",
	"last_name":  "m.last_name",
}
