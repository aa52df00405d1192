package devotion

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/japhetcordova/clc-sub000/core"
)

type Verse struct {
	ID           string    `json:"id"`
	Reference    string    `json:"reference"`
	Text         string    `json:"text"`
	Translation  string    `json:"translation"`
	ScheduledFor string    `json:"scheduled_for"` // YYYY-MM-DD
	CreatedAt    time.Time `json:"created_at"`
}

type NewVerse struct {
	Reference    string `json:"reference" yaml:"reference" validate:"required,notblank,max=100"`
	Text         string `json:"text" yaml:"text" validate:"required,notblank"`
	Translation  string `json:"translation" yaml:"translation" validate:"max=20"`
	ScheduledFor string `json:"scheduled_for" yaml:"scheduled_for" validate:"omitempty,date"`
}

func (nv *NewVerse) Validate(validate *validator.Validate) error {
	nv.Reference = core.CleanString(nv.Reference)
	nv.Text = core.CleanString(nv.Text)
	nv.Translation = core.CleanString(nv.Translation)
	nv.ScheduledFor = core.CleanString(nv.ScheduledFor)
	return validate.Struct(nv)
}

// UpdateVerse holds the new values of a verse; nil fields keep their current values.
// An empty ScheduledFor unschedules the verse.
type UpdateVerse struct {
	Reference    *string `json:"reference" validate:"omitempty,notblank,max=100"`
	Text         *string `json:"text" validate:"omitempty,notblank"`
	Translation  *string `json:"translation" validate:"omitempty,max=20"`
	ScheduledFor *string `json:"scheduled_for" validate:"omitempty,len=0|date"`
}

func (uv *UpdateVerse) Validate(validate *validator.Validate) error {
	for _, s := range []*string{uv.Reference, uv.Text, uv.Translation, uv.ScheduledFor} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	return validate.Struct(uv)
}

type QueryFilter struct {
	Search    string `query:"search"`
	Scheduled *bool  `query:"scheduled"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
}

// OrderingFields are the fields verses can be ordered by.
var OrderingFields = core.OrderingFields{
	"reference":     "reference",
	"scheduled_for": "scheduled_for",
	"created_at":    "created_at",
}

// importFile is the layout of verse YAML files.
type importFile struct {
	Verses []NewVerse `yaml:"verses"`
}

// ImportResult counts what Import did.
type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}
