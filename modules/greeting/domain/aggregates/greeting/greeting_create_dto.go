package greeting

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   = validator.New(validator.WithRequiredStructEnabled())
	translator ut.Translator
)

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	translator, _ = ut.New(english, english).GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}
}

type CreateDTO struct {
	ExternalReference string               `json:"external_reference"`
	MessageID         string               `json:"message_id" validate:"required,uuid"`
	To                string               `json:"to" validate:"required"`
	From              string               `json:"from" validate:"required"`
	Heading           string               `json:"heading"`
	Body              string               `json:"body"`
	Created           time.Time            `json:"created"`
	EventsCreated     map[string]time.Time `json:"events_created" validate:"omitempty,dive,keys,required,endkeys"`
}

func (d *CreateDTO) Normalize() {
	d.ExternalReference = strings.TrimSpace(d.ExternalReference)
	d.MessageID = strings.ToLower(strings.TrimSpace(d.MessageID))
	d.To = strings.TrimSpace(d.To)
	d.From = strings.TrimSpace(d.From)
}

// Ok reports failed validator tags keyed by json field name.
func (d *CreateDTO) Ok() (map[string]string, bool) {
	return d.collect(func(fe validator.FieldError) string { return fe.Tag() })
}

// Messages reports the same failures as Ok as English sentences.
func (d *CreateDTO) Messages() map[string]string {
	out, _ := d.collect(func(fe validator.FieldError) string { return fe.Translate(translator) })
	return out
}

func (d *CreateDTO) collect(describe func(validator.FieldError) string) (map[string]string, bool) {
	d.Normalize()

	err := validate.Struct(d)
	if err == nil {
		return map[string]string{}, true
	}

	out := map[string]string{}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		out["_"] = err.Error()
		return out, false
	}
	for _, fe := range validationErrs {
		out[fieldName(fe)] = describe(fe)
	}
	return out, false
}

func (d *CreateDTO) ToEntity() (*Greeting, error) {
	g := New(d.ExternalReference, d.MessageID, d.To, d.From, d.Heading, d.Body, d.Created)
	if _, err := g.ParsedMessageID(); err != nil {
		return nil, err
	}
	for name, at := range d.EventsCreated {
		if err := g.RecordEvent(name, at); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// fieldName drops the map key suffix validator appends for dive errors.
func fieldName(fe validator.FieldError) string {
	name, _, _ := strings.Cut(fe.Field(), "[")
	return name
}
