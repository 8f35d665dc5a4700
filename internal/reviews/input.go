package reviews

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"resenas/pkg/models"
)

const (
	msgAuthorsRequired = "Autores es requerido y debe ser un array"
	msgAuthorsNonEmpty = "Autores debe ser un array con al menos un elemento"
	msgTitleRequired   = "Título es requerido"
	msgTitleText       = "Título debe ser un texto"
	msgSeriesText      = "Serie debe ser un texto"
	msgRatingRange     = "Valoración debe ser un número entre 1 y 5"
	msgCommentsText    = "Comentarios debe ser un texto"
	msgInvalidJSON     = "JSON inválido"
)

var (
	createMessages = map[string]string{
		"autores":     msgAuthorsRequired,
		"titulo":      msgTitleRequired,
		"serie":       msgSeriesText,
		"valoracion":  msgRatingRange,
		"comentarios": msgCommentsText,
	}
	updateMessages = map[string]string{
		"autores":     msgAuthorsNonEmpty,
		"titulo":      msgTitleText,
		"serie":       msgSeriesText,
		"valoracion":  msgRatingRange,
		"comentarios": msgCommentsText,
	}
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Rating is a star value read from a request body. Any JSON number without
// a fractional part is accepted, so 3 and 3.0 are the same rating.
type Rating int

func (r *Rating) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return &json.UnmarshalTypeError{Value: "number " + string(b), Type: reflect.TypeOf(*r)}
	}
	*r = Rating(f)
	return nil
}

// CreateInput is the body of a create request. Pointer fields are optional;
// a JSON null counts as absent.
type CreateInput struct {
	Authors  []string `json:"autores" validate:"required,min=1"`
	Title    string   `json:"titulo" validate:"required"`
	Series   *string  `json:"serie"`
	Rating   *Rating  `json:"valoracion" validate:"omitempty,min=1,max=5"`
	Comments *string  `json:"comentarios"`
}

// UpdateInput is the body of a partial update. Only non-nil fields are
// applied, so a JSON null leaves the stored value as it is.
type UpdateInput struct {
	Authors  *[]string `json:"autores" validate:"omitempty,min=1"`
	Title    *string   `json:"titulo"`
	Series   *string   `json:"serie"`
	Rating   *Rating   `json:"valoracion" validate:"omitempty,min=1,max=5"`
	Comments *string   `json:"comentarios"`
}

func (in CreateInput) Validate() error { return check(in, createMessages) }

func (in UpdateInput) Validate() error { return check(in, updateMessages) }

// build turns a validated input into a new review with the given id.
func (in CreateInput) build(id int64) models.Review {
	r := models.Review{
		ID:      id,
		Authors: in.Authors,
		Title:   in.Title,
		Series:  models.DefaultSeries,
	}
	if in.Series != nil && *in.Series != "" {
		r.Series = *in.Series
	}
	if in.Rating != nil {
		r.Rating = int(*in.Rating)
	}
	if in.Comments != nil {
		r.Comments = *in.Comments
	}
	return r
}

// apply copies the supplied fields onto r. Authors and title are only
// replaced with non-empty values; the rest are replaced whenever present.
func (in UpdateInput) apply(r *models.Review) {
	if in.Authors != nil && len(*in.Authors) > 0 {
		r.Authors = *in.Authors
	}
	if in.Title != nil && *in.Title != "" {
		r.Title = *in.Title
	}
	if in.Series != nil {
		r.Series = *in.Series
	}
	if in.Rating != nil {
		r.Rating = int(*in.Rating)
	}
	if in.Comments != nil {
		r.Comments = *in.Comments
	}
}

func check(in any, messages map[string]string) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	field := verrs[0].Field()
	return &ValidationError{Field: field, Message: messages[field]}
}

// CreateBindError maps a JSON decoding failure of a create body to a
// ValidationError. An empty body is not a failure and yields nil.
func CreateBindError(err error) error { return bindError(err, createMessages) }

// UpdateBindError is CreateBindError for update bodies.
func UpdateBindError(err error) error { return bindError(err, updateMessages) }

func bindError(err error, messages map[string]string) error {
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := strings.SplitN(typeErr.Field, ".", 2)[0]
		if msg, ok := messages[field]; ok {
			return &ValidationError{Field: field, Message: msg}
		}
	}
	return &ValidationError{Field: "body", Message: msgInvalidJSON}
}
