// Package forms validates write payloads before they are sent to the
// remote service.
package forms

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Messages returned by the required-field checks.
const (
	MsgWatchlistRequired = "El nombre y la descripción son requeridos"
	MsgTermRequired      = "El término es requerido"
	MsgEventRequired     = "Todos los campos son requeridos"
	MsgIDRequired        = "El identificador es requerido"
)

const (
	schemaWatchlist = "watchlist"
	schemaTerm      = "term"
	schemaEvent     = "event"
)

// Error describes a rejected payload. Message is suitable for display.
type Error struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

type schemaSpec struct {
	schema   *gojsonschema.Schema
	order    []string
	messages map[string]string
}

// Validator holds the compiled form schemas.
type Validator struct {
	specs map[string]schemaSpec
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	v := &Validator{specs: map[string]schemaSpec{}}
	for name, spec := range specTemplates {
		data, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("read %s schema: %w", name, err)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", name, err)
		}
		spec.schema = schema
		v.specs[name] = spec
	}
	return v, nil
}

// MustNew is New for callers that cannot recover from a broken build.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

var specTemplates = map[string]schemaSpec{
	schemaWatchlist: {
		order: []string{"name", "description"},
		messages: map[string]string{
			"name|required":          "El nombre es requerido",
			"name|string_gte":        "El nombre es requerido",
			"name|string_lte":        "El nombre no puede exceder 100 caracteres",
			"description|required":   "La descripción es requerida",
			"description|string_gte": "La descripción es requerida",
			"description|string_lte": "La descripción no puede exceder 500 caracteres",
		},
	},
	schemaTerm: {
		order: []string{"term"},
		messages: map[string]string{
			"term|required":   "El término es requerido",
			"term|string_gte": "El término es requerido",
			"term|string_lte": "El término no puede exceder 50 caracteres",
		},
	},
	schemaEvent: {
		order: []string{"title", "description", "severity"},
		messages: map[string]string{
			"title|required":         "El título es requerido",
			"title|string_gte":       "El título es requerido",
			"title|string_lte":       "El título no puede exceder 200 caracteres",
			"description|required":   "La descripción es requerida",
			"description|string_gte": "La descripción es requerida",
			"description|string_lte": "La descripción no puede exceder 1000 caracteres",
			"severity|required":      "La severidad es requerida",
			"severity|enum":          "La severidad debe ser LOW, MEDIUM, HIGH o CRITICAL",
		},
	},
}

// Watchlist validates a create/update watchlist payload.
func (v *Validator) Watchlist(name, description string) error {
	name, description = strings.TrimSpace(name), strings.TrimSpace(description)
	if name == "" || description == "" {
		return &Error{Message: MsgWatchlistRequired}
	}
	return v.validate(schemaWatchlist, map[string]interface{}{
		"name":        name,
		"description": description,
	})
}

// Term validates an add-term payload.
func (v *Validator) Term(term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return &Error{Message: MsgTermRequired}
	}
	return v.validate(schemaTerm, map[string]interface{}{"term": term})
}

// Event validates a simulate-event payload.
func (v *Validator) Event(title, description, severity string) error {
	title, description, severity = strings.TrimSpace(title), strings.TrimSpace(description), strings.TrimSpace(severity)
	if title == "" || description == "" || severity == "" {
		return &Error{Message: MsgEventRequired}
	}
	return v.validate(schemaEvent, map[string]interface{}{
		"title":       title,
		"description": description,
		"severity":    severity,
	})
}

// IDs rejects blank resource identifiers.
func IDs(ids ...string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return &Error{Message: MsgIDRequired}
		}
	}
	return nil
}

func (v *Validator) validate(name string, doc map[string]interface{}) error {
	spec, ok := v.specs[name]
	if !ok {
		return fmt.Errorf("forms: unknown schema %q", name)
	}
	result, err := spec.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("forms: validate %s: %w", name, err)
	}
	if result.Valid() {
		return nil
	}

	fields := map[string]string{}
	for _, re := range result.Errors() {
		field := re.Field()
		if re.Type() == "required" {
			if prop, ok := re.Details()["property"].(string); ok {
				field = prop
			}
		}
		msg, ok := spec.messages[field+"|"+re.Type()]
		if !ok {
			msg = re.Description()
		}
		if _, seen := fields[field]; !seen {
			fields[field] = msg
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return position(spec.order, keys[i]) < position(spec.order, keys[j])
	})
	return &Error{Message: fields[keys[0]], Fields: fields}
}

func position(order []string, field string) int {
	for i, f := range order {
		if f == field {
			return i
		}
	}
	return len(order)
}
