package fieldtype

import (
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// defaultMaxLength is the VARCHAR length used when max_length is not set.
	defaultMaxLength = 255
	// maxVarcharLength is the largest length PostgreSQL accepts for VARCHAR(n).
	maxVarcharLength = 10485760

	decimalPrecision     = 20
	defaultDecimalPlaces = 2
)

// Text is a single line of text. Extra: max_length.
type Text struct{}

func (Text) Slug() string { return "text" }
func (Text) Name() string { return "Text" }

func (Text) ColumnType(extra map[string]any) string {
	return fmt.Sprintf("VARCHAR(%d)", extraInt(extra, "max_length", defaultMaxLength, 1, maxVarcharLength))
}

func (Text) ValidateExtra(extra map[string]any) error {
	return checkExtraInt(extra, "max_length", 1, maxVarcharLength)
}

func (Text) Validate(val any, extra map[string]any) error {
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("must be a string")
	}
	if limit := extraInt(extra, "max_length", defaultMaxLength, 1, maxVarcharLength); len([]rune(s)) > limit {
		return fmt.Errorf("must be %d characters or fewer", limit)
	}
	return nil
}

func (Text) Input(extra map[string]any) Input {
	return Input{
		Template:  "input",
		InputType: "text",
		Attrs:     map[string]string{"maxlength": strconv.Itoa(extraInt(extra, "max_length", defaultMaxLength, 1, maxVarcharLength))},
	}
}

// Textarea is multi-line text.
type Textarea struct{}

func (Textarea) Slug() string { return "textarea" }
func (Textarea) Name() string { return "Textarea" }
func (Textarea) ColumnType(map[string]any) string { return "TEXT" }

func (Textarea) Validate(val any, _ map[string]any) error {
	if _, ok := val.(string); !ok {
		return fmt.Errorf("must be a string")
	}
	return nil
}

func (Textarea) Input(map[string]any) Input { return Input{Template: "textarea"} }

// Integer is a whole number. Extra: min, max.
type Integer struct{}

func (Integer) Slug() string { return "integer" }
func (Integer) Name() string { return "Integer" }
func (Integer) ColumnType(map[string]any) string { return "INTEGER" }

func (Integer) ValidateExtra(extra map[string]any) error {
	return checkExtraRange(extra)
}

func (Integer) Validate(val any, extra map[string]any) error {
	n, ok := toFloat(val)
	if !ok || n != math.Trunc(n) {
		return fmt.Errorf("must be an integer")
	}
	return checkRange(n, extra)
}

func (Integer) Input(extra map[string]any) Input {
	return Input{Template: "input", InputType: "number", Attrs: rangeAttrs(extra, "1")}
}

// Decimal is a fixed precision number. Extra: decimal_places, min, max.
type Decimal struct{}

func (Decimal) Slug() string { return "decimal" }
func (Decimal) Name() string { return "Decimal" }

func (Decimal) ColumnType(extra map[string]any) string {
	return fmt.Sprintf("NUMERIC(%d,%d)", decimalPrecision, extraInt(extra, "decimal_places", defaultDecimalPlaces, 0, decimalPrecision))
}

func (Decimal) ValidateExtra(extra map[string]any) error {
	if err := checkExtraInt(extra, "decimal_places", 0, decimalPrecision); err != nil {
		return err
	}
	return checkExtraRange(extra)
}

func (Decimal) Validate(val any, extra map[string]any) error {
	n, ok := toFloat(val)
	if !ok {
		return fmt.Errorf("must be a number")
	}
	return checkRange(n, extra)
}

func (Decimal) Input(extra map[string]any) Input {
	places := extraInt(extra, "decimal_places", defaultDecimalPlaces, 0, decimalPrecision)
	step := strconv.FormatFloat(math.Pow10(-places), 'f', places, 64)
	return Input{Template: "input", InputType: "number", Attrs: rangeAttrs(extra, step)}
}

// Choice is one value out of a fixed list. Extra: choice_data (a list of
// strings or newline separated "value : label" lines), choice_type
// ("dropdown" or "radio").
type Choice struct{}

func (Choice) Slug() string { return "choice" }
func (Choice) Name() string { return "Choice" }
func (Choice) ColumnType(map[string]any) string { return "VARCHAR(255)" }

func (Choice) ValidateExtra(extra map[string]any) error {
	switch extraString(extra, "choice_type") {
	case "", "dropdown", "radio":
	default:
		return fmt.Errorf("choice_type must be dropdown or radio")
	}
	if v, ok := extra["choice_data"]; ok && v != nil {
		switch v.(type) {
		case string, []string, []any:
		default:
			return fmt.Errorf("choice_data must be a string or a list of strings")
		}
	}
	return nil
}

func (Choice) Validate(val any, extra map[string]any) error {
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("must be a string")
	}
	opts := ChoiceOptions(extra)
	for _, o := range opts {
		if o.Value == s {
			return nil
		}
	}
	values := make([]string, len(opts))
	for i, o := range opts {
		values[i] = o.Value
	}
	return fmt.Errorf("must be one of %v", values)
}

func (Choice) Input(extra map[string]any) Input {
	tmpl := "select"
	if extraString(extra, "choice_type") == "radio" {
		tmpl = "radio"
	}
	return Input{Template: tmpl, Options: ChoiceOptions(extra)}
}

// ChoiceOptions parses the choice_data extra option.
func ChoiceOptions(extra map[string]any) []Option {
	var lines []string
	switch v := extra["choice_data"].(type) {
	case string:
		lines = strings.Split(v, "\n")
	case []string:
		lines = v
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				lines = append(lines, s)
			}
		}
	}

	var opts []Option
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		value, label, found := strings.Cut(line, ":")
		value = strings.TrimSpace(value)
		if !found {
			label = value
		}
		opts = append(opts, Option{Value: value, Label: strings.TrimSpace(label)})
	}
	return opts
}

// Datetime is a point in time, exchanged as RFC 3339.
type Datetime struct{}

func (Datetime) Slug() string { return "datetime" }
func (Datetime) Name() string { return "Date/Time" }
func (Datetime) ColumnType(map[string]any) string { return "TIMESTAMPTZ" }

func (Datetime) Validate(val any, _ map[string]any) error {
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("must be an RFC 3339 timestamp string")
	}
	if _, err := time.Parse(time.RFC3339, s); err != nil {
		return fmt.Errorf("must be an RFC 3339 timestamp string")
	}
	return nil
}

func (Datetime) Input(map[string]any) Input {
	return Input{Template: "input", InputType: "datetime-local"}
}

// Email is an email address.
type Email struct{}

func (Email) Slug() string { return "email" }
func (Email) Name() string { return "Email" }
func (Email) ColumnType(map[string]any) string { return "VARCHAR(255)" }

func (Email) Validate(val any, _ map[string]any) error {
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("must be a string")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return fmt.Errorf("must be a valid email address")
	}
	return nil
}

func (Email) Input(map[string]any) Input {
	return Input{Template: "input", InputType: "email"}
}

// URL is an absolute http or https URL.
type URL struct{}

func (URL) Slug() string { return "url" }
func (URL) Name() string { return "URL" }
func (URL) ColumnType(map[string]any) string { return "VARCHAR(255)" }

func (URL) Validate(val any, _ map[string]any) error {
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("must be a string")
	}
	u, err := url.ParseRequestURI(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an absolute http or https URL")
	}
	return nil
}

func (URL) Input(map[string]any) Input {
	return Input{Template: "input", InputType: "url"}
}

func checkRange(n float64, extra map[string]any) error {
	if lo, ok := toFloat(extra["min"]); ok && n < lo {
		return fmt.Errorf("must be at least %v", extra["min"])
	}
	if hi, ok := toFloat(extra["max"]); ok && n > hi {
		return fmt.Errorf("must be at most %v", extra["max"])
	}
	return nil
}

func rangeAttrs(extra map[string]any, step string) map[string]string {
	attrs := map[string]string{"step": step}
	for _, key := range []string{"min", "max"} {
		if n, ok := toFloat(extra[key]); ok {
			attrs[key] = strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	return attrs
}

// toFloat accepts JSON numbers, Go integers and numeric strings (form posts).
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// extraInt returns the integer option key, or fallback when it is missing,
// not a whole number or outside [lo, hi].
func extraInt(extra map[string]any, key string, fallback, lo, hi int) int {
	n, ok := toFloat(extra[key])
	if !ok || n != math.Trunc(n) || n < float64(lo) || n > float64(hi) {
		return fallback
	}
	return int(n)
}

// checkExtraInt accepts a missing option or a whole number in [lo, hi].
func checkExtraInt(extra map[string]any, key string, lo, hi int) error {
	v, ok := extra[key]
	if !ok || v == nil {
		return nil
	}
	n, ok := toFloat(v)
	if !ok || n != math.Trunc(n) || n < float64(lo) || n > float64(hi) {
		return fmt.Errorf("%s must be a whole number between %d and %d", key, lo, hi)
	}
	return nil
}

// checkExtraRange accepts numeric min and max options with min <= max.
func checkExtraRange(extra map[string]any) error {
	var bounds [2]float64
	var set [2]bool
	for i, key := range []string{"min", "max"} {
		v, ok := extra[key]
		if !ok || v == nil {
			continue
		}
		n, ok := toFloat(v)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return fmt.Errorf("%s must be a number", key)
		}
		bounds[i], set[i] = n, true
	}
	if set[0] && set[1] && bounds[0] > bounds[1] {
		return fmt.Errorf("min must not exceed max")
	}
	return nil
}

func extraString(extra map[string]any, key string) string {
	s, _ := extra[key].(string)
	return s
}
