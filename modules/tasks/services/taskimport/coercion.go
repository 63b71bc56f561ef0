package taskimport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iota-uz/sprintboard/modules/tasks/domain/aggregates/task"
)

const (
	msgPriorityOutOfRange = "priority out of range"
	msgInvalidEstimate    = "invalid estimate"
)

var priorityPattern = regexp.MustCompile(`^p?([0-5])$`)

var truthy = map[string]struct{}{
	"sim":  {},
	"yes":  {},
	"true": {},
	"1":    {},
}

// issue is a rule outcome before it is attached to a row and column.
type issue struct {
	severity Severity
	message  string
}

func warning(msg string) *issue { return &issue{severity: SeverityWarning, message: msg} }

func cellText(c Cell) string {
	switch v := c.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// present reports whether the cell carries a value. Empty strings, nil and a
// lone dash all mean "absent".
func present(c Cell) (string, bool) {
	s := strings.TrimSpace(cellText(c))
	if s == "" || s == "-" {
		return "", false
	}
	return s, true
}

// Hard rules: absent values produce a blocking finding.

func requiredText(c Cell, column string) (string, *issue) {
	s, ok := present(c)
	if !ok {
		return "", &issue{severity: SeverityError, message: column + " is required"}
	}
	return s, nil
}

// Validated soft rules: absent values default silently, invalid ones warn.

func coercePriority(c Cell) (*int, *issue) {
	s, ok := present(c)
	if !ok {
		return nil, nil
	}
	m := priorityPattern.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return nil, warning(msgPriorityOutOfRange)
	}
	p, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, warning(msgPriorityOutOfRange)
	}
	return &p, nil
}

func coerceEstimate(c Cell) (float64, *issue) {
	s, ok := present(c)
	if !ok {
		return 0, nil
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.ToLower(s), "h"))
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0, warning(msgInvalidEstimate)
	}
	return d.Round(1).InexactFloat64(), nil
}

// Silent soft rules: never produce findings.

func coerceType(c Cell) task.Type {
	s, ok := present(c)
	if !ok {
		return task.TypeFrontend
	}
	s = Normalize(s)
	switch {
	case strings.Contains(s, "full"), strings.Contains(s, "stack"):
		return task.TypeFullstack
	case strings.Contains(s, "back"):
		return task.TypeBackend
	default:
		return task.TypeFrontend
	}
}

func coerceCategory(c Cell) task.Category {
	s, ok := present(c)
	if !ok {
		return task.CategoryFeature
	}
	s = Normalize(s)
	switch {
	case strings.Contains(s, "bug"):
		return task.CategoryBug
	case strings.Contains(s, "refin"):
		return task.CategoryRefinement
	default:
		return task.CategoryFeature
	}
}

func coerceBool(c Cell) bool {
	s, ok := present(c)
	if !ok {
		return false
	}
	_, yes := truthy[Normalize(s)]
	return yes
}

// coerceResponsibles splits "Illian Souza + natan" into ["illian", "natan"].
func coerceResponsibles(c Cell) []string {
	s, ok := present(c)
	if !ok {
		return []string{}
	}
	seen := make(map[string]struct{})
	out := make([]string, 0, 2)
	for _, token := range strings.Split(s, "+") {
		words := strings.Fields(token)
		if len(words) == 0 {
			continue
		}
		key := Normalize(words[0])
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.ToLower(words[0]))
	}
	return out
}
