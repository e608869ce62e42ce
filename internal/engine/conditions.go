package engine

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/shaiso/Notiflow/internal/domain"
)

// EvaluateConditions оценивает упорядоченный список условий против payload.
//
// Возвращает итоговый bool и полную трассировку по каждому условию
// (она сохраняется в Execution.ConditionResults дословно).
//
// Семантика:
//   - Пустой список — вакуумно true: правило без условий срабатывает на
//     любое событие, подобранное по триггеру.
//   - Условия комбинируются слева направо через Logic каждого условия,
//     первое условие инициализирует аккумулятор. Группировки и приоритета
//     операторов нет.
//   - Любая ошибка внутри условия (коэрция, regex, отсутствие поля там,
//     где оно требуется) деградирует это условие в false с причиной в
//     трассировке. Функция никогда не возвращает ошибку.
func EvaluateConditions(conditions []domain.Condition, payload map[string]any) (bool, []domain.ConditionResult) {
	if len(conditions) == 0 {
		return true, nil
	}

	trace := make([]domain.ConditionResult, 0, len(conditions))
	result := false

	for i, cond := range conditions {
		cr := evaluateCondition(cond, payload)
		trace = append(trace, cr)

		if i == 0 {
			result = cr.Passed
			continue
		}

		if cond.Logic == domain.LogicOr {
			result = result || cr.Passed
		} else {
			// AND по умолчанию, как в исходной системе.
			result = result && cr.Passed
		}
	}

	return result, trace
}

// evaluateCondition оценивает одно условие.
func evaluateCondition(cond domain.Condition, payload map[string]any) domain.ConditionResult {
	cr := domain.ConditionResult{
		Field:    cond.Field,
		Operator: cond.Operator,
	}

	if cond.Field == "" {
		cr.Reason = "empty field path"
		return cr
	}
	if !domain.KnownOperator(cond.Operator) {
		cr.Reason = fmt.Sprintf("unknown operator %q", cond.Operator)
		return cr
	}

	fieldValue, found := ResolvePath(payload, cond.Field)
	cr.FieldValue = fieldValue
	cr.FieldFound = found

	// null-операторы работают до коэрции: отсутствующий ключ — это null.
	switch cond.Operator {
	case domain.OpIsNull:
		cr.Passed = !found || fieldValue == nil
		return cr
	case domain.OpIsNotNull:
		cr.Passed = found && fieldValue != nil
		return cr
	}

	if !found {
		cr.Reason = "field not found"
		return cr
	}

	passed, reason := compare(cond, fieldValue)
	cr.Passed = passed
	cr.Reason = reason
	return cr
}

// compare выполняет типизированное сравнение по оператору условия.
// Возвращает (результат, причина-отказа). Непустая причина означает,
// что условие деградировало в false из-за ошибки, а не из-за сравнения.
func compare(cond domain.Condition, fieldValue any) (bool, string) {
	switch cond.Operator {
	case domain.OpEquals, domain.OpNotEquals:
		equal, reason := coercedEqual(cond, fieldValue, cond.Value)
		if reason != "" {
			return false, reason
		}
		if cond.Operator == domain.OpNotEquals {
			return !equal, ""
		}
		return equal, ""

	case domain.OpGreaterThan, domain.OpGreaterEqual, domain.OpLessThan, domain.OpLessEqual:
		left, err := toNumber(fieldValue)
		if err != nil {
			return false, fmt.Sprintf("field is not a number: %v", err)
		}
		right, err := toNumber(cond.Value)
		if err != nil {
			return false, fmt.Sprintf("condition value is not a number: %v", err)
		}
		switch cond.Operator {
		case domain.OpGreaterThan:
			return left > right, ""
		case domain.OpGreaterEqual:
			return left >= right, ""
		case domain.OpLessThan:
			return left < right, ""
		default:
			return left <= right, ""
		}

	case domain.OpContains, domain.OpNotContains, domain.OpStartsWith, domain.OpEndsWith:
		haystack := toString(fieldValue)
		needle := toString(cond.Value)
		var ok bool
		switch cond.Operator {
		case domain.OpContains:
			ok = strings.Contains(haystack, needle)
		case domain.OpNotContains:
			ok = !strings.Contains(haystack, needle)
		case domain.OpStartsWith:
			ok = strings.HasPrefix(haystack, needle)
		default:
			ok = strings.HasSuffix(haystack, needle)
		}
		return ok, ""

	case domain.OpIn, domain.OpNotIn:
		list, ok := toSlice(cond.Value)
		if !ok {
			return false, "condition value is not an array"
		}
		member := false
		for _, item := range list {
			equal, reason := coercedEqual(cond, fieldValue, item)
			if reason != "" {
				continue
			}
			if equal {
				member = true
				break
			}
		}
		if cond.Operator == domain.OpNotIn {
			return !member, ""
		}
		return member, ""

	case domain.OpRegex:
		pattern := toString(cond.Value)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Sprintf("invalid regex: %v", err)
		}
		return re.MatchString(toString(fieldValue)), ""

	default:
		return false, fmt.Sprintf("unknown operator %q", cond.Operator)
	}
}

// coercedEqual сравнивает два значения согласно объявленному типу условия.
func coercedEqual(cond domain.Condition, left, right any) (bool, string) {
	switch effectiveType(cond, right) {
	case domain.TypeNumber:
		l, err := toNumber(left)
		if err != nil {
			return false, fmt.Sprintf("field is not a number: %v", err)
		}
		r, err := toNumber(right)
		if err != nil {
			return false, fmt.Sprintf("condition value is not a number: %v", err)
		}
		return l == r, ""

	case domain.TypeBoolean:
		l, err := toBool(left)
		if err != nil {
			return false, fmt.Sprintf("field is not a boolean: %v", err)
		}
		r, err := toBool(right)
		if err != nil {
			return false, fmt.Sprintf("condition value is not a boolean: %v", err)
		}
		return l == r, ""

	case domain.TypeArray:
		return reflect.DeepEqual(left, right), ""

	default:
		return toString(left) == toString(right), ""
	}
}

// effectiveType возвращает объявленный тип условия, а при его отсутствии
// выводит тип из самого значения.
func effectiveType(cond domain.Condition, value any) domain.ValueType {
	if cond.Type != "" {
		return cond.Type
	}
	switch value.(type) {
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return domain.TypeNumber
	case bool:
		return domain.TypeBoolean
	case []any:
		return domain.TypeArray
	default:
		return domain.TypeString
	}
}

// --- Коэрции ---

func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", n, err)
		}
		return parsed, nil
	case nil:
		return 0, fmt.Errorf("value is null")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("parse %q: %w", b, err)
		}
		return parsed, nil
	case nil:
		return false, fmt.Errorf("value is null")
	default:
		return false, fmt.Errorf("unsupported type %T", v)
	}
}

func toSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, true
	default:
		return nil, false
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64:
		// Целые числа из JSON приходят как float64 — печатаем без ".000000".
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
