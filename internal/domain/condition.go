package domain

// Operator — оператор сравнения в условии.
//
// Набор операторов закрытый: движок не поддерживает произвольные выражения,
// семантика коэрции и сравнения каждого оператора определена в engine ровно
// один раз.
type Operator string

const (
	OpEquals       Operator = "equals"
	OpNotEquals    Operator = "not_equals"
	OpGreaterThan  Operator = "greater_than"
	OpGreaterEqual Operator = "greater_equal"
	OpLessThan     Operator = "less_than"
	OpLessEqual    Operator = "less_equal"
	OpContains     Operator = "contains"
	OpNotContains  Operator = "not_contains"
	OpStartsWith   Operator = "starts_with"
	OpEndsWith     Operator = "ends_with"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
	OpIsNull       Operator = "is_null"
	OpIsNotNull    Operator = "is_not_null"
	OpRegex        Operator = "regex"
)

// KnownOperator возвращает true, если оператор входит в закрытый набор.
func KnownOperator(op Operator) bool {
	switch op {
	case OpEquals, OpNotEquals,
		OpGreaterThan, OpGreaterEqual, OpLessThan, OpLessEqual,
		OpContains, OpNotContains, OpStartsWith, OpEndsWith,
		OpIn, OpNotIn, OpIsNull, OpIsNotNull, OpRegex:
		return true
	default:
		return false
	}
}

// ValueType — объявленный тип значения условия.
// Определяет, как коэрцируются значение условия и разрешённое поле
// перед сравнением.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
	TypeArray   ValueType = "array"
)

// Logic — комбинатор между результатом условия и аккумулятором
// всех предыдущих условий списка.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Condition — один типизированный предикат над payload события.
//
// Условия вычисляются в порядке хранения, слева направо, без группировки
// и приоритета операторов: результат i-го условия комбинируется с
// аккумулятором через его собственный Logic. У первого условия Logic
// не имеет значения — оно инициализирует аккумулятор.
type Condition struct {
	// Field — dot-path внутрь payload события ("data.quantity",
	// "items[0].sku"). Отсутствие ключа — не ошибка, а первоклассный
	// исход "absent".
	Field string `json:"field"`

	// Operator — оператор из закрытого набора.
	Operator Operator `json:"operator"`

	// Value — литерал или массив для сравнения.
	Value any `json:"value,omitempty"`

	// Type — объявленный тип для коэрции обеих сторон сравнения.
	Type ValueType `json:"type,omitempty"`

	// Logic — комбинатор с аккумулятором предыдущих условий.
	Logic Logic `json:"logic,omitempty"`
}
