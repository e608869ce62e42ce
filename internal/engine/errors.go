package engine

import "errors"

// Ошибки рендеринга шаблонов.
var (
	// ErrTemplateRender — рендеринг не удался (только strict mode).
	ErrTemplateRender = errors.New("template render failed")

	// ErrUnresolvedVariable — токен не разрешён против набора переменных
	// (оборачивается в ErrTemplateRender в strict mode).
	ErrUnresolvedVariable = errors.New("unresolved template variable")
)

// Ошибки валидации условий.
var (
	// ErrUnknownOperator — оператор вне закрытого набора.
	ErrUnknownOperator = errors.New("unknown condition operator")

	// ErrEmptyField — условие без field.
	ErrEmptyField = errors.New("condition has empty field")
)
