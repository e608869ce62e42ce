package engine

import (
	"fmt"
	"regexp"
)

// tokenRe — токен шаблона: {{variable}} или {{path.to.field}}.
// Пробелы внутри скобок допускаются.
var tokenRe = regexp.MustCompile(`\{\{\s*([\w.\[\]]+)\s*\}\}`)

// Renderer рендерит шаблоны нотификаций.
//
// Нулевое значение готово к использованию и работает в мягком режиме:
// неразрешённый токен заменяется пустой строкой, а промах фиксируется
// в Warnings. В strict mode неразрешённый токен — это ошибка рендеринга,
// и правило завершается с render_error.
type Renderer struct {
	// Strict — считать неразрешённый токен ошибкой вместо деградации.
	Strict bool
}

// RenderResult — результат рендеринга одного шаблона.
type RenderResult struct {
	// Output — отрендеренная строка.
	Output string

	// Consumed — имена переменных, фактически использованных шаблоном.
	Consumed []string

	// Warnings — предупреждения (токены, не найденные в наборе переменных).
	Warnings []string
}

// Render подставляет переменные в шаблон.
//
// Поиск переменной: сначала плоский ключ в наборе, затем dot-path внутрь
// набора (для вложенных документов payload). Значения форматируются так
// же, как при сравнении условий: числа без хвостовых нулей.
func (r *Renderer) Render(tmpl string, vars map[string]any) (RenderResult, error) {
	result := RenderResult{}

	var missing []string
	result.Output = tokenRe.ReplaceAllStringFunc(tmpl, func(token string) string {
		name := tokenRe.FindStringSubmatch(token)[1]

		value, ok := vars[name]
		if !ok {
			value, ok = ResolvePath(vars, name)
		}
		if !ok {
			missing = append(missing, name)
			result.Warnings = append(result.Warnings, fmt.Sprintf("variable %q is not defined", name))
			return ""
		}

		result.Consumed = append(result.Consumed, name)
		return toString(value)
	})

	if r.Strict && len(missing) > 0 {
		return result, fmt.Errorf("%w: %w: %v", ErrTemplateRender, ErrUnresolvedVariable, missing)
	}

	return result, nil
}

// RenderInto рендерит шаблон, накапливая Consumed и Warnings в общий
// результат. Удобно для серии шаблонов одного правила (title, message,
// action URL).
func (r *Renderer) RenderInto(tmpl string, vars map[string]any, acc *RenderResult) (string, error) {
	res, err := r.Render(tmpl, vars)
	acc.Consumed = append(acc.Consumed, res.Consumed...)
	acc.Warnings = append(acc.Warnings, res.Warnings...)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}
