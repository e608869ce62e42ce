package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// arrayIndexRe — сегмент пути с индексом массива: "items[0]".
var arrayIndexRe = regexp.MustCompile(`^(.+)\[(\d+)\]$`)

// ResolvePath разрешает dot-path внутри документа.
//
// Возвращает (значение, true) при успехе и (nil, false), если какой-либо
// сегмент пути отсутствует. Отсутствие ключа — обычный исход, не ошибка:
// операторы is_null/is_not_null опираются именно на него.
//
// Поддерживаются вложенные ключи ("user.profile.name") и индексы
// массивов ("items[0].sku").
func ResolvePath(doc map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = doc
	for _, segment := range strings.Split(path, ".") {
		key := segment
		index := -1

		if m := arrayIndexRe.FindStringSubmatch(segment); m != nil {
			key = m[1]
			index, _ = strconv.Atoi(m[2])
		}

		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		value, ok := obj[key]
		if !ok {
			return nil, false
		}

		if index >= 0 {
			arr, ok := value.([]any)
			if !ok || index >= len(arr) {
				return nil, false
			}
			value = arr[index]
		}

		current = value
	}

	return current, true
}
