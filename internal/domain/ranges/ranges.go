// Пакет ranges — учёт покрытия байтового диапазона загрузки.
//
// Set хранит отсортированные, непересекающиеся и склеенные полуинтервалы [Start, End).
// Память пропорциональна числу «дыр», а не размеру файла: полностью
// загруженный файл описывается одним интервалом.
package ranges

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Range — полуинтервал байтов [Start, End).
type Range struct {
	Start int64
	End   int64
}

// Len возвращает длину интервала в байтах.
func (r Range) Len() int64 {
	return r.End - r.Start
}

// Empty проверяет, что интервал пустой.
func (r Range) Empty() bool {
	return r.End <= r.Start
}

// MarshalJSON сериализует интервал как пару [start, end].
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{r.Start, r.End})
}

// UnmarshalJSON разбирает пару [start, end].
func (r *Range) UnmarshalJSON(data []byte) error {
	var pair [2]int64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("некорректный интервал: %w", err)
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Set — нормализованное множество интервалов.
// Нулевое значение — пустое множество.
type Set []Range

// Add возвращает новое множество с добавленным интервалом r.
// Пересекающиеся и смежные интервалы склеиваются, повторная передача
// уже покрытых байтов не меняет покрытие.
func (s Set) Add(r Range) Set {
	if r.Empty() {
		return s.clone()
	}

	// Первый интервал, который может пересечься или примкнуть к r
	i := sort.Search(len(s), func(i int) bool { return s[i].End >= r.Start })

	merged := r
	j := i
	for j < len(s) && s[j].Start <= merged.End {
		if s[j].Start < merged.Start {
			merged.Start = s[j].Start
		}
		if s[j].End > merged.End {
			merged.End = s[j].End
		}
		j++
	}

	result := make(Set, 0, len(s)-(j-i)+1)
	result = append(result, s[:i]...)
	result = append(result, merged)
	result = append(result, s[j:]...)
	return result
}

// Covered возвращает суммарное число покрытых байтов (без двойного учёта).
func (s Set) Covered() int64 {
	var total int64
	for _, r := range s {
		total += r.Len()
	}
	return total
}

// CoversExactly проверяет, что множество покрывает ровно [0, total).
func (s Set) CoversExactly(total int64) bool {
	return len(s) == 1 && s[0].Start == 0 && s[0].End == total
}

// Missing возвращает непокрытые участки [0, total) — что клиенту нужно дослать.
func (s Set) Missing(total int64) []Range {
	var gaps []Range
	var cursor int64
	for _, r := range s {
		if r.Start >= total {
			break
		}
		if r.Start > cursor {
			gaps = append(gaps, Range{Start: cursor, End: r.Start})
		}
		if r.End > cursor {
			cursor = r.End
		}
	}
	if cursor < total {
		gaps = append(gaps, Range{Start: cursor, End: total})
	}
	return gaps
}

// Normalize приводит произвольный набор интервалов к нормализованному Set.
func Normalize(rs []Range) Set {
	var s Set
	for _, r := range rs {
		s = s.Add(r)
	}
	return s
}

func (s Set) clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	copy(out, s)
	return out
}
