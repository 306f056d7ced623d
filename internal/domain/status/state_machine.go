// Пакет status — конечный автомат статуса раскрытия публикаций, документов и тем.
//
// Жизненный цикл: concept → gepubliceerd → ingetrokken, а также concept → ingetrokken.
// Статус ingetrokken конечный: выйти из него нельзя. Возврат в concept запрещён.
//
// Пакет не хранит состояние: таблица переходов применяется к паре (текущий, целевой),
// а атомарность обеспечивает транзакция сервисного слоя.
package status

import "fmt"

// Status — статус раскрытия сущности.
type Status string

const (
	// Concept — черновик, не виден снаружи и не индексируется.
	Concept Status = "concept"
	// Published — опубликован, виден снаружи и находится в поисковом индексе.
	Published Status = "gepubliceerd"
	// Revoked — отозван (конечный статус), удаляется из индекса.
	Revoked Status = "ingetrokken"
)

// CodeInvalidTransition — машиночитаемый код недопустимого перехода.
const CodeInvalidTransition = "INVALID_TRANSITION"

// validTransitions — матрица допустимых переходов.
// Ключ — текущий статус, значение — набор допустимых целевых статусов.
var validTransitions = map[Status]map[Status]bool{
	Concept:   {Published: true, Revoked: true},
	Published: {Revoked: true},
	Revoked:   {}, // Конечный статус — переходы запрещены
}

// Parse преобразует строку в Status.
// Возвращает ошибку для недопустимых значений.
func Parse(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("недопустимый статус: %q, допустимые: concept, gepubliceerd, ingetrokken", s)
	}
	return st, nil
}

// Valid проверяет, является ли значение допустимым статусом.
func (s Status) Valid() bool {
	switch s {
	case Concept, Published, Revoked:
		return true
	default:
		return false
	}
}

// CanTransition проверяет, допустим ли переход from → to.
func CanTransition(from, to Status) bool {
	return validTransitions[from][to]
}

// Transition проверяет переход from → to и возвращает *TransitionError,
// если переход недопустим.
func Transition(from, to Status) error {
	if !to.Valid() {
		return &TransitionError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("недопустимый целевой статус: %q", to),
		}
	}
	if !CanTransition(from, to) {
		return &TransitionError{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("переход %s → %s недопустим", from, to),
		}
	}
	return nil
}

// Visible возвращает эффективную видимость документа:
// собственный статус и статус публикации должны быть gepubliceerd.
func Visible(documentStatus, publicationStatus Status) bool {
	return documentStatus == Published && publicationStatus == Published
}

// TransitionError — ошибка перехода между статусами.
type TransitionError struct {
	Code    string // Машиночитаемый код (INVALID_TRANSITION)
	Message string // Человекочитаемое описание
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
