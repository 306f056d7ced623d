// Пакет retention — расчёт даты архивного действия публикации.
//
// Calculator — чистая функция от правил хранения связанных информационных
// категорий и дат событий публикации. Дата архивного действия — самая поздняя
// из дат, полученных по всем категориям. Поля записи о сроке хранения
// (источник, категория отбора, номинация, пояснение) берутся из определяющей
// категории: категория с номинацией «хранить постоянно» всегда важнее
// категорий «уничтожить».
package retention

import (
	"sort"
	"time"
)

// Nomination — архивная номинация категории.
type Nomination string

const (
	// NominationRetain — хранить постоянно.
	NominationRetain Nomination = "blijvend_bewaren"
	// NominationDispose — уничтожить по истечении срока.
	NominationDispose Nomination = "vernietigen"
)

// StartEvent — событие, от которого отсчитывается срок хранения.
type StartEvent string

const (
	// StartPublished — дата публикации (с откатом на дату регистрации).
	StartPublished StartEvent = "published"
	// StartRegistered — дата регистрации.
	StartRegistered StartEvent = "registered"
)

// Rule — правило хранения одной информационной категории.
type Rule struct {
	CategoryID        string
	Order             int
	Years             int
	Nomination        Nomination
	StartEvent        StartEvent
	Source            string
	SelectionCategory string
	Explanation       string
}

// Dates — даты событий публикации, к которым привязываются сроки.
type Dates struct {
	RegisteredAt time.Time
	PublishedAt  *time.Time
}

// Record — результат расчёта и сохраняемые поля записи о сроке хранения.
type Record struct {
	ArchiveActionDate *time.Time
	Source            string
	SelectionCategory string
	Nomination        Nomination
	Explanation       string
}

// State — текущее состояние полей хранения публикации.
type State struct {
	Record
	// Overridden — дата задана оператором и не пересчитывается.
	Overridden bool
}

// Calculator вычисляет даты в заданном часовом поясе.
type Calculator struct {
	loc *time.Location
}

// NewCalculator создаёт калькулятор. nil — UTC.
func NewCalculator(loc *time.Location) Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return Calculator{loc: loc}
}

// Calculate возвращает запись о сроке хранения для набора правил.
// ok = false, если правил нет.
func (c Calculator) Calculate(rules []Rule, dates Dates) (Record, bool) {
	if len(rules) == 0 {
		return Record{}, false
	}

	var latest *time.Time
	for _, r := range rules {
		d := c.actionDate(r, dates)
		if latest == nil || d.After(*latest) {
			latest = &d
		}
	}

	decisive := decisiveRule(rules)
	return Record{
		ArchiveActionDate: latest,
		Source:            decisive.Source,
		SelectionCategory: decisive.SelectionCategory,
		Nomination:        decisive.Nomination,
		Explanation:       decisive.Explanation,
	}, true
}

// Recompute применяет правила к текущему состоянию.
// При Overridden состояние возвращается без изменений.
// Без правил сохранённое значение не трогается.
func (c Calculator) Recompute(current State, rules []Rule, dates Dates) State {
	if current.Overridden {
		return current
	}
	rec, ok := c.Calculate(rules, dates)
	if !ok {
		return current
	}
	return State{Record: rec}
}

// actionDate — локальная дата события + срок хранения в годах.
func (c Calculator) actionDate(r Rule, dates Dates) time.Time {
	anchor := dates.RegisteredAt
	if r.StartEvent != StartRegistered && dates.PublishedAt != nil {
		anchor = *dates.PublishedAt
	}
	local := anchor.In(c.loc).AddDate(r.Years, 0, 0)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// decisiveRule выбирает категорию, из которой копируются поля записи:
// среди retain — с наименьшим сроком, иначе среди dispose — с наибольшим.
// При равных сроках решает порядок категории.
func decisiveRule(rules []Rule) Rule {
	if len(rules) == 1 {
		return rules[0]
	}

	var retain, dispose []Rule
	for _, r := range rules {
		if r.Nomination == NominationRetain {
			retain = append(retain, r)
		} else {
			dispose = append(dispose, r)
		}
	}

	if len(retain) > 0 {
		sort.SliceStable(retain, func(i, j int) bool {
			if retain[i].Years != retain[j].Years {
				return retain[i].Years < retain[j].Years
			}
			return retain[i].Order < retain[j].Order
		})
		return retain[0]
	}

	sort.SliceStable(dispose, func(i, j int) bool {
		if dispose[i].Years != dispose[j].Years {
			return dispose[i].Years > dispose[j].Years
		}
		return dispose[i].Order < dispose[j].Order
	})
	return dispose[0]
}
