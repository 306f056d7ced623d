package status

import (
	"errors"
	"testing"
)

// TestTransitionTable проверяет полную матрицу переходов.
func TestTransitionTable(t *testing.T) {
	all := []Status{Concept, Published, Revoked}
	allowed := map[[2]Status]bool{
		{Concept, Published}: true,
		{Concept, Revoked}:   true,
		{Published, Revoked}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, ожидается %v", from, to, got, want)
			}

			err := Transition(from, to)
			if want && err != nil {
				t.Errorf("Transition(%s, %s): неожиданная ошибка: %v", from, to, err)
			}
			if !want {
				var te *TransitionError
				if !errors.As(err, &te) {
					t.Errorf("Transition(%s, %s): ожидалась TransitionError, получено %v", from, to, err)
					continue
				}
				if te.Code != CodeInvalidTransition {
					t.Errorf("Transition(%s, %s): код %q, ожидается %q", from, to, te.Code, CodeInvalidTransition)
				}
			}
		}
	}
}

// TestRevokedIsTerminal проверяет, что из ingetrokken выйти нельзя.
func TestRevokedIsTerminal(t *testing.T) {
	for _, to := range []Status{Concept, Published, Revoked} {
		if err := Transition(Revoked, to); err == nil {
			t.Errorf("ingetrokken → %s должен вернуть ошибку", to)
		}
	}
}

// TestTransition_InvalidTarget проверяет неизвестный целевой статус.
func TestTransition_InvalidTarget(t *testing.T) {
	err := Transition(Concept, Status("deleted"))
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("ожидалась TransitionError, получено %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Status
		wantErr bool
	}{
		{name: "concept", input: "concept", want: Concept},
		{name: "опубликован", input: "gepubliceerd", want: Published},
		{name: "отозван", input: "ingetrokken", want: Revoked},
		{name: "пустая строка", input: "", wantErr: true},
		{name: "английское значение", input: "published", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Parse(%q): ожидалась ошибка", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): неожиданная ошибка: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, ожидается %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestVisible(t *testing.T) {
	tests := []struct {
		doc, pub Status
		want     bool
	}{
		{Published, Published, true},
		{Published, Concept, false},
		{Published, Revoked, false},
		{Concept, Published, false},
		{Revoked, Published, false},
	}
	for _, tt := range tests {
		if got := Visible(tt.doc, tt.pub); got != tt.want {
			t.Errorf("Visible(%s, %s) = %v, ожидается %v", tt.doc, tt.pub, got, tt.want)
		}
	}
}
