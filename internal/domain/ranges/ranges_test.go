package ranges

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSet_Add(t *testing.T) {
	tests := []struct {
		name  string
		input []Range
		want  Set
	}{
		{
			name:  "один интервал",
			input: []Range{{0, 10}},
			want:  Set{{0, 10}},
		},
		{
			name:  "обратный порядок с разрывом",
			input: []Range{{20, 30}, {0, 10}},
			want:  Set{{0, 10}, {20, 30}},
		},
		{
			name:  "смежные склеиваются",
			input: []Range{{0, 10}, {10, 20}},
			want:  Set{{0, 20}},
		},
		{
			name:  "перекрытие склеивается",
			input: []Range{{0, 15}, {10, 20}},
			want:  Set{{0, 20}},
		},
		{
			name:  "интервал поглощает несколько",
			input: []Range{{0, 5}, {10, 15}, {20, 25}, {3, 22}},
			want:  Set{{0, 25}},
		},
		{
			name:  "вложенный интервал не меняет множество",
			input: []Range{{0, 100}, {10, 20}},
			want:  Set{{0, 100}},
		},
		{
			name:  "пустой интервал игнорируется",
			input: []Range{{0, 10}, {5, 5}},
			want:  Set{{0, 10}},
		},
		{
			name:  "вставка между интервалами",
			input: []Range{{0, 10}, {30, 40}, {15, 20}},
			want:  Set{{0, 10}, {15, 20}, {30, 40}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%v) = %v, ожидается %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestSet_ReverseOrderWithOverlap — файл 1000 байт: [500,1000), [0,500) и повтор [499,501).
func TestSet_ReverseOrderWithOverlap(t *testing.T) {
	var s Set
	s = s.Add(Range{500, 1000})
	s = s.Add(Range{0, 500})
	s = s.Add(Range{499, 501})

	if !s.CoversExactly(1000) {
		t.Fatalf("CoversExactly(1000) = false, множество %v", s)
	}
	if s.Covered() != 1000 {
		t.Errorf("Covered() = %d, ожидается 1000 (без двойного учёта)", s.Covered())
	}
}

func TestSet_AddDoesNotMutate(t *testing.T) {
	s := Set{{0, 10}, {20, 30}}
	_ = s.Add(Range{5, 25})
	if !reflect.DeepEqual(s, Set{{0, 10}, {20, 30}}) {
		t.Errorf("Add изменил исходное множество: %v", s)
	}
}

func TestSet_CoversExactly(t *testing.T) {
	tests := []struct {
		name  string
		set   Set
		total int64
		want  bool
	}{
		{name: "полное покрытие", set: Set{{0, 100}}, total: 100, want: true},
		{name: "дыра", set: Set{{0, 40}, {50, 100}}, total: 100, want: false},
		{name: "не с нуля", set: Set{{1, 100}}, total: 100, want: false},
		{name: "недобор", set: Set{{0, 99}}, total: 100, want: false},
		{name: "пустое множество", set: nil, total: 100, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.CoversExactly(tt.total); got != tt.want {
				t.Errorf("CoversExactly(%d) = %v, ожидается %v", tt.total, got, tt.want)
			}
		})
	}
}

func TestSet_Missing(t *testing.T) {
	s := Set{{10, 20}, {30, 40}}
	got := s.Missing(50)
	want := []Range{{0, 10}, {20, 30}, {40, 50}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Missing(50) = %v, ожидается %v", got, want)
	}

	if gaps := (Set{{0, 50}}).Missing(50); len(gaps) != 0 {
		t.Errorf("Missing для полного покрытия = %v, ожидается пусто", gaps)
	}
}

func TestSet_JSON(t *testing.T) {
	s := Set{{0, 10}, {20, 30}}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != "[[0,10],[20,30]]" {
		t.Errorf("Marshal = %s, ожидается [[0,10],[20,30]]", data)
	}

	var back Set
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, s) {
		t.Errorf("Unmarshal = %v, ожидается %v", back, s)
	}
}
