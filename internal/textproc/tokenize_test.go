package textproc

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty input",
			text: "",
			want: []string{},
		},
		{
			name: "stop words dropped",
			text: "взыскание от должника на основании ст 110",
			want: []string{"взыскан", "должник", "основан", "110"},
		},
		{
			name: "case folded before stemming",
			text: "Ромашка РОМАШКА ромашка",
			want: []string{"ромашк", "ромашк", "ромашк"},
		},
		{
			name: "single letters dropped",
			text: "в о и договоры",
			want: []string{"договор"},
		},
	}

	tok := NewTokenizer("russian")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Tokenize(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

// The stem memo must not alter output, only latency: cold and warm cache
// results are identical.
func TestTokenizeDeterministic(t *testing.T) {
	text := "общество обратилось в арбитражный суд с заявлением"

	cold := NewTokenizer("russian").Tokenize(text)

	warm := NewTokenizer("russian")
	warm.Tokenize(text)
	if got := warm.Tokenize(text); !reflect.DeepEqual(got, cold) {
		t.Errorf("warm cache changed output: %v != %v", got, cold)
	}
}

func TestTokenizeCacheGrowth(t *testing.T) {
	tok := NewTokenizer("russian")
	tok.Tokenize("договор аренды")
	if n := tok.CacheSize(); n != 2 {
		t.Errorf("CacheSize() = %d after two distinct words, want 2", n)
	}
	tok.Tokenize("договор аренды")
	if n := tok.CacheSize(); n != 2 {
		t.Errorf("CacheSize() = %d after repeat, want 2", n)
	}
}
