package markdown

import "testing"

func TestStrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "Добрый день, чем помочь?", "Добрый день, чем помочь?"},
		{"bold", "Есть **говядина** и __свинина__", "Есть говядина и свинина"},
		{"italic", "Цена *за килограмм*", "Цена за килограмм"},
		{"heading", "# Каталог\nТовары", "Каталог\nТовары"},
		{"link keeps text", "Смотрите [каталог](https://example.com)", "Смотрите каталог"},
		{"image keeps alt", "![фото](https://example.com/a.jpg)", "фото"},
		{"inline code", "введите `reset`", "введите reset"},
		{"fenced block dropped", "Ответ:\n```sql\nSELECT 1\n```\nГотово", "Ответ:\n\nГотово"},
		{"list markers", "- говядина\n- свинина", "говядина\nсвинина"},
		{"ordered list markers", "1. первый\n2. второй", "первый\nвторой"},
		{"blockquote", "> примечание", "примечание"},
		{"whitespace trimmed", "  привет  ", "привет"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Strip(tt.in); got != tt.want {
				t.Errorf("Strip(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripFencesKeepsOtherFormatting(t *testing.T) {
	in := "**важно**\n```\ncode\n```"
	want := "**важно**\n"
	if got := StripFences(in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
