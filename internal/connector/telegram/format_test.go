package telegram

import "testing"

func TestMarkdownToTelegramHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"*Atendimento Encerrado.*", "<b>Atendimento Encerrado.</b>"},
		{"Falando sobre: `20240101120000`", "Falando sobre: <code>20240101120000</code>"},
		{"_transcrição_", "<i>transcrição</i>"},
		{"a < b & c > d", "a &lt; b &amp; c &gt; d"},
		{"plain text", "plain text"},
		{"*bold* and _italic_", "<b>bold</b> and <i>italic</i>"},
	}

	for _, tt := range tests {
		if got := MarkdownToTelegramHTML(tt.in); got != tt.want {
			t.Errorf("MarkdownToTelegramHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"*Menu*", "Menu"},
		{"`code` and *bold*", "code and bold"},
		{"no markers", "no markers"},
	}

	for _, tt := range tests {
		if got := StripMarkdown(tt.in); got != tt.want {
			t.Errorf("StripMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
