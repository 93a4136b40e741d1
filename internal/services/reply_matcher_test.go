package services

import "testing"

func TestExtractTaskTextAnnouncement(t *testing.T) {
	text, err := ExtractTaskText("📝 Новое задание: Buy milk")
	if err != nil {
		t.Fatal(err)
	}
	if text != "Buy milk" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractTaskTextTrimsWhitespace(t *testing.T) {
	text, err := ExtractTaskText("📝 Новое задание:   Buy milk  \n")
	if err != nil {
		t.Fatal(err)
	}
	if text != "Buy milk" {
		t.Fatalf("expected trimmed text, got %q", text)
	}
}

func TestExtractTaskTextBlockFormat(t *testing.T) {
	message := "📝 Задание №3:\nBuy milk\nand bread\n\nПолучатели:\n⏳ Team A\n✅ Team B"
	text, err := ExtractTaskText(message)
	if err != nil {
		t.Fatal(err)
	}
	if text != "Buy milk\nand bread" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractTaskTextBlockStopsAtRecipients(t *testing.T) {
	message := "📝 Задание №7:\nCall the office\nПолучатели:\n⏳ Branch one"
	text, err := ExtractTaskText(message)
	if err != nil {
		t.Fatal(err)
	}
	if text != "Call the office" {
		t.Fatalf("recipient lines leaked into text: %q", text)
	}
}

func TestExtractTaskTextUnknownShape(t *testing.T) {
	if _, err := ExtractTaskText("hello there"); err == nil {
		t.Fatal("expected extraction failure")
	}
}

func TestExtractTaskTextEmptyAnnouncement(t *testing.T) {
	if _, err := ExtractTaskText("📝 Новое задание:   "); err == nil {
		t.Fatal("expected extraction failure on empty text")
	}
}
