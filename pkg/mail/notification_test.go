package mail

import (
	"strings"
	"testing"
)

func TestProcessingCompleteBodyEscapesInput(t *testing.T) {
	body := ProcessingCompleteBody("alice", "scan<script>.png", "a summary & more")
	if !strings.Contains(body, "Hello alice!") {
		t.Fatalf("body missing greeting: %q", body)
	}
	if strings.Contains(body, "<script>") {
		t.Fatal("filename was not escaped")
	}
	if !strings.Contains(body, "scan&lt;script&gt;.png") {
		t.Fatalf("escaped filename missing: %q", body)
	}
	if !strings.Contains(body, "a summary &amp; more") {
		t.Fatalf("escaped summary missing: %q", body)
	}
}

func TestNewSMTPMailerValidation(t *testing.T) {
	if _, err := NewSMTPMailer("", 587, "u", "p", "from@example.com"); err == nil {
		t.Fatal("expected error for missing host")
	}
	if _, err := NewSMTPMailer("smtp.example.com", 0, "", "", ""); err == nil {
		t.Fatal("expected error for missing sender")
	}
	m, err := NewSMTPMailer("smtp.example.com", 0, "user@example.com", "p", "")
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}
	if m.port != 587 {
		t.Fatalf("port = %d, want 587 default", m.port)
	}
	if m.from != "user@example.com" {
		t.Fatalf("from = %q, want username fallback", m.from)
	}
}
