package codeloop

import "testing"

func TestUserMessage(t *testing.T) {
	msg := UserMessage("hello")
	if msg.Role != "user" {
		t.Errorf("Role = %q, want %q", msg.Role, "user")
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "hello")
	}
}

func TestSystemMessage(t *testing.T) {
	msg := SystemMessage("you are helpful")
	if msg.Role != "system" {
		t.Errorf("Role = %q, want %q", msg.Role, "system")
	}
	if msg.Content != "you are helpful" {
		t.Errorf("Content = %q, want %q", msg.Content, "you are helpful")
	}
}

func TestLanguageString(t *testing.T) {
	tests := map[Language]string{
		LangPython:     "python",
		LangJavaScript: "javascript",
		LangSQL:        "sql",
		LangUnknown:    "unknown",
		Language(42):   "unknown",
	}
	for lang, want := range tests {
		if got := lang.String(); got != want {
			t.Errorf("Language(%d).String() = %q, want %q", int(lang), got, want)
		}
	}
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want Language
	}{
		{"python", LangPython},
		{"PY", LangPython},
		{" python3 ", LangPython},
		{"JavaScript", LangJavaScript},
		{"node", LangJavaScript},
		{"js", LangJavaScript},
		{"sql", LangSQL},
		{"sqlite", LangSQL},
	}
	for _, tt := range tests {
		got, err := ParseLanguage(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLanguage(%q) = %s, %v; want %s", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseLanguage("cobol"); err == nil {
		t.Error("expected error for unknown language")
	}
}

func TestOkFail(t *testing.T) {
	ok := Ok("out")
	if !ok.OK || ok.Output != "out" || ok.Kind != "" {
		t.Errorf("Ok() = %+v", ok)
	}
	fail := Fail(KindSyntax, "bad")
	if fail.OK || fail.Kind != KindSyntax || fail.Message != "bad" {
		t.Errorf("Fail() = %+v", fail)
	}
}
