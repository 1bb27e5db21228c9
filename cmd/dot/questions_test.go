package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseQuestionList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "paren numbering",
			in:   "1) first question\n2) second question\n",
			want: []string{"first question", "second question"},
		},
		{
			name: "equals numbering",
			in:   "1= first\n2= second",
			want: []string{"first", "second"},
		},
		{
			name: "dot numbering",
			in:   "1. alpha\n2. beta\n3. gamma",
			want: []string{"alpha", "beta", "gamma"},
		},
		{
			name: "continuation lines fold into the item",
			in:   "1) a question that\n   spans two lines\n2) short one",
			want: []string{"a question that spans two lines", "short one"},
		},
		{
			name: "whitespace normalized",
			in:   "1)   too\t many    spaces  ",
			want: []string{"too many spaces"},
		},
		{
			name: "unnumbered falls back to line per item",
			in:   "first line\nsecond line\n\nthird line",
			want: []string{"first line", "second line", "third line"},
		},
		{
			name: "blank lines between items ignored",
			in:   "1) one\n\n\n2) two",
			want: []string{"one", "two"},
		},
		{
			name: "empty input",
			in:   "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseQuestionList(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseQuestionList = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDedupeKey(t *testing.T) {
	if dedupeKey("  Hello   WORLD ") != dedupeKey("hello world") {
		t.Error("dedupe key should fold case and whitespace")
	}
}

func TestQuestionsImport_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)
	runCmd(t, "db", "init", "--config", configPath)

	listPath := filepath.Join(dir, "truths.txt")
	list := "1) What is your worst habit?\n" +
		"2) What is your worst habit?\n" + // duplicate inside the file
		"3) Who was your first crush?\n"
	if err := os.WriteFile(listPath, []byte(list), 0644); err != nil {
		t.Fatalf("write list: %v", err)
	}

	out := runCmd(t, "questions", "import", listPath,
		"--category", "truth", "--level", "normal", "--config", configPath)
	if !strings.Contains(out, "Imported 2") {
		t.Errorf("output = %q, want 2 imported", out)
	}
	if !strings.Contains(out, "1 duplicates skipped") {
		t.Errorf("output = %q, want duplicate skip note", out)
	}

	// Re-importing the same file adds nothing.
	out = runCmd(t, "questions", "import", listPath,
		"--category", "truth", "--level", "normal", "--config", configPath)
	if !strings.Contains(out, "Imported 0") {
		t.Errorf("re-import output = %q, want 0 imported", out)
	}

	listOut := runCmd(t, "questions", "list", "--category", "truth", "--config", configPath)
	if !strings.Contains(listOut, "worst habit") {
		t.Errorf("list output missing imported question: %s", listOut)
	}
}

func TestQuestionsImport_RejectsBadCategory(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"questions", "import", "nope.txt",
		"--category", "riddle", "--level", "normal", "--config", configPath})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for bad category")
	}
}

func TestQuestionsEnableDisable_TogglesRow(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)
	runCmd(t, "db", "init", "--config", configPath)

	// Disable question 1 from the seed bank.
	out := runCmd(t, "questions", "disable", "1", "--config", configPath)
	if !strings.Contains(out, "Disabled question 1") {
		t.Errorf("output = %q, want disable confirmation", out)
	}

	listOut := runCmd(t, "questions", "list", "--config", configPath)
	if !strings.Contains(listOut, "false") {
		t.Errorf("list should show the disabled row: %s", listOut)
	}

	out = runCmd(t, "questions", "enable", "1", "--config", configPath)
	if !strings.Contains(out, "Enabled question 1") {
		t.Errorf("output = %q, want enable confirmation", out)
	}
}

func TestQuestionsExport_NumbersItems(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)
	runCmd(t, "db", "init", "--config", configPath)

	out := runCmd(t, "questions", "export", "--category", "dare", "--config", configPath)
	if !strings.HasPrefix(out, "1) ") {
		t.Errorf("export should start with a numbered item: %s", out)
	}
}
