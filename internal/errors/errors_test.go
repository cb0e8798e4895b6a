package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "system resource",
			code:    "E101",
			wantMsg: "System resource not found",
			wantCat: CategoryConfig,
		},
		{
			name:    "module shape",
			code:    "E131",
			wantMsg: "Module does not export the expected handlers",
			wantCat: CategoryModule,
		},
		{
			name:    "bundle output",
			code:    "E141",
			wantMsg: "Bundle output has no matching entry",
			wantCat: CategoryBuild,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "file %q not found", "hubro.json")
	if err.Message != `file "hubro.json" not found` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
}

func TestError_Error(t *testing.T) {
	err := New("E102").WithDetail("Value for directories.pages is not relative. Must be relative path.")
	want := "E102: Path is not relative: Value for directories.pages is not relative. Must be relative path."
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := &Error{Message: "test error"}
	if plain.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "test error")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := New("E120").Wrap(cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !strings.HasSuffix(err.Error(), "disk on fire") {
		t.Errorf("Error() = %q, want cause suffix", err.Error())
	}
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("startup: %w", New("E101").WithPath("/srv/system/document.js"))

	if !stderrors.Is(err, New("E101")) {
		t.Error("errors.Is should match on code")
	}
	if stderrors.Is(err, New("E102")) {
		t.Error("errors.Is should not match a different code")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E130") != nil {
		t.Error("FromError(nil) should be nil")
	}

	coded := New("E131")
	if got := FromError(fmt.Errorf("wrap: %w", coded), "E130"); got != coded {
		t.Error("FromError should return the existing coded error")
	}

	got := FromError(fmt.Errorf("plain"), "E130")
	if got.Code != "E130" || got.Wrapped == nil {
		t.Errorf("FromError = %+v", got)
	}
}

func TestHasCode(t *testing.T) {
	err := New("E130").Wrap(New("E131"))
	if !HasCode(err, "E131") {
		t.Error("HasCode should search wrapped coded errors")
	}
	if HasCode(err, "E140") {
		t.Error("HasCode matched an absent code")
	}
	if HasCode(fmt.Errorf("plain"), "E130") {
		t.Error("HasCode matched a plain error")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E102").
		WithDetail("Value for directories.pages is not relative. Must be relative path.").
		WithPath("hubro.json")

	out := err.Format()
	for _, want := range []string{
		"ERROR E102: Path is not relative",
		"hubro.json",
		"Must be relative path.",
		"Hint: Use a path relative",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E130").WithPath("pages/page.js")
	want := "pages/page.js: E130: Module could not be loaded"
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, fmt.Errorf("boom"))
	if !strings.Contains(buf.String(), "ERROR: boom") {
		t.Errorf("Fprint plain = %q", buf.String())
	}

	buf.Reset()
	Fprint(&buf, New("E150"))
	if !strings.Contains(buf.String(), "ERROR E150") {
		t.Errorf("Fprint coded = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six seven", 10)
	for _, l := range lines {
		if len(l) > 10 {
			t.Errorf("line %q longer than width", l)
		}
	}
	if strings.Join(lines, " ") != "one two three four five six seven" {
		t.Errorf("wrapText lost words: %v", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should be nil")
	}
}
