package query

import "testing"

func TestParseRejectsUnknownAction(t *testing.T) {
	_, err := Parse("frobnicate Widget")
	if err == nil {
		t.Fatal("expected an error for an unrecognized action")
	}
}

func TestParseRejectsMissingTarget(t *testing.T) {
	_, err := Parse("def")
	if err == nil {
		t.Fatal("expected an error for def with no target")
	}
}

func TestParseAllowsFilesAndStatsWithoutTarget(t *testing.T) {
	if _, err := Parse("files"); err != nil {
		t.Errorf("files: unexpected error: %v", err)
	}
	if _, err := Parse("stats"); err != nil {
		t.Errorf("stats: unexpected error: %v", err)
	}
}

func TestParseQuotedTargetPreservesSpaces(t *testing.T) {
	q, err := Parse(`get "local a.go Foo().Bar()"`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if q.Target != "local a.go Foo().Bar()" {
		t.Errorf("target = %q, want the quoted id preserved verbatim", q.Target)
	}
}

func TestParseFiltersAndTarget(t *testing.T) {
	q, err := Parse("find Widget kind:class in:lib lang:go")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if q.Target != "Widget" {
		t.Errorf("target = %q, want Widget", q.Target)
	}
	if v, ok := q.FilterValue("kind"); !ok || v != "class" {
		t.Errorf("kind filter = %q,%v, want class,true", v, ok)
	}
	if v, ok := q.FilterValue("in"); !ok || v != "lib" {
		t.Errorf("in filter = %q,%v, want lib,true", v, ok)
	}
	if v, ok := q.FilterValue("lang"); !ok || v != "go" {
		t.Errorf("lang filter = %q,%v, want go,true", v, ok)
	}
}

func TestParseGrepFlags(t *testing.T) {
	q, err := Parse("grep TODO -C:2 -w -F -m:5")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if q.GrepFlags.Context != 2 {
		t.Errorf("Context = %d, want 2", q.GrepFlags.Context)
	}
	if !q.GrepFlags.WordBoundary {
		t.Error("expected WordBoundary = true")
	}
	if !q.GrepFlags.Literal {
		t.Error("expected Literal = true")
	}
	if q.GrepFlags.MaxPerFile != 5 {
		t.Errorf("MaxPerFile = %d, want 5", q.GrepFlags.MaxPerFile)
	}
}

func TestParseGrepFlagRejectsNonNumeric(t *testing.T) {
	_, err := Parse("grep TODO -C:abc")
	if err == nil {
		t.Fatal("expected an error for a non-numeric -C value")
	}
}

func TestClassifyPatternDialects(t *testing.T) {
	cases := []struct {
		target string
		want   PatternDialect
	}{
		{"Widget", DialectLiteral},
		{"Wid*", DialectGlob},
		{"/Wid.+/", DialectRegex},
		{"/wid/i", DialectRegex},
		{"~Widgt", DialectFuzzy},
	}
	for _, c := range cases {
		got := classifyPattern(c.target)
		if got.Dialect != c.want {
			t.Errorf("classifyPattern(%q).Dialect = %q, want %q", c.target, got.Dialect, c.want)
		}
	}
}

func TestClassifyPatternCaseInsensitiveFlag(t *testing.T) {
	meta := classifyPattern("/wid/i")
	if !meta.CaseInsensitive {
		t.Error("expected the trailing i flag to mark case-insensitive")
	}
}

func TestClassifyPatternDecomposesQualifiedLiteral(t *testing.T) {
	meta := classifyPattern("Widget.build")
	if !meta.Qualified || meta.Container != "Widget" || meta.Member != "build" {
		t.Errorf("got %+v, want Qualified container=Widget member=build", meta)
	}
}

func TestClassifyPatternDoesNotDecomposeRegex(t *testing.T) {
	meta := classifyPattern("/foo\\.bar/")
	if meta.Qualified {
		t.Error("expected a regex dialect to never be decomposed as qualified")
	}
}
