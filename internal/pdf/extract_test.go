package pdf

import "testing"

func TestExtractText_MissingFile(t *testing.T) {
	if _, err := ExtractText("testdata/does-not-exist.pdf"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDocumentName(t *testing.T) {
	cases := map[string]string{
		"data/papers/attention.pdf": "attention",
		"attention.pdf":             "attention",
		"/abs/path/My Paper.PDF":    "My Paper",
		"noext":                     "noext",
	}
	for in, want := range cases {
		if got := DocumentName(in); got != want {
			t.Errorf("DocumentName(%q) = %q, want %q", in, got, want)
		}
	}
}
