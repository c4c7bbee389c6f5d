package portfolio

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var testNow = time.UnixMilli(1_700_000_000_000)

// Sample

func TestSample_ParsesAndValidates(t *testing.T) {
	d := Sample()
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(d.Projects) != 5 {
		t.Fatalf("projects = %d, want 5", len(d.Projects))
	}
	if d.Projects[1].Link != nil {
		t.Fatalf("MindSync link = %q, want nil", *d.Projects[1].Link)
	}
	if d.Education[0].Field == nil || *d.Education[0].Field != "" {
		t.Fatal("education field should be present and empty")
	}
	if !strings.Contains(d.About.Intro, "\n\n") {
		t.Fatal("intro should keep its paragraph break")
	}
}

func TestSample_ReturnsIndependentCopies(t *testing.T) {
	a := Sample()
	a.About.Skills[0] = "mutated"
	b := Sample()
	if b.About.Skills[0] == "mutated" {
		t.Fatal("Sample returned shared state")
	}
}

// Clone / Equal

func TestClone_DeepCopy(t *testing.T) {
	d := Sample()
	c := d.Clone()

	if diff := cmp.Diff(d, c); diff != "" {
		t.Fatalf("clone differs (-orig +clone):\n%s", diff)
	}

	*c.Projects[0].GitHub = "https://example.com/other"
	c.Experiences[0].Technologies[0] = "Go"
	*c.Education[0].Field = "Math"

	if *d.Projects[0].GitHub == "https://example.com/other" {
		t.Fatal("pointer field shared between clone and original")
	}
	if d.Experiences[0].Technologies[0] == "Go" {
		t.Fatal("slice shared between clone and original")
	}
	if *d.Education[0].Field == "Math" {
		t.Fatal("education field shared between clone and original")
	}
}

func TestClone_PreservesNilSlices(t *testing.T) {
	d := &Document{}
	if !Equal(d, d.Clone()) {
		t.Fatal("clone of zero document should encode identically")
	}
}

func TestEqual(t *testing.T) {
	a := Sample()
	b := Sample()
	if !Equal(a, b) {
		t.Fatal("two samples should be equal")
	}
	b.Logs++
	if Equal(a, b) {
		t.Fatal("documents with different logs should differ")
	}
	if Equal(a, nil) || !Equal(nil, nil) {
		t.Fatal("nil handling")
	}
}

func TestEqual_NullVersusEmptyField(t *testing.T) {
	a := Sample()
	b := Sample()
	b.Education[0].Field = nil
	if Equal(a, b) {
		t.Fatal("absent field and empty field must not compare equal")
	}
}

func TestHash_Stable(t *testing.T) {
	a, b := Sample(), Sample()
	if a.Hash() != b.Hash() || len(a.Hash()) != 64 {
		t.Fatalf("hash = %q / %q", a.Hash(), b.Hash())
	}
}

// ParseSection

func TestParseSection(t *testing.T) {
	tests := []struct {
		in      string
		want    Section
		wantErr bool
	}{
		{"experiences", SectionExperiences, false},
		{"education", SectionEducation, false},
		{"projects", SectionProjects, false},
		{"about", SectionAbout, false},
		{"logs", "", true},
		{"", "", true},
		{"Projects", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSection(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSection(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrUnknownSection) {
			t.Errorf("ParseSection(%q) err = %v, want ErrUnknownSection", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseSection(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// WithSection

func TestWithSection_ReplacesOnlyThatSection(t *testing.T) {
	d := Sample()
	raw := json.RawMessage(`{"intro":"hi","skills":["Go"],"interests":[]}`)

	out, err := d.WithSection(SectionAbout, raw, testNow)
	if err != nil {
		t.Fatalf("WithSection: %v", err)
	}
	want := About{Intro: "hi", Skills: []string{"Go"}, Interests: []string{}}
	if diff := cmp.Diff(want, out.About); diff != "" {
		t.Fatalf("about mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(d.Projects, out.Projects); diff != "" {
		t.Fatalf("projects changed:\n%s", diff)
	}
	if d.About.Intro == "hi" {
		t.Fatal("input document was modified")
	}
}

func TestWithSection_AssignsMissingIDs(t *testing.T) {
	d := Default()
	raw := json.RawMessage(`[
		{"name":"a","description":"","technologies":[],"link":null,"github":null},
		{"id":7,"name":"b","description":"","technologies":[],"link":null,"github":null},
		{"name":"c","description":"","technologies":[],"link":null,"github":null}
	]`)

	out, err := d.WithSection(SectionProjects, raw, testNow)
	if err != nil {
		t.Fatalf("WithSection: %v", err)
	}
	ids := []int64{out.Projects[0].ID, out.Projects[1].ID, out.Projects[2].ID}
	want := []int64{testNow.UnixMilli(), 7, testNow.UnixMilli() + 1}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("ids (-want +got):\n%s", diff)
	}
}

func TestWithSection_Rejects(t *testing.T) {
	d := Sample()
	tests := []struct {
		name    string
		section Section
		raw     string
	}{
		{"unknown field", SectionAbout, `{"intro":"x","extra":1}`},
		{"wrong shape", SectionProjects, `{"name":"x"}`},
		{"empty", SectionAbout, ``},
		{"trailing", SectionAbout, `{"intro":"x"} {}`},
		{"duplicate ids", SectionExperiences, `[{"id":1},{"id":1}]`},
		{"bad link", SectionProjects, `[{"id":1,"link":"ftp://x"}]`},
		{"relative github", SectionProjects, `[{"id":1,"github":"github.com/x"}]`},
		{"logs not editable", Section("logs"), `5`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.WithSection(tt.section, json.RawMessage(tt.raw), testNow); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// WithItem

func TestWithItem_PrependsWithFreshID(t *testing.T) {
	d := Sample()
	raw := json.RawMessage(`{"id":3,"company":"Acme","position":"Dev","technologies":["Go"]}`)

	out, err := d.WithItem(SectionExperiences, raw, testNow)
	if err != nil {
		t.Fatalf("WithItem: %v", err)
	}
	if len(out.Experiences) != len(d.Experiences)+1 {
		t.Fatalf("len = %d", len(out.Experiences))
	}
	if got := out.Experiences[0]; got.Company != "Acme" || got.ID != testNow.UnixMilli() {
		t.Fatalf("first item = %+v", got)
	}
	if len(d.Experiences) != 3 {
		t.Fatal("input document was modified")
	}
}

func TestWithItem_AboutIsNotAList(t *testing.T) {
	if _, err := Sample().WithItem(SectionAbout, json.RawMessage(`{}`), testNow); !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("err = %v, want ErrUnknownSection", err)
	}
}

// Validate

func TestValidate_CollectsAllErrors(t *testing.T) {
	d := Default()
	d.Logs = -1
	d.Experiences = []Experience{{ID: 1, Image: "javascript:alert(1)"}}
	d.Projects = []Project{{ID: 2, Link: StringPtr("nope")}}

	err := d.Validate()
	if !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("err = %v, want ErrInvalidDocument", err)
	}
	for _, want := range []string{"logs", "experiences[0].image", "projects[0].link"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestValidate_ImagePaths(t *testing.T) {
	for _, img := range []string{"", "/assets/a.png", "https://i.ibb.co/x.png"} {
		d := Default()
		d.Experiences = []Experience{{ID: 1, Image: img}}
		if err := d.Validate(); err != nil {
			t.Errorf("image %q: %v", img, err)
		}
	}
	d := Default()
	d.Experiences = []Experience{{ID: 1, Image: "//evil.example/x.png"}}
	if err := d.Validate(); err == nil {
		t.Error("protocol-relative image should be rejected")
	}
}

func TestParseYAML_Invalid(t *testing.T) {
	if _, err := ParseYAML([]byte("projects: [{id: 1}, {id: 1}]")); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("err = %v", err)
	}
	if _, err := ParseYAML([]byte("projects: {")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestValidate_BlankProjectLinks(t *testing.T) {
	d := Default()
	d.Projects = []Project{{ID: 1, Link: StringPtr(""), GitHub: StringPtr("")}}
	if err := d.Validate(); err != nil {
		t.Fatalf("blank link and github should be accepted: %v", err)
	}
	if *d.Projects[0].Link != "" || *d.Projects[0].GitHub != "" {
		t.Fatal("Validate must not rewrite blank fields")
	}
}

func TestValidate_Screenshots(t *testing.T) {
	d := Default()
	d.Projects = []Project{{ID: 1, Screenshots: []string{"/assets/s1.png", "https://i.ibb.co/s2.png"}}}
	if err := d.Validate(); err != nil {
		t.Fatalf("valid screenshots: %v", err)
	}

	d.Projects[0].Screenshots = []string{"ftp://example.com/x.png", ""}
	err := d.Validate()
	for _, want := range []string{"projects[0].screenshots[0]", "projects[0].screenshots[1]"} {
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("error %v missing %q", err, want)
		}
	}
}

func TestClone_CopiesScreenshots(t *testing.T) {
	d := Default()
	d.Projects = []Project{{ID: 1, Screenshots: []string{"/assets/a.png"}}}
	c := d.Clone()
	c.Projects[0].Screenshots[0] = "/assets/b.png"
	if d.Projects[0].Screenshots[0] != "/assets/a.png" {
		t.Fatal("screenshots shared between clone and original")
	}
}
