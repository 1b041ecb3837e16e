package render

import (
	"strings"
	"testing"

	"flash-resume/internal/model"
)

func sampleResume() *model.Resume {
	return &model.Resume{
		FullName: "Test User",
		Title:    "Engineer",
		Summary:  "Builds <b>reliable</b> systems.",
		Skills: map[string]string{
			"zephyr":     "Z1",
			"frameworks": "Fiber",
			"languages":  "Go",
			"aardvark":   "A1",
		},
		Experience: []model.Role{
			{Company: "Acme", Position: "Engineer", DateRange: "2021 - Present", Bullets: []string{"Shipped <b>things</b>."}},
		},
		Education: []model.Education{
			{Institution: "State University", Degree: "BSc", DateRange: "2016 - 2020"},
		},
		Languages: []string{"English", "Portuguese"},
	}
}

func TestRenderDeterministic(t *testing.T) {
	r := sampleResume()
	first, err := Render(r, "en")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Render(r, "en")
		if err != nil {
			t.Fatalf("render failed: %v", err)
		}
		if again != first {
			t.Fatal("identical input produced different documents")
		}
	}
}

func TestRenderSkillGroupOrder(t *testing.T) {
	html, err := Render(sampleResume(), "en")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	// Known categories in preferred order, then unknown ones sorted.
	want := []string{"Languages:", "Frameworks:", "Aardvark:", "Zephyr:"}
	last := -1
	for _, name := range want {
		idx := strings.Index(html, name)
		if idx < 0 {
			t.Fatalf("missing skill group %q", name)
		}
		if idx < last {
			t.Fatalf("skill group %q out of order", name)
		}
		last = idx
	}
}

func TestRenderLanguageLabels(t *testing.T) {
	en, err := Render(sampleResume(), "en")
	if err != nil {
		t.Fatalf("render en failed: %v", err)
	}
	if !strings.Contains(en, "Professional Summary") {
		t.Fatal("english labels missing")
	}

	pt, err := Render(sampleResume(), "pt-br")
	if err != nil {
		t.Fatalf("render pt-br failed: %v", err)
	}
	if !strings.Contains(pt, "Resumo Profissional") {
		t.Fatal("portuguese labels missing")
	}
}

func TestRenderInlineMarkup(t *testing.T) {
	html, err := Render(sampleResume(), "en")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(html, "<b>reliable</b>") {
		t.Fatal("summary markup was escaped")
	}
	if !strings.Contains(html, "<b>things</b>") {
		t.Fatal("bullet markup was escaped")
	}
}

func TestRenderUnsupportedLanguage(t *testing.T) {
	if _, err := Render(sampleResume(), "fr"); err == nil {
		t.Fatal("expected error for unsupported language")
	}
	if Supported("fr") {
		t.Fatal("fr reported as supported")
	}
	if !Supported("pt-br") {
		t.Fatal("pt-br reported as unsupported")
	}
}
