// Package render turns generated resume content into a self-contained
// HTML document ready for print conversion.
package render

import (
	_ "embed"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"flash-resume/internal/model"
)

//go:embed template.html
var templateHTML string

// labels holds the section headings per output language.
type labels struct {
	Summary    string
	Skills     string
	Experience string
	Projects   string
	Education  string
	Languages  string
}

var labelSets = map[string]labels{
	"en": {
		Summary:    "Professional Summary",
		Skills:     "Technical Skills",
		Experience: "Professional Experience",
		Projects:   "Personal Projects",
		Education:  "Education",
		Languages:  "Languages",
	},
	"pt-br": {
		Summary:    "Resumo Profissional",
		Skills:     "Habilidades Técnicas",
		Experience: "Experiência Profissional",
		Projects:   "Projetos Pessoais",
		Education:  "Formação Acadêmica",
		Languages:  "Idiomas",
	},
}

// Supported reports whether documents can be produced in the language.
func Supported(lang string) bool {
	_, ok := labelSets[lang]
	return ok
}

// Preferred display order for common skill categories. Groups outside
// this list sort alphabetically after it, so output is deterministic
// regardless of map iteration order.
var groupOrder = []string{"languages", "frameworks", "databases", "tools", "cloud", "other"}

type skillGroup struct {
	Name  string
	Items string
}

type templateData struct {
	Lang        string
	Labels      labels
	Resume      *model.Resume
	SkillGroups []skillGroup
}

var tmpl = template.Must(template.New("resume").Funcs(template.FuncMap{
	// The AI emits inline markup (<b> tags) inside summary and bullet
	// text; it must land in the document unescaped.
	"raw":  func(s string) template.HTML { return template.HTML(s) },
	"join": strings.Join,
}).Parse(templateHTML))

// Render produces the complete HTML document for a resume in the given
// language. Output is deterministic for identical input.
func Render(r *model.Resume, language string) (string, error) {
	set, ok := labelSets[language]
	if !ok {
		return "", fmt.Errorf("unsupported language %q", language)
	}

	data := templateData{
		Lang:        language,
		Labels:      set,
		Resume:      r,
		SkillGroups: orderedSkillGroups(r.Skills),
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render resume: %w", err)
	}
	return b.String(), nil
}

func orderedSkillGroups(skills map[string]string) []skillGroup {
	if len(skills) == 0 {
		return nil
	}

	rank := make(map[string]int, len(groupOrder))
	for i, name := range groupOrder {
		rank[name] = i
	}

	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, iKnown := rank[strings.ToLower(names[i])]
		rj, jKnown := rank[strings.ToLower(names[j])]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown:
			return true
		case jKnown:
			return false
		default:
			return names[i] < names[j]
		}
	})

	groups := make([]skillGroup, 0, len(names))
	for _, name := range names {
		groups = append(groups, skillGroup{Name: displayName(name), Items: skills[name]})
	}
	return groups
}

func displayName(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
