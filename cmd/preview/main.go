// Command preview renders a resume HTML (and optionally a PDF) from a
// JSON content file, without the database, queue or any vendor APIs.
// Useful when tweaking the document template.
//
// Usage:
//
//	preview -in resume.json -lang pt-br -pdf
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"flash-resume/internal/config"
	"flash-resume/internal/model"
	"flash-resume/internal/render"
	"flash-resume/pkg/convert"
)

func main() {
	in := flag.String("in", "", "path to generated resume JSON (defaults to a built-in sample)")
	lang := flag.String("lang", "en", "output language")
	out := flag.String("out", "resume.html", "output HTML path")
	pdf := flag.Bool("pdf", false, "also convert to resume.pdf via headless chrome")
	flag.Parse()

	var resume model.Resume
	if *in != "" {
		data, err := os.ReadFile(*in)
		if err != nil {
			log.Fatalf("read input: %v", err)
		}
		var m map[string]interface{}
		if err := json.Unmarshal(data, &m); err != nil {
			log.Fatalf("parse input: %v", err)
		}
		if err := model.ValidateMap(m); err != nil {
			log.Printf("warning: input does not validate: %v", err)
		}
		if err := json.Unmarshal(data, &resume); err != nil {
			log.Fatalf("decode input: %v", err)
		}
	} else {
		resume = sampleResume()
	}

	html, err := render.Render(&resume, *lang)
	if err != nil {
		log.Fatalf("render: %v", err)
	}
	if err := os.WriteFile(*out, []byte(html), 0o644); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
	log.Printf("wrote %s", *out)

	if *pdf {
		cfg := config.Load()
		chrome := convert.NewChrome(cfg.ChromePath)
		data, err := chrome.RenderPDF(context.Background(), html)
		if err != nil {
			log.Fatalf("convert: %v", err)
		}
		if err := os.WriteFile("resume.pdf", data, 0o644); err != nil {
			log.Fatalf("write resume.pdf: %v", err)
		}
		log.Printf("wrote resume.pdf")
	}
}

func sampleResume() model.Resume {
	return model.Resume{
		FullName:    "Test User",
		Title:       "Backend Engineer",
		Email:       "test@example.com",
		GitHubURL:   "https://github.com/testuser",
		LinkedInURL: "https://linkedin.com/in/testuser",
		Summary:     "Engineer focused on <b>reliable backend systems</b> in Go and Postgres.",
		Skills: map[string]string{
			"languages":  "Go, Python, SQL",
			"frameworks": "Fiber, FastAPI",
			"databases":  "PostgreSQL, Redis",
		},
		Experience: []model.Role{
			{
				Company:   "Acme",
				Position:  "Engineer",
				DateRange: "2021 - Present",
				Bullets: []string{
					"Built a real-time data pipeline that cut processing time by half.",
					"Introduced retries and alerting that reduced incident rate.",
				},
			},
		},
		Education: []model.Education{
			{Institution: "State University", Degree: "BSc Computer Science", DateRange: "2016 - 2020"},
		},
		Languages: []string{"English (fluent)", "Portuguese (native)"},
	}
}
