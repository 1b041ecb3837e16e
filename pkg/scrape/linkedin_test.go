package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const profileResponse = `[{
	"first_name": "Test",
	"last_name": "User",
	"headline": "Backend Engineer",
	"description": "Builds systems.",
	"location": "Sao Paulo",
	"experience": [
		{"company": {"name": "Acme"}, "position": "Engineer", "interval": "2021 - Present"}
	],
	"education": [
		{"company": {"name": "State University"}, "major": "Computer Science", "interval": "2016 - 2020"}
	],
	"top_skills": ["Go"],
	"skills": [{"name": "Go"}, {"name": "PostgreSQL"}],
	"languages": [{"name": "English", "level": "fluent"}]
}]`

func TestScrapeProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("access-token") != "profile-key" {
			t.Errorf("missing access-token header")
		}
		fmt.Fprint(w, profileResponse)
	}))
	defer srv.Close()

	c := NewClient("profile-key", "scrape-key")
	c.ProfileAPIURL = srv.URL

	p, err := c.ScrapeProfile(context.Background(), "https://www.linkedin.com/in/testuser/")
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	if p.Name != "Test User" || p.Headline != "Backend Engineer" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if len(p.Experience) != 1 || p.Experience[0].Company != "Acme" {
		t.Fatalf("unexpected experience: %+v", p.Experience)
	}
	if len(p.Skills) != 2 {
		t.Fatalf("skills = %v, want deduplicated Go + PostgreSQL", p.Skills)
	}
	if len(p.Languages) != 1 || p.Languages[0] != "English (fluent)" {
		t.Fatalf("languages = %v", p.Languages)
	}
}

func TestScrapeProfileRetriesThenFails(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient("profile-key", "scrape-key")
	c.ProfileAPIURL = srv.URL

	_, err := c.ScrapeProfile(context.Background(), "https://www.linkedin.com/in/testuser")
	var se *Error
	if !errors.As(err, &se) || se.Resource != "profile" || se.Attempts != 3 {
		t.Fatalf("error = %v, want profile Error after 3 attempts", err)
	}
	if hits != 3 {
		t.Fatalf("hits = %d, want 3", hits)
	}
}

func TestScrapeProfileBadURL(t *testing.T) {
	c := NewClient("profile-key", "scrape-key")
	if _, err := c.ScrapeProfile(context.Background(), "https://www.linkedin.com/company/acme"); err == nil {
		t.Fatal("expected error for URL without /in/ segment")
	}
}

func TestScrapeJobPosting(t *testing.T) {
	content := "# Company\nAcme Corp\n\n# Job description\n- Build backend services\n- Own the data pipeline\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "scrape-key" {
			t.Errorf("missing key param")
		}
		resp := map[string]interface{}{"result": map[string]interface{}{"content": content}}
		b, _ := json.Marshal(resp)
		w.Write(b)
	}))
	defer srv.Close()

	c := NewClient("profile-key", "scrape-key")
	c.ScrapeAPIURL = srv.URL

	jp, err := c.ScrapeJobPosting(context.Background(), "https://example.com/jobs/1")
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	if jp.Company != "Acme Corp" {
		t.Fatalf("company = %q", jp.Company)
	}
	if jp.Description != "Build backend services\nOwn the data pipeline" {
		t.Fatalf("description = %q", jp.Description)
	}
}

func TestUsernameFromProfileURL(t *testing.T) {
	cases := map[string]string{
		"https://www.linkedin.com/in/testuser":         "testuser",
		"https://www.linkedin.com/in/testuser/":        "testuser",
		"https://br.linkedin.com/in/testuser?trk=nav":  "testuser",
		"https://www.linkedin.com/in/testuser/details": "testuser",
		"https://www.linkedin.com/company/acme":        "",
	}
	for in, want := range cases {
		if got := usernameFromProfileURL(in); got != want {
			t.Fatalf("usernameFromProfileURL(%q) = %q, want %q", in, got, want)
		}
	}
}
