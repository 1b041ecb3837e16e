package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const (
	profileAPIURL = "https://api.anysite.io/api/linkedin/user"
	scrapeAPIURL  = "https://api.scrapfly.io/scrape"

	maxAttempts = 3
)

// Client scrapes LinkedIn-like profile and job-posting pages through
// third-party scrape APIs and normalizes the responses.
type Client struct {
	http *resty.Client

	ProfileAPIURL string
	ScrapeAPIURL  string

	profileKey string
	scrapeKey  string
}

func NewClient(profileKey, scrapeKey string) *Client {
	return &Client{
		http:          resty.New().SetTimeout(60 * time.Second),
		ProfileAPIURL: profileAPIURL,
		ScrapeAPIURL:  scrapeAPIURL,
		profileKey:    profileKey,
		scrapeKey:     scrapeKey,
	}
}

// ScrapeProfile fetches a public profile and maps it into Profile.
func (c *Client) ScrapeProfile(ctx context.Context, profileURL string) (*Profile, error) {
	username := usernameFromProfileURL(profileURL)
	if username == "" {
		return nil, &Error{Resource: "profile", Attempts: 0, Err: fmt.Errorf("cannot extract username from %q", profileURL)}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("access-token", c.profileKey).
			SetBody(map[string]interface{}{
				"user":            username,
				"with_experience": true,
				"with_education":  true,
				"with_skills":     true,
				"with_languages":  true,
			}).
			Post(c.ProfileAPIURL)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode() != 200 {
			lastErr = fmt.Errorf("profile API returned %d", resp.StatusCode())
		} else {
			return parseProfile(resp.Body(), profileURL), nil
		}

		if attempt < maxAttempts {
			if err := sleep(ctx, time.Duration(1<<(attempt-1))*time.Second); err != nil {
				return nil, err
			}
		}
	}
	return nil, &Error{Resource: "profile", Attempts: maxAttempts, Err: lastErr}
}

// ScrapeJobPosting fetches a job-posting page through the scrape API and
// extracts the company and description sections from its content.
func (c *Client) ScrapeJobPosting(ctx context.Context, jobURL string) (*JobPosting, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"key":    c.scrapeKey,
				"url":    jobURL,
				"asp":    "true",
				"format": "json",
			}).
			Get(c.ScrapeAPIURL)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode() != 200 {
			lastErr = fmt.Errorf("scrape API returned %d", resp.StatusCode())
		} else if body := gjson.GetBytes(resp.Body(), "result.content").String(); body == "" {
			lastErr = fmt.Errorf("scrape API returned no content")
		} else {
			return parseJobContent(body, jobURL), nil
		}

		if attempt < maxAttempts {
			if err := sleep(ctx, time.Duration(1<<(attempt-1))*time.Second); err != nil {
				return nil, err
			}
		}
	}
	return nil, &Error{Resource: "job-posting", Attempts: maxAttempts, Err: lastErr}
}

func parseProfile(body []byte, profileURL string) *Profile {
	root := gjson.ParseBytes(body)
	// The profile API returns a list with one profile object.
	if root.IsArray() {
		arr := root.Array()
		if len(arr) == 0 {
			return &Profile{URL: profileURL}
		}
		root = arr[0]
	}

	p := &Profile{
		URL:      profileURL,
		Name:     strings.TrimSpace(root.Get("first_name").String() + " " + root.Get("last_name").String()),
		Headline: root.Get("headline").String(),
		About:    root.Get("description").String(),
		Location: root.Get("location").String(),
	}

	for _, exp := range root.Get("experience").Array() {
		p.Experience = append(p.Experience, ExperienceItem{
			Company:     exp.Get("company.name").String(),
			Position:    exp.Get("position").String(),
			DateRange:   exp.Get("interval").String(),
			Location:    exp.Get("location").String(),
			Description: exp.Get("description").String(),
		})
	}
	for _, edu := range root.Get("education").Array() {
		p.Education = append(p.Education, EducationItem{
			Institution: edu.Get("company.name").String(),
			Degree:      edu.Get("major").String(),
			DateRange:   edu.Get("interval").String(),
		})
	}
	for _, s := range root.Get("top_skills").Array() {
		p.Skills = append(p.Skills, s.String())
	}
	for _, s := range root.Get("skills").Array() {
		name := s.Get("name").String()
		if name != "" && !contains(p.Skills, name) {
			p.Skills = append(p.Skills, name)
		}
	}
	for _, l := range root.Get("languages").Array() {
		name := l.Get("name").String()
		if name == "" {
			continue
		}
		if level := l.Get("level").String(); level != "" {
			name = fmt.Sprintf("%s (%s)", name, level)
		}
		p.Languages = append(p.Languages, name)
	}
	return p
}

// parseJobContent extracts the "# Company" and "# Job description"
// sections the scrape API's extraction template produces.
func parseJobContent(content, jobURL string) *JobPosting {
	jp := &JobPosting{URL: jobURL}
	section := ""
	var desc []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "# company"):
			section = "company"
		case strings.HasPrefix(lower, "# job description"):
			section = "description"
		case strings.HasPrefix(trimmed, "#"):
			section = ""
		case trimmed == "":
		default:
			val := strings.TrimPrefix(trimmed, "- ")
			switch section {
			case "company":
				if jp.Company == "" {
					jp.Company = val
				}
			case "description":
				desc = append(desc, val)
			}
		}
	}
	jp.Description = strings.Join(desc, "\n")
	if jp.Title == "" && jp.Company != "" {
		jp.Title = "Position at " + jp.Company
	}
	return jp
}

func usernameFromProfileURL(profileURL string) string {
	idx := strings.Index(profileURL, "/in/")
	if idx < 0 {
		return ""
	}
	rest := strings.Trim(profileURL[idx+len("/in/"):], "/")
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
