package model

// Go models matching resume.schema.json, the fixed schema the AI
// capability must produce and the renderer consumes.

type Role struct {
	Company   string   `json:"company"`
	Position  string   `json:"position"`
	DateRange string   `json:"date_range,omitempty"`
	Bullets   []string `json:"bullets,omitempty"`
}

type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	DateRange   string `json:"date_range,omitempty"`
}

type Project struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Stack       string `json:"stack,omitempty"`
}

type Resume struct {
	FullName    string `json:"full_name"`
	Title       string `json:"title"`
	Email       string `json:"email,omitempty"`
	GitHubURL   string `json:"github_url,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`

	Summary string `json:"professional_summary"`

	// Skills grouped by category name, each value a comma separated list.
	Skills map[string]string `json:"technical_skills"`

	Experience []Role      `json:"experience"`
	Education  []Education `json:"education"`
	Languages  []string    `json:"languages"`

	PersonalProjects []Project `json:"personal_projects,omitempty"`
	Keywords         []string  `json:"keywords,omitempty"`
}
