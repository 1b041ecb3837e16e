package scrape

import "fmt"

// Error reports a scrape or fetch that failed after bounded retries.
type Error struct {
	Resource string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("scrape %s: failed after %d attempts: %v", e.Resource, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Profile is normalized LinkedIn-like profile data. Every field has a
// safe zero value so downstream stages never branch on presence.
type Profile struct {
	URL        string           `json:"url"`
	Name       string           `json:"name"`
	Headline   string           `json:"headline"`
	About      string           `json:"about"`
	Location   string           `json:"location"`
	Experience []ExperienceItem `json:"experience"`
	Education  []EducationItem  `json:"education"`
	Skills     []string         `json:"skills"`
	Languages  []string         `json:"languages"`
}

type ExperienceItem struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	DateRange   string `json:"date_range"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type EducationItem struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	DateRange   string `json:"date_range"`
}

// JobPosting is normalized job-posting data.
type JobPosting struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// CodeActivity is the normalized shape of a user's GitHub presence.
type CodeActivity struct {
	Profile           CodeProfile       `json:"profile"`
	Repositories      []Repository      `json:"repositories"`
	Pinned            []Repository      `json:"pinned"`
	Languages         map[string]int    `json:"languages"`
	RecentCommits     []Commit          `json:"recent_commits"`
	ContributionStats ContributionStats `json:"contribution_stats"`
}

type CodeProfile struct {
	Username    string `json:"username"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Blog        string `json:"blog"`
	HTMLURL     string `json:"html_url"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
}

type Repository struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	HTMLURL     string   `json:"html_url"`
	Stars       int      `json:"stargazers_count"`
	Forks       int      `json:"forks_count"`
	Topics      []string `json:"topics"`
	Fork        bool     `json:"fork"`
}

type Commit struct {
	Repo    string `json:"repo"`
	Message string `json:"message"`
	Date    string `json:"date"`
}

type ContributionStats struct {
	TotalStars    int `json:"total_stars"`
	TotalForks    int `json:"total_forks"`
	OriginalRepos int `json:"original_repos"`
	ForkedRepos   int `json:"forked_repos"`
}
