package scrape

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const (
	reposPerPage     = 100
	maxRecentCommits = 20
)

// GitHub fetches a user's code activity through the GitHub REST and
// GraphQL APIs using a personal access token.
type GitHub struct {
	http    *resty.Client
	baseURL string
}

func NewGitHub(baseURL string) *GitHub {
	return &GitHub{
		http: resty.New().
			SetTimeout(30 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(1 * time.Second).
			SetRetryMaxWaitTime(4 * time.Second),
		baseURL: baseURL,
	}
}

// FetchActivity collects the authenticated user's profile, repositories,
// pinned repositories, language breakdown, recent commits, and derived
// contribution stats.
func (g *GitHub) FetchActivity(ctx context.Context, token string) (*CodeActivity, error) {
	user, err := g.get(ctx, token, "/user", nil)
	if err != nil {
		return nil, &Error{Resource: "code-activity", Attempts: 3, Err: err}
	}

	act := &CodeActivity{
		Profile: CodeProfile{
			Username:    user.Get("login").String(),
			Name:        user.Get("name").String(),
			Bio:         user.Get("bio").String(),
			Company:     user.Get("company").String(),
			Location:    user.Get("location").String(),
			Blog:        user.Get("blog").String(),
			HTMLURL:     user.Get("html_url").String(),
			PublicRepos: int(user.Get("public_repos").Int()),
			Followers:   int(user.Get("followers").Int()),
		},
		Languages: map[string]int{},
	}

	repos, err := g.fetchRepos(ctx, token)
	if err != nil {
		return nil, &Error{Resource: "code-activity", Attempts: 3, Err: err}
	}
	act.Repositories = repos

	for _, r := range repos {
		if r.Language != "" {
			act.Languages[r.Language]++
		}
		act.ContributionStats.TotalStars += r.Stars
		act.ContributionStats.TotalForks += r.Forks
		if r.Fork {
			act.ContributionStats.ForkedRepos++
		} else {
			act.ContributionStats.OriginalRepos++
		}
	}

	// Pinned repos and recent commits enrich the generation prompt but
	// their absence should not fail the whole fetch.
	if pinned, err := g.fetchPinned(ctx, token, act.Profile.Username); err == nil {
		act.Pinned = pinned
	}
	if commits, err := g.fetchRecentCommits(ctx, token, act.Profile.Username); err == nil {
		act.RecentCommits = commits
	}

	return act, nil
}

func (g *GitHub) fetchRepos(ctx context.Context, token string) ([]Repository, error) {
	var out []Repository
	for page := 1; ; page++ {
		res, err := g.get(ctx, token, "/user/repos", map[string]string{
			"sort":      "updated",
			"direction": "desc",
			"type":      "owner",
			"per_page":  strconv.Itoa(reposPerPage),
			"page":      strconv.Itoa(page),
		})
		if err != nil {
			return nil, err
		}
		batch := res.Array()
		for _, r := range batch {
			repo := Repository{
				Name:        r.Get("name").String(),
				Description: r.Get("description").String(),
				Language:    r.Get("language").String(),
				HTMLURL:     r.Get("html_url").String(),
				Stars:       int(r.Get("stargazers_count").Int()),
				Forks:       int(r.Get("forks_count").Int()),
				Fork:        r.Get("fork").Bool(),
			}
			for _, t := range r.Get("topics").Array() {
				repo.Topics = append(repo.Topics, t.String())
			}
			out = append(out, repo)
		}
		if len(batch) < reposPerPage {
			break
		}
	}
	return out, nil
}

func (g *GitHub) fetchPinned(ctx context.Context, token, username string) ([]Repository, error) {
	query := `query($username: String!) {
	  user(login: $username) {
	    pinnedItems(first: 6, types: REPOSITORY) {
	      nodes {
	        ... on Repository {
	          name
	          description
	          url
	          stargazerCount
	          primaryLanguage { name }
	        }
	      }
	    }
	  }
	}`

	resp, err := g.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]interface{}{
			"query":     query,
			"variables": map[string]string{"username": username},
		}).
		Post(g.baseURL + "/graphql")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("graphql returned %d", resp.StatusCode())
	}

	var pinned []Repository
	for _, n := range gjson.GetBytes(resp.Body(), "data.user.pinnedItems.nodes").Array() {
		pinned = append(pinned, Repository{
			Name:        n.Get("name").String(),
			Description: n.Get("description").String(),
			HTMLURL:     n.Get("url").String(),
			Stars:       int(n.Get("stargazerCount").Int()),
			Language:    n.Get("primaryLanguage.name").String(),
		})
	}
	return pinned, nil
}

func (g *GitHub) fetchRecentCommits(ctx context.Context, token, username string) ([]Commit, error) {
	res, err := g.get(ctx, token, "/users/"+username+"/events", map[string]string{"per_page": "30"})
	if err != nil {
		return nil, err
	}

	var commits []Commit
	for _, ev := range res.Array() {
		if ev.Get("type").String() != "PushEvent" {
			continue
		}
		repo := ev.Get("repo.name").String()
		date := ev.Get("created_at").String()
		for _, c := range ev.Get("payload.commits").Array() {
			commits = append(commits, Commit{
				Repo:    repo,
				Message: c.Get("message").String(),
				Date:    date,
			})
			if len(commits) >= maxRecentCommits {
				return commits, nil
			}
		}
	}
	return commits, nil
}

func (g *GitHub) get(ctx context.Context, token, path string, params map[string]string) (gjson.Result, error) {
	req := g.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Accept", "application/vnd.github.v3+json").
		SetHeader("X-GitHub-Api-Version", "2022-11-28")
	if params != nil {
		req.SetQueryParams(params)
	}
	resp, err := req.Get(g.baseURL + path)
	if err != nil {
		return gjson.Result{}, err
	}
	if resp.StatusCode() != 200 {
		return gjson.Result{}, fmt.Errorf("GET %s returned %d", path, resp.StatusCode())
	}
	return gjson.ParseBytes(resp.Body()), nil
}
