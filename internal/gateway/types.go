package gateway

import (
	"encoding/json"
	"time"
)

// page is the Bitbucket 2.0 pagination envelope. Every collection endpoint
// wraps its results in values plus an absolute next-page URL.
type page struct {
	Values []json.RawMessage `json:"values"`
	Next   string            `json:"next"`
}

type apiRepository struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type apiCommit struct {
	Hash    string    `json:"hash"`
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
	Author  struct {
		Raw string `json:"raw"`
	} `json:"author"`
}

type apiPullRequest struct {
	ID        int       `json:"id"`
	State     string    `json:"state"`
	CreatedOn time.Time `json:"created_on"`
	Author    struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

// apiDiffstatEntry is one file's line counts inside a commit diffstat.
type apiDiffstatEntry struct {
	LinesAdded   int `json:"lines_added"`
	LinesRemoved int `json:"lines_removed"`
}
