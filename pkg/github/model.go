package github

import (
	"fmt"
	"strings"

	"github.com/harrisonrobin/gitcal/pkg/model"
)

// repositoryRecord is the subset of the GitHub repository object we read.
type repositoryRecord struct {
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Owner         *struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// commitRecord is the subset of the GitHub commit object we read.
type commitRecord struct {
	SHA    string `json:"sha"`
	Commit *struct {
		Message string `json:"message"`
		Author  *struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Date  string `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

func (r repositoryRecord) toRepository() (model.Repository, error) {
	name := strings.TrimSpace(r.FullName)
	if name == "" {
		return model.Repository{}, fmt.Errorf("%w: repository without full_name", model.ErrMalformedRecord)
	}
	return model.Repository{FullName: name, DefaultBranch: r.DefaultBranch}, nil
}

func (r repositoryRecord) ownedBy(login string) bool {
	if login == "" || r.Owner == nil {
		return true
	}
	return strings.EqualFold(r.Owner.Login, login)
}

func (c commitRecord) toItem(repository string) (model.Item, error) {
	if c.Commit == nil {
		return model.Item{}, fmt.Errorf("%w: commit %q has no commit body", model.ErrMalformedRecord, c.SHA)
	}
	item := model.Item{
		ID:         strings.TrimSpace(c.SHA),
		Message:    c.Commit.Message,
		Repository: repository,
	}
	if c.Commit.Author != nil {
		item.Timestamp = c.Commit.Author.Date
	}
	if err := item.Validate(); err != nil {
		return model.Item{}, err
	}
	return item, nil
}
