package github

import (
	"bytes"
	"strings"
	"time"

	"github.com/hellausefulsoftware/cleaner/internal/models"
)

// ToIssue converts a webhook issue into the domain Issue. It never fails:
// missing fields get defaults, and now stands in for missing timestamps.
func ToIssue(p IssuePayload, now time.Time) models.Issue {
	state := models.StateOpen
	if p.State == string(models.StateClosed) {
		state = models.StateClosed
	}

	author := models.Author{Login: models.UnknownLogin, ID: 0}
	if p.User != nil {
		author.ID = p.User.ID
		if p.User.Login != "" {
			author.Login = p.User.Login
		}
	}

	labels := make([]string, 0, len(p.Labels))
	for _, l := range p.Labels {
		labels = append(labels, l.Name)
	}

	createdAt := p.CreatedAt.Time
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := p.UpdatedAt.Time
	if updatedAt.IsZero() {
		updatedAt = now
	}
	if updatedAt.Before(createdAt) {
		updatedAt = createdAt
	}

	return models.Issue{
		ID:                p.ID,
		Number:            p.Number,
		Title:             string(p.Title),
		Body:              string(p.Body),
		State:             state,
		Author:            author,
		AuthorAssociation: p.AuthorAssociation,
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
		IsPullRequest:     hasPullRequestLink(p),
	}.WithLabels(labels...)
}

func hasPullRequestLink(p IssuePayload) bool {
	raw := bytes.TrimSpace(p.PullRequest)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// ToRepository extracts owner and name, falling back to full_name
func ToRepository(p *RepositoryPayload) models.Repository {
	if p == nil {
		return models.Repository{}
	}
	repo := models.Repository{Repo: p.Name}
	if p.Owner != nil {
		repo.Owner = p.Owner.Login
	}
	if (repo.Owner == "" || repo.Repo == "") && p.FullName != "" {
		if owner, name, ok := strings.Cut(p.FullName, "/"); ok {
			if repo.Owner == "" {
				repo.Owner = owner
			}
			if repo.Repo == "" {
				repo.Repo = name
			}
		}
	}
	return repo
}
