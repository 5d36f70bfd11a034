// Package memory provides process-local repositories for STORE_DRIVER=memory
// and for tests. Every read and write goes through a copy so callers can never
// mutate stored state.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

// Store holds users, issues and audit events behind a single RWMutex.
type Store struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	byEmail map[string]string
	issues  map[string]domain.Issue
	events  []domain.IssueEvent
}

func NewStore() *Store {
	return &Store{
		users:   make(map[string]domain.User),
		byEmail: make(map[string]string),
		issues:  make(map[string]domain.Issue),
	}
}

// Users returns the store as a ports.UserRepository.
func (s *Store) Users() ports.UserRepository { return (*userRepo)(s) }

// Issues returns the store as a ports.IssueRepository.
func (s *Store) Issues() ports.IssueRepository { return (*issueRepo)(s) }

// Events returns the store as a ports.IssueEventRepository.
func (s *Store) Events() ports.IssueEventRepository { return (*eventRepo)(s) }

// RecordedEvents returns a copy of every audit event written so far.
func (s *Store) RecordedEvents() []domain.IssueEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.IssueEvent, len(s.events))
	copy(out, s.events)
	return out
}

// ── users ─────────────────────────────────────────────────────────────────────

type userRepo Store

func (r *userRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return nil, domain.ErrDuplicateEmail
	}
	r.users[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	created := *user
	return &created, nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := r.users[id]
	return &u, nil
}

func (r *userRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *userRepo) Update(_ context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if update.Email != nil && *update.Email != u.Email {
		if owner, taken := r.byEmail[*update.Email]; taken && owner != id {
			return nil, domain.ErrDuplicateEmail
		}
		delete(r.byEmail, u.Email)
		r.byEmail[*update.Email] = id
	}
	update.Apply(&u)
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return &u, nil
}

func (r *userRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		u := u
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// ── issues ────────────────────────────────────────────────────────────────────

type issueRepo Store

func (r *issueRepo) Create(_ context.Context, issue *domain.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issues[issue.ID] = cloneIssue(*issue)
	return nil
}

func (r *issueRepo) FindByID(_ context.Context, id string) (*domain.Issue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	issue, ok := r.issues[id]
	if !ok {
		return nil, domain.ErrIssueNotFound
	}
	c := cloneIssue(issue)
	return &c, nil
}

func (r *issueRepo) List(_ context.Context, f ports.ListIssuesFilter) ([]*domain.Issue, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]domain.Issue, 0)
	for _, issue := range r.issues {
		if f.Status != "" && issue.Status != f.Status {
			continue
		}
		if f.Category != "" && issue.Category != f.Category {
			continue
		}
		if f.UserID != "" && issue.UserID != f.UserID {
			continue
		}
		matched = append(matched, issue)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := f.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}

	page := make([]*domain.Issue, 0, end-start)
	for _, issue := range matched[start:end] {
		c := cloneIssue(issue)
		c.StatusHistory = nil
		page = append(page, &c)
	}
	return page, total, nil
}

func (r *issueRepo) UpdateStatus(_ context.Context, id string, change domain.StatusChange) (*domain.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	issue, ok := r.issues[id]
	if !ok {
		return nil, domain.ErrIssueNotFound
	}
	issue = cloneIssue(issue)
	issue.Status = change.Status
	issue.UpdatedAt = change.Timestamp
	issue.StatusHistory = append(issue.StatusHistory, change)
	r.issues[id] = issue

	c := cloneIssue(issue)
	return &c, nil
}

func cloneIssue(in domain.Issue) domain.Issue {
	out := in
	out.Images = append([]string(nil), in.Images...)
	if out.Images == nil {
		out.Images = []string{}
	}
	out.StatusHistory = append([]domain.StatusChange(nil), in.StatusHistory...)
	return out
}

// ── events ────────────────────────────────────────────────────────────────────

type eventRepo Store

func (r *eventRepo) InsertEvent(_ context.Context, event *domain.IssueEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}
