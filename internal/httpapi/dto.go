package httpapi

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rpattn/movementcontrol/internal/audit"
	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/middleware"
	"github.com/rpattn/movementcontrol/internal/permission"
	"github.com/rpattn/movementcontrol/internal/snapshot"
)

type userSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Initials string `json:"initials"`
}

func summarize(u *domain.User) *userSummary {
	if u == nil {
		return nil
	}
	return &userSummary{ID: u.ID, Username: u.Username, FullName: u.FullName(), Initials: u.Initials()}
}

type meResponse struct {
	User        domain.User             `json:"user"`
	FullName    string                  `json:"full_name"`
	Initials    string                  `json:"initials"`
	Permissions []permission.Permission `json:"permissions"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type listRequest struct {
	Type              string `json:"list_type"`
	ScheduledDatetime string `json:"scheduled_datetime"`
	Place             string `json:"place"`
	Watch             string `json:"watch"`
}

type listResponse struct {
	domain.MovementList
	Title       string       `json:"title"`
	WasModified bool         `json:"was_modified"`
	Creator     *userSummary `json:"creator"`
	CanChange   bool         `json:"can_change"`
	CanDelete   bool         `json:"can_delete"`
}

type entryResponse struct {
	domain.EntryDetail
	FullName    string       `json:"full_name"`
	Initials    string       `json:"initials"`
	WasModified bool         `json:"was_modified"`
	Creator     *userSummary `json:"creator"`
	CanChange   bool         `json:"can_change"`
	CanDelete   bool         `json:"can_delete"`
}

type historyItem struct {
	ID         int64                  `json:"id"`
	ModifiedBy *userSummary           `json:"modified_by"`
	ModifiedAt time.Time              `json:"modified_datetime"`
	Prev       []snapshot.Field       `json:"prev,omitempty"`
	Post       []snapshot.Field       `json:"post,omitempty"`
	Changes    []snapshot.FieldChange `json:"changes,omitempty"`
	Diff       string                 `json:"diff,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// loadUsers resolves creator and modifier ids through the request's loader.
func (a *API) loadUsers(ctx context.Context, ids []*int64) map[int64]*domain.User {
	loader := middleware.UserLoaderFromContext(ctx)
	if loader == nil {
		return map[int64]*domain.User{}
	}
	users, err := loader.LoadMany(ctx, ids)
	if err != nil {
		a.logger.Warn("failed to load users", zap.Error(err))
		return map[int64]*domain.User{}
	}
	return users
}

func lookup(users map[int64]*domain.User, id *int64) *userSummary {
	if id == nil {
		return nil
	}
	return summarize(users[*id])
}

func (a *API) listResponses(ctx context.Context, actor *permission.Actor, lists []domain.MovementList) []listResponse {
	ids := make([]*int64, 0, len(lists))
	for _, l := range lists {
		ids = append(ids, l.CreatorID)
	}
	users := a.loadUsers(ctx, ids)
	gate := a.svc.Gate()

	out := make([]listResponse, 0, len(lists))
	for _, l := range lists {
		out = append(out, listResponse{
			MovementList: l,
			Title:        l.Title(a.opts.Location),
			WasModified:  l.State.WasModified(),
			Creator:      lookup(users, l.CreatorID),
			CanChange:    gate.CanMutate(actor, l, permission.OperationChange),
			CanDelete:    gate.CanMutate(actor, l, permission.OperationDelete),
		})
	}
	return out
}

func (a *API) entryResponses(ctx context.Context, actor *permission.Actor, entries []domain.EntryDetail) []entryResponse {
	ids := make([]*int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.CreatorID)
	}
	users := a.loadUsers(ctx, ids)
	gate := a.svc.Gate()

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			EntryDetail: e,
			FullName:    e.Employee.FullName(),
			Initials:    e.Employee.Initials(),
			WasModified: e.State.WasModified(),
			Creator:     lookup(users, e.CreatorID),
			CanChange:   gate.CanMutate(actor, e.MovementEntry, permission.OperationChange),
			CanDelete:   gate.CanMutate(actor, e.MovementEntry, permission.OperationDelete),
		})
	}
	return out
}

func (a *API) historyItems(ctx context.Context, views []audit.View) []historyItem {
	ids := make([]*int64, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.Record.ModifiedBy)
	}
	users := a.loadUsers(ctx, ids)

	out := make([]historyItem, 0, len(views))
	for _, v := range views {
		item := historyItem{
			ID:         v.Record.ID,
			ModifiedBy: lookup(users, v.Record.ModifiedBy),
			ModifiedAt: v.Record.ModifiedAt,
		}
		if v.Err != nil {
			item.Error = v.Err.Error()
		} else {
			item.Prev = v.Prev.Fields()
			item.Post = v.Post.Fields()
			item.Changes = v.Changes
			item.Diff = snapshot.UnifiedDiff("before", v.Prev, "after", v.Post)
		}
		out = append(out, item)
	}
	return out
}
