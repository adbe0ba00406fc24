package service

import (
	"context"
	"fmt"

	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/model"
	"github.com/sakif/gthanks/internal/repository"
)

// Action is something an actor wants to do to a resource.
type Action string

const (
	ActionView    Action = "view"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionShare   Action = "share" // slug, password, co-admins
	ActionReserve Action = "reserve"
)

type ResourceType string

const (
	ResourceWish ResourceType = "wish"
	ResourceList ResourceType = "list"
)

// Resource identifies what an action targets.
type Resource struct {
	Type ResourceType
	ID   string
}

func WishResource(id string) Resource { return Resource{Type: ResourceWish, ID: id} }
func ListResource(id string) Resource { return Resource{Type: ResourceList, ID: id} }

// Decision is the answer to a permission question. Reason explains a denial.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

// PermissionService decides who may do what.
//
// THE RULES:
//
//	Wish: the owner may view, edit, delete and share it. Anyone who is not
//	      the owner (anonymous visitors included) may reserve it. A non-owner
//	      may view it when it sits on a list they can view.
//	List: the owner may do everything. A co-admin may view and edit. Anyone
//	      may view a public list. Password lists are only viewable here by the
//	      owner and co-admins; visitors unlock them with an access token
//	      through VanityService instead.
//
// An empty actorID means an anonymous request.
type PermissionService struct {
	wishes repository.WishRepository
	lists  repository.ListRepository
}

func NewPermissionService(wishes repository.WishRepository, lists repository.ListRepository) *PermissionService {
	return &PermissionService{wishes: wishes, lists: lists}
}

// Can loads the resource and evaluates action for actorID.
// A missing resource is reported as an apperror.ErrNotFound error.
func (s *PermissionService) Can(ctx context.Context, actorID string, action Action, res Resource) (Decision, error) {
	switch res.Type {
	case ResourceWish:
		wish, err := s.wishes.GetWish(ctx, res.ID)
		if err != nil {
			return Decision{}, err
		}
		return s.CanWish(ctx, actorID, action, wish)
	case ResourceList:
		list, err := s.lists.GetList(ctx, res.ID)
		if err != nil {
			return Decision{}, err
		}
		return s.CanList(ctx, actorID, action, list)
	default:
		return Decision{}, fmt.Errorf("permission: unknown resource type %q", res.Type)
	}
}

// Require is Can that turns a denial into an apperror.ErrForbidden error.
func (s *PermissionService) Require(ctx context.Context, actorID string, action Action, res Resource) error {
	d, err := s.Can(ctx, actorID, action, res)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return apperror.Forbidden(d.Reason)
	}
	return nil
}

// Capabilities answers every action for one resource, so a client can decide
// which controls to show. A resource the actor cannot view is NotFound.
func (s *PermissionService) Capabilities(ctx context.Context, actorID string, res Resource) (map[Action]bool, error) {
	actions := []Action{ActionView, ActionEdit, ActionDelete, ActionShare}
	if res.Type == ResourceWish {
		actions = append(actions, ActionReserve)
	}

	out := make(map[Action]bool, len(actions))
	for _, action := range actions {
		d, err := s.Can(ctx, actorID, action, res)
		if err != nil {
			return nil, err
		}
		out[action] = d.Allowed
	}
	if !out[ActionView] {
		return nil, apperror.NotFound(string(res.Type), res.ID)
	}
	return out, nil
}

// CanWish evaluates action on an already loaded wish.
func (s *PermissionService) CanWish(ctx context.Context, actorID string, action Action, wish *model.Wish) (Decision, error) {
	isOwner := actorID != "" && actorID == wish.OwnerID

	switch action {
	case ActionReserve:
		if isOwner {
			return deny("you cannot reserve your own wish"), nil
		}
		return allow(), nil
	case ActionView:
		if isOwner {
			return allow(), nil
		}
		lists, err := s.lists.ListListsContainingWish(ctx, wish.ID)
		if err != nil {
			return Decision{}, fmt.Errorf("permission: lists containing wish %s: %w", wish.ID, err)
		}
		for i := range lists {
			d, err := s.CanList(ctx, actorID, ActionView, &lists[i])
			if err != nil {
				return Decision{}, err
			}
			if d.Allowed {
				return allow(), nil
			}
		}
		return deny("you do not have access to this wish"), nil
	case ActionEdit, ActionDelete, ActionShare:
		if isOwner {
			return allow(), nil
		}
		return deny("only the owner can change this wish"), nil
	default:
		return deny(fmt.Sprintf("unknown action %q", action)), nil
	}
}

// CanList evaluates action on an already loaded list.
func (s *PermissionService) CanList(ctx context.Context, actorID string, action Action, list *model.List) (Decision, error) {
	if actorID != "" && actorID == list.OwnerID {
		return allow(), nil
	}

	isAdmin := false
	if actorID != "" {
		var err error
		isAdmin, err = s.lists.IsListAdmin(ctx, list.ID, actorID)
		if err != nil {
			return Decision{}, fmt.Errorf("permission: checking co-admin on list %s: %w", list.ID, err)
		}
	}

	switch action {
	case ActionView:
		if isAdmin || list.Visibility == model.VisibilityPublic {
			return allow(), nil
		}
		if list.Visibility == model.VisibilityPassword {
			return deny("this list is password protected"), nil
		}
		return deny("this list is private"), nil
	case ActionEdit:
		if isAdmin {
			return allow(), nil
		}
		return deny("only the owner or a co-admin can edit this list"), nil
	case ActionDelete, ActionShare:
		return deny("only the owner can do this"), nil
	case ActionReserve:
		return deny("lists cannot be reserved"), nil
	default:
		return deny(fmt.Sprintf("unknown action %q", action)), nil
	}
}

// requireList enforces action on list for actorID. Only actors who already
// manage the list (owner or co-admin) are told Forbidden; everyone else gets
// NotFound, even for public lists, so list IDs cannot be probed for write
// access.
func (s *PermissionService) requireList(ctx context.Context, actorID string, action Action, list *model.List) error {
	d, err := s.CanList(ctx, actorID, action, list)
	if err != nil {
		return err
	}
	if d.Allowed {
		return nil
	}
	if action != ActionView {
		manage, err := s.CanList(ctx, actorID, ActionEdit, list)
		if err != nil {
			return err
		}
		if manage.Allowed {
			return apperror.Forbidden(d.Reason)
		}
	}
	return apperror.NotFound("list", list.ID)
}

// requireWish is requireList for wishes, where only the owner manages.
func (s *PermissionService) requireWish(ctx context.Context, actorID string, action Action, wish *model.Wish) error {
	d, err := s.CanWish(ctx, actorID, action, wish)
	if err != nil {
		return err
	}
	if d.Allowed {
		return nil
	}
	if actorID != "" && actorID == wish.OwnerID {
		return apperror.Forbidden(d.Reason)
	}
	return apperror.NotFound("wish", wish.ID)
}
