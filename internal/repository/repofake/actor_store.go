package repofake

import (
	"context"
	"strings"
	"sync"

	"village-portal/internal/model"
)

// ActorStore is an in-memory actor table pair for tests.
type ActorStore struct {
	lock   sync.RWMutex
	actors map[model.ActorKind]map[string]*model.Actor
	// Writes counts refresh-token column updates per actor id.
	Writes map[string]int
	// Err, when set, is returned by every method.
	Err error
}

func NewActorStore() *ActorStore {
	return &ActorStore{
		actors: map[model.ActorKind]map[string]*model.Actor{
			model.ActorKindAdministrator: {},
			model.ActorKindUser:          {},
		},
		Writes: map[string]int{},
	}
}

// Put inserts or replaces an actor without uniqueness checks.
func (s *ActorStore) Put(actor model.Actor) {
	s.lock.Lock()
	defer s.lock.Unlock()
	a := actor
	s.actors[actor.Kind][actor.ID] = &a
}

// Get returns a copy of the stored actor.
func (s *ActorStore) Get(kind model.ActorKind, id string) (model.Actor, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	a, ok := s.actors[kind][id]
	if !ok {
		return model.Actor{}, false
	}
	return *a, true
}

func (s *ActorStore) Delete(kind model.ActorKind, id string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.actors[kind], id)
}

func (s *ActorStore) FindByUsername(_ context.Context, kind model.ActorKind, username string) (model.Actor, error) {
	if s.Err != nil {
		return model.Actor{}, s.Err
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	for _, a := range s.actors[kind] {
		if strings.EqualFold(a.Username, username) {
			return *a, nil
		}
	}
	return model.Actor{}, model.ErrActorNotFound
}

func (s *ActorStore) FindByID(_ context.Context, kind model.ActorKind, id string) (model.Actor, error) {
	if s.Err != nil {
		return model.Actor{}, s.Err
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	a, ok := s.actors[kind][id]
	if !ok {
		return model.Actor{}, model.ErrActorNotFound
	}
	return *a, nil
}

func (s *ActorStore) FindByRefreshToken(_ context.Context, kind model.ActorKind, token string) (model.Actor, error) {
	if s.Err != nil {
		return model.Actor{}, s.Err
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	for _, a := range s.actors[kind] {
		if a.RefreshToken != nil && *a.RefreshToken == token {
			return *a, nil
		}
	}
	return model.Actor{}, model.ErrActorNotFound
}

func (s *ActorStore) SetRefreshToken(_ context.Context, kind model.ActorKind, id string, token string) error {
	if s.Err != nil {
		return s.Err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	a, ok := s.actors[kind][id]
	if !ok {
		return model.ErrActorNotFound
	}
	t := token
	a.RefreshToken = &t
	s.Writes[id]++
	return nil
}

func (s *ActorStore) ClearRefreshToken(_ context.Context, kind model.ActorKind, id string, token string) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	a, ok := s.actors[kind][id]
	if !ok || a.RefreshToken == nil || *a.RefreshToken != token {
		return false, nil
	}
	a.RefreshToken = nil
	s.Writes[id]++
	return true, nil
}

func (s *ActorStore) UsernameExists(_ context.Context, username string) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	for _, table := range s.actors {
		for _, a := range table {
			if strings.EqualFold(a.Username, username) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *ActorStore) EmailExists(_ context.Context, email string) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	for _, a := range s.actors[model.ActorKindAdministrator] {
		if strings.EqualFold(a.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *ActorStore) Create(_ context.Context, actor model.Actor) error {
	if s.Err != nil {
		return s.Err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, table := range s.actors {
		for _, a := range table {
			if strings.EqualFold(a.Username, actor.Username) {
				return model.ErrUsernameTaken
			}
		}
	}
	a := actor
	s.actors[actor.Kind][actor.ID] = &a
	return nil
}
