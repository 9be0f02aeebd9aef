package main

import (
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/bjaus/wrap"
)

// User is the demo resource. Created is encoded in ISO 8601 form by
// JSONResponse.
type User struct {
	ID      int       `json:"id"`
	Name    string    `json:"name"`
	Age     any       `json:"age"`
	Tags    []any     `json:"tags,omitempty"`
	Created time.Time `json:"created"`
}

type userStore struct {
	mu     sync.Mutex
	nextID int
	users  map[int]User
	now    func() time.Time
}

func newUserStore() *userStore {
	return &userStore{users: make(map[int]User), now: time.Now}
}

func (s *userStore) list(*http.Request) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]User, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.users[id])
	}
	return out, nil
}

func (s *userStore) create(body map[string]any, _ *http.Request) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	u := User{
		ID:      s.nextID,
		Name:    body["name"].(string),
		Age:     body["age"],
		Created: s.now().UTC(),
	}
	if tags, ok := body["tags"].([]any); ok {
		u.Tags = tags
	}
	s.users[u.ID] = u
	return wrap.Status(u, http.StatusCreated), nil
}

func (s *userStore) get(r *http.Request) (any, error) {
	u, err := s.lookup(r)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userStore) remove(r *http.Request) (any, error) {
	u, err := s.lookup(r)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	delete(s.users, u.ID)
	s.mu.Unlock()
	return wrap.Reply{map[string]any{"deleted": u.ID}, http.StatusOK}, nil
}

func (s *userStore) lookup(r *http.Request) (User, error) {
	raw := wrap.Vars(r)["id"]
	id, err := strconv.Atoi(raw)
	if err != nil {
		return User{}, wrap.Errorf(http.StatusBadRequest, "invalid user id %q", raw)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, wrap.Errorf(http.StatusNotFound, "user %d not found", id)
	}
	return u, nil
}
