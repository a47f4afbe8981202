// Package memory is an in-process implementation of repository.Store used by
// tests and by the server's memory driver.
package memory

import (
	"context"
	"sync"

	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/repository"
)

type state struct {
	seq        int64
	facilities map[int64]domain.Facility
	users      map[int64]domain.User
	employees  map[int64]domain.Employee
	lists      map[int64]domain.MovementList
	entries    map[int64]domain.MovementEntry
	history    []domain.HistoryRecord
}

func newState() state {
	return state{
		facilities: map[int64]domain.Facility{},
		users:      map[int64]domain.User{},
		employees:  map[int64]domain.Employee{},
		lists:      map[int64]domain.MovementList{},
		entries:    map[int64]domain.MovementEntry{},
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

func (s state) clone() state {
	out := state{
		seq:        s.seq,
		facilities: make(map[int64]domain.Facility, len(s.facilities)),
		users:      make(map[int64]domain.User, len(s.users)),
		employees:  make(map[int64]domain.Employee, len(s.employees)),
		lists:      make(map[int64]domain.MovementList, len(s.lists)),
		entries:    make(map[int64]domain.MovementEntry, len(s.entries)),
		history:    make([]domain.HistoryRecord, len(s.history)),
	}
	for id, f := range s.facilities {
		out.facilities[id] = f
	}
	for id, u := range s.users {
		out.users[id] = cloneUser(u)
	}
	for id, e := range s.employees {
		out.employees[id] = e
	}
	for id, l := range s.lists {
		out.lists[id] = cloneList(l)
	}
	for id, e := range s.entries {
		out.entries[id] = cloneEntry(e)
	}
	for i, h := range s.history {
		out.history[i] = cloneHistory(h)
	}
	return out
}

func cloneUser(u domain.User) domain.User {
	u.Groups = append([]string(nil), u.Groups...)
	return u
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneList(l domain.MovementList) domain.MovementList {
	l.CreatorID = cloneID(l.CreatorID)
	return l
}

func cloneEntry(e domain.MovementEntry) domain.MovementEntry {
	e.CreatorID = cloneID(e.CreatorID)
	return e
}

func cloneHistory(h domain.HistoryRecord) domain.HistoryRecord {
	h.ModifiedBy = cloneID(h.ModifiedBy)
	h.Prev = append([]byte(nil), h.Prev...)
	h.Post = append([]byte(nil), h.Post...)
	return h
}

// accessor runs fn against the state visible to a repository. Writes outside
// a transaction commit atomically per call.
type accessor interface {
	read(fn func(*state) error) error
	write(fn func(*state) error) error
}

// Store is a copy-on-write repository.Store guarded by a single writer lock.
type Store struct {
	mu    sync.RWMutex
	state state
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) read(fn func(*state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.state)
}

func (s *Store) write(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Store) Facilities() repository.FacilityRepository   { return facilityRepository{s} }
func (s *Store) Users() repository.UserRepository            { return userRepository{s} }
func (s *Store) Employees() repository.EmployeeRepository    { return employeeRepository{s} }
func (s *Store) Lists() repository.MovementListRepository    { return listRepository{s} }
func (s *Store) Entries() repository.MovementEntryRepository { return entryRepository{s} }
func (s *Store) History() repository.HistoryRepository       { return historyRepository{s} }
func (s *Store) Ping(context.Context) error                  { return nil }

// WithinTx holds the writer lock for the whole of fn and publishes its
// changes only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &txStore{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

type txStore struct {
	state state
}

func (t *txStore) read(fn func(*state) error) error { return fn(&t.state) }

// write works on a scratch copy so a failed call leaves the transaction untouched.
func (t *txStore) write(fn func(*state) error) error {
	next := t.state.clone()
	if err := fn(&next); err != nil {
		return err
	}
	t.state = next
	return nil
}

func (t *txStore) Facilities() repository.FacilityRepository   { return facilityRepository{t} }
func (t *txStore) Users() repository.UserRepository            { return userRepository{t} }
func (t *txStore) Employees() repository.EmployeeRepository    { return employeeRepository{t} }
func (t *txStore) Lists() repository.MovementListRepository    { return listRepository{t} }
func (t *txStore) Entries() repository.MovementEntryRepository { return entryRepository{t} }
func (t *txStore) History() repository.HistoryRepository       { return historyRepository{t} }
func (t *txStore) Ping(context.Context) error                  { return nil }

func (t *txStore) WithinTx(_ context.Context, fn func(repository.Store) error) error {
	return fn(t)
}

var (
	_ repository.Store = (*Store)(nil)
	_ repository.Store = (*txStore)(nil)
)
