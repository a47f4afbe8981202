package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/rpattn/movementcontrol/internal/domain"
)

type facilityRepository struct{ a accessor }

func (r facilityRepository) Create(_ context.Context, in domain.FacilityInput) (domain.Facility, error) {
	var out domain.Facility
	err := r.a.write(func(s *state) error {
		for _, f := range s.facilities {
			if f.Name == in.Name {
				return uniqueViolation("name", "a facility with this name already exists")
			}
			if f.Slug == in.Slug {
				return uniqueViolation("slug", "a facility with this slug already exists")
			}
		}
		out = domain.Facility{ID: s.nextID(), Name: in.Name, Slug: in.Slug}
		s.facilities[out.ID] = out
		return nil
	})
	return out, err
}

func (r facilityRepository) GetByID(_ context.Context, id int64) (domain.Facility, error) {
	var out domain.Facility
	err := r.a.read(func(s *state) error {
		f, ok := s.facilities[id]
		if !ok {
			return domain.NewNotFound("facility", id)
		}
		out = f
		return nil
	})
	return out, err
}

func (r facilityRepository) GetBySlug(_ context.Context, slug string) (domain.Facility, error) {
	var out domain.Facility
	err := r.a.read(func(s *state) error {
		for _, f := range s.facilities {
			if f.Slug == slug {
				out = f
				return nil
			}
		}
		return domain.NewNotFound("facility", slug)
	})
	return out, err
}

func (r facilityRepository) List(_ context.Context) ([]domain.Facility, error) {
	out := make([]domain.Facility, 0)
	err := r.a.read(func(s *state) error {
		for _, f := range s.facilities {
			out = append(out, f)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r facilityRepository) Delete(_ context.Context, id int64) error {
	return r.a.write(func(s *state) error {
		if _, ok := s.facilities[id]; !ok {
			return domain.NewNotFound("facility", id)
		}
		delete(s.facilities, id)

		lists := map[int64]bool{}
		for listID, l := range s.lists {
			if l.FacilityID == id {
				lists[listID] = true
				delete(s.lists, listID)
			}
		}
		entries := map[int64]bool{}
		for entryID, e := range s.entries {
			if lists[e.ListID] {
				entries[entryID] = true
				delete(s.entries, entryID)
			}
		}
		kept := s.history[:0]
		for _, h := range s.history {
			switch {
			case h.Subject.Kind == domain.KindMovementList && lists[h.Subject.ID]:
			case h.Subject.Kind == domain.KindMovementEntry && entries[h.Subject.ID]:
			default:
				kept = append(kept, h)
			}
		}
		s.history = kept
		return nil
	})
}

type userRepository struct{ a accessor }

func (r userRepository) Create(_ context.Context, user domain.User) (domain.User, error) {
	var out domain.User
	err := r.a.write(func(s *state) error {
		for _, u := range s.users {
			if strings.EqualFold(u.Username, user.Username) {
				return uniqueViolation("username", "a user with this username already exists")
			}
		}
		out = cloneUser(user)
		out.ID = s.nextID()
		s.users[out.ID] = out
		return nil
	})
	return cloneUser(out), err
}

func (r userRepository) GetByID(_ context.Context, id int64) (domain.User, error) {
	var out domain.User
	err := r.a.read(func(s *state) error {
		u, ok := s.users[id]
		if !ok {
			return domain.NewNotFound("user", id)
		}
		out = cloneUser(u)
		return nil
	})
	return out, err
}

func (r userRepository) GetByIDs(_ context.Context, ids []int64) ([]domain.User, error) {
	out := make([]domain.User, 0, len(ids))
	err := r.a.read(func(s *state) error {
		for _, id := range ids {
			if u, ok := s.users[id]; ok {
				out = append(out, cloneUser(u))
			}
		}
		return nil
	})
	return out, err
}

func (r userRepository) GetByUsername(_ context.Context, username string) (domain.User, error) {
	var out domain.User
	err := r.a.read(func(s *state) error {
		for _, u := range s.users {
			if strings.EqualFold(u.Username, username) {
				out = cloneUser(u)
				return nil
			}
		}
		return domain.NewNotFound("user", username)
	})
	return out, err
}

func (r userRepository) List(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0)
	err := r.a.read(func(s *state) error {
		for _, u := range s.users {
			out = append(out, cloneUser(u))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r userRepository) SetPassword(_ context.Context, id int64, passwordHash string) error {
	return r.a.write(func(s *state) error {
		u, ok := s.users[id]
		if !ok {
			return domain.NewNotFound("user", id)
		}
		u.PasswordHash = passwordHash
		s.users[id] = u
		return nil
	})
}

type employeeRepository struct{ a accessor }

func (r employeeRepository) Create(_ context.Context, employee domain.Employee) (domain.Employee, error) {
	var out domain.Employee
	err := r.a.write(func(s *state) error {
		out = employee
		out.ID = s.nextID()
		s.employees[out.ID] = out
		return nil
	})
	return out, err
}

func (r employeeRepository) GetByID(_ context.Context, id int64) (domain.Employee, error) {
	var out domain.Employee
	err := r.a.read(func(s *state) error {
		e, ok := s.employees[id]
		if !ok {
			return domain.NewNotFound("employee", id)
		}
		out = e
		return nil
	})
	return out, err
}

func (r employeeRepository) Update(_ context.Context, employee domain.Employee) (domain.Employee, error) {
	err := r.a.write(func(s *state) error {
		if _, ok := s.employees[employee.ID]; !ok {
			return domain.NewNotFound("employee", employee.ID)
		}
		s.employees[employee.ID] = employee
		return nil
	})
	return employee, err
}

func (r employeeRepository) Delete(_ context.Context, id int64) error {
	return r.a.write(func(s *state) error {
		if _, ok := s.employees[id]; !ok {
			return domain.NewNotFound("employee", id)
		}
		for _, e := range s.entries {
			if e.EmployeeID == id {
				return &domain.ConstraintViolationError{
					Entity: "employee",
					Reason: "referenced by a movement entry",
				}
			}
		}
		delete(s.employees, id)
		return nil
	})
}

type listRepository struct{ a accessor }

func (r listRepository) Create(_ context.Context, list domain.MovementList) (domain.MovementList, error) {
	var out domain.MovementList
	err := r.a.write(func(s *state) error {
		if _, ok := s.facilities[list.FacilityID]; !ok {
			return domain.NewNotFound("facility", list.FacilityID)
		}
		out = cloneList(list)
		out.ID = s.nextID()
		s.lists[out.ID] = out
		return nil
	})
	return cloneList(out), err
}

func (r listRepository) GetByID(_ context.Context, id int64) (domain.MovementList, error) {
	var out domain.MovementList
	err := r.a.read(func(s *state) error {
		l, ok := s.lists[id]
		if !ok {
			return domain.NewNotFound("movement list", id)
		}
		out = cloneList(l)
		return nil
	})
	return out, err
}

func (r listRepository) GetForUpdate(ctx context.Context, id int64) (domain.MovementList, error) {
	return r.GetByID(ctx, id)
}

func (r listRepository) Update(_ context.Context, list domain.MovementList) (domain.MovementList, error) {
	err := r.a.write(func(s *state) error {
		current, ok := s.lists[list.ID]
		if !ok {
			return domain.NewNotFound("movement list", list.ID)
		}
		current.ScheduledDatetime = list.ScheduledDatetime
		current.Place = list.Place
		current.Watch = list.Watch
		current.State = list.State
		current.LastModified = list.LastModified
		s.lists[list.ID] = current
		list = cloneList(current)
		return nil
	})
	return list, err
}

func (r listRepository) List(_ context.Context, filter domain.ListFilter, page domain.PageRequest) ([]domain.MovementList, int, error) {
	matched := make([]domain.MovementList, 0)
	err := r.a.read(func(s *state) error {
		for _, l := range s.lists {
			if filter.Matches(l) {
				matched = append(matched, cloneList(l))
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return paginate(matched, page), len(matched), nil
}

type entryRepository struct{ a accessor }

func (r entryRepository) Create(_ context.Context, entry domain.MovementEntry) (domain.MovementEntry, error) {
	var out domain.MovementEntry
	err := r.a.write(func(s *state) error {
		if _, ok := s.lists[entry.ListID]; !ok {
			return domain.NewNotFound("movement list", entry.ListID)
		}
		if _, ok := s.employees[entry.EmployeeID]; !ok {
			return domain.NewNotFound("employee", entry.EmployeeID)
		}
		for _, e := range s.entries {
			if e.EmployeeID == entry.EmployeeID {
				return &domain.ConstraintViolationError{Entity: "movement entry", Reason: "employee already has an entry"}
			}
		}
		out = cloneEntry(entry)
		out.ID = s.nextID()
		s.entries[out.ID] = out
		return nil
	})
	return cloneEntry(out), err
}

func detail(s *state, e domain.MovementEntry) domain.EntryDetail {
	return domain.EntryDetail{MovementEntry: cloneEntry(e), Employee: s.employees[e.EmployeeID]}
}

func (r entryRepository) GetByID(_ context.Context, id int64) (domain.EntryDetail, error) {
	var out domain.EntryDetail
	err := r.a.read(func(s *state) error {
		e, ok := s.entries[id]
		if !ok {
			return domain.NewNotFound("movement entry", id)
		}
		out = detail(s, e)
		return nil
	})
	return out, err
}

func (r entryRepository) GetForUpdate(ctx context.Context, id int64) (domain.EntryDetail, error) {
	return r.GetByID(ctx, id)
}

func (r entryRepository) Update(_ context.Context, entry domain.MovementEntry) (domain.MovementEntry, error) {
	err := r.a.write(func(s *state) error {
		current, ok := s.entries[entry.ID]
		if !ok {
			return domain.NewNotFound("movement entry", entry.ID)
		}
		current.State = entry.State
		current.LastModified = entry.LastModified
		s.entries[entry.ID] = current
		entry = cloneEntry(current)
		return nil
	})
	return entry, err
}

func (r entryRepository) List(_ context.Context, filter domain.EntryFilter, page domain.PageRequest) ([]domain.EntryDetail, int, error) {
	matched := make([]domain.EntryDetail, 0)
	err := r.a.read(func(s *state) error {
		for _, e := range s.entries {
			d := detail(s, e)
			if filter.Matches(d) {
				matched = append(matched, d)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return paginate(matched, page), len(matched), nil
}

func (r entryRepository) ListForExport(_ context.Context, listID int64) ([]domain.EntryDetail, error) {
	out := make([]domain.EntryDetail, 0)
	err := r.a.read(func(s *state) error {
		for _, e := range s.entries {
			if e.ListID == listID && !e.State.IsDeleted() {
				out = append(out, detail(s, e))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r entryRepository) Suggestions(_ context.Context, field domain.AutocompleteField, prefix string, limit int) ([]string, error) {
	seen := map[string]struct{}{}
	needle := strings.ToLower(prefix)
	add := func(value string) {
		if value == "" || !strings.HasPrefix(strings.ToLower(value), needle) {
			return
		}
		seen[value] = struct{}{}
	}
	err := r.a.read(func(s *state) error {
		for _, e := range s.entries {
			add(field.Value(s.employees[e.EmployeeID].PersonName))
			if e.CreatorID != nil {
				if u, ok := s.users[*e.CreatorID]; ok {
					add(field.Value(u.PersonName))
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for value := range seen {
		out = append(out, value)
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type historyRepository struct{ a accessor }

func (r historyRepository) AppendHistory(_ context.Context, record domain.HistoryRecord) (domain.HistoryRecord, error) {
	err := r.a.write(func(s *state) error {
		if err := parentExists(s, record.Subject); err != nil {
			return err
		}
		record = cloneHistory(record)
		record.ID = s.nextID()
		s.history = append(s.history, record)
		return nil
	})
	return cloneHistory(record), err
}

func parentExists(s *state, subject domain.Subject) error {
	switch subject.Kind {
	case domain.KindMovementList:
		if _, ok := s.lists[subject.ID]; ok {
			return nil
		}
	case domain.KindMovementEntry:
		if _, ok := s.entries[subject.ID]; ok {
			return nil
		}
	}
	return domain.NewNotFound(string(subject.Kind), subject.ID)
}

func (r historyRepository) ListHistoryPage(_ context.Context, subject domain.Subject, beforeID int64, limit int) ([]domain.HistoryRecord, error) {
	out := make([]domain.HistoryRecord, 0)
	err := r.a.read(func(s *state) error {
		for i := len(s.history) - 1; i >= 0; i-- {
			h := s.history[i]
			if h.Subject != subject || (beforeID > 0 && h.ID >= beforeID) {
				continue
			}
			out = append(out, cloneHistory(h))
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func (r historyRepository) Count(_ context.Context, subject domain.Subject) (int, error) {
	count := 0
	err := r.a.read(func(s *state) error {
		for _, h := range s.history {
			if h.Subject == subject {
				count++
			}
		}
		return nil
	})
	return count, err
}

func uniqueViolation(field, message string) error {
	verr := domain.NewValidationError()
	verr.Add(field, message)
	return verr
}

func paginate[T any](items []T, page domain.PageRequest) []T {
	start := page.Offset()
	if start >= len(items) || start < 0 {
		return []T{}
	}
	end := start + page.PageSize
	if page.PageSize <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
