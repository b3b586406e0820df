package tasks

import (
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
	"github.com/taskdesk/taskdesk-backend/apps/models"
)

// treeSource serves the department tree from maps.
type treeSource struct {
	children map[uint][]uint
	exists   map[uint]bool
}

func (s treeSource) ChildDepartments(departmentID uint) ([]uint, error) {
	return s.children[departmentID], nil
}

func (s treeSource) DepartmentExists(departmentID uint) (bool, error) {
	return s.exists[departmentID], nil
}

// fakeRepo is an in-memory Repository.
type fakeRepo struct {
	tasks         map[uint]*models.Task
	nextTaskID    uint
	comments      map[uint]*models.TaskComment
	nextCommentID uint
	tags          map[string]models.Tag
	nextTagID     uint
	users         map[uuid.UUID]bool
	projects      map[uint]bool
	departments   []uint
	logs          []models.TaskLogEntry

	// failCreates fails the next N CreateTask calls.
	failCreates int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tasks:    map[uint]*models.Task{},
		comments: map[uint]*models.TaskComment{},
		tags:     map[string]models.Tag{},
		users:    map[uuid.UUID]bool{},
		projects: map[uint]bool{},
	}
}

func (r *fakeRepo) TaskByID(id uint) (*models.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return nil, &NotFoundError{Kind: "task", ID: id}
	}
	return task, nil
}

func (r *fakeRepo) resolveTag(name string) (models.Tag, bool) {
	name = normalizeTag(name)
	if name == "" {
		return models.Tag{}, false
	}
	if tag, ok := r.tags[name]; ok {
		return tag, true
	}
	r.nextTagID++
	tag := models.Tag{ID: r.nextTagID, Name: name}
	r.tags[name] = tag
	return tag, true
}

func (r *fakeRepo) CreateTask(task *models.Task, assigneeIDs []uuid.UUID, assignedBy uuid.UUID, tags []string) error {
	if r.failCreates > 0 {
		r.failCreates--
		return errors.New("storage unavailable")
	}
	r.nextTaskID++
	task.ID = r.nextTaskID
	for _, userID := range assigneeIDs {
		task.Assignments = append(task.Assignments, models.TaskAssignment{
			TaskID:     task.ID,
			UserID:     userID,
			AssignedBy: assignedBy,
		})
	}
	for _, name := range tags {
		tag, ok := r.resolveTag(name)
		if !ok {
			continue
		}
		if !hasTag(task, tag.Name) {
			task.Tags = append(task.Tags, tag)
		}
	}
	r.tasks[task.ID] = task
	return nil
}

func (r *fakeRepo) UpdateTask(task *models.Task) error {
	if _, ok := r.tasks[task.ID]; !ok {
		return &NotFoundError{Kind: "task", ID: task.ID}
	}
	r.tasks[task.ID] = task
	return nil
}

func (r *fakeRepo) matches(task *models.Task, filter TaskFilter) bool {
	if len(filter.DepartmentIDs) > 0 {
		found := false
		for _, id := range filter.DepartmentIDs {
			if task.DepartmentID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.AssigneeID != nil && !task.HasAssignee(*filter.AssigneeID) {
		return false
	}
	if filter.OwnerID != nil && task.OwnerID != *filter.OwnerID {
		return false
	}
	if filter.ProjectID != nil && (task.ProjectID == nil || *task.ProjectID != *filter.ProjectID) {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if task.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Tag != "" && !hasTag(task, normalizeTag(filter.Tag)) {
		return false
	}
	if !filter.IncludeArchived && task.Archived {
		return false
	}
	return true
}

func (r *fakeRepo) SearchTasks(filter TaskFilter) ([]models.Task, error) {
	ids := make([]uint, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []models.Task
	for _, id := range ids {
		if r.matches(r.tasks[id], filter) {
			out = append(out, *r.tasks[id])
		}
	}
	return out, nil
}

func (r *fakeRepo) CountByStatus(filter TaskFilter) (map[string]int64, error) {
	counts := make(map[string]int64, len(models.TaskStatuses))
	for _, status := range models.TaskStatuses {
		counts[status] = 0
	}
	for _, task := range r.tasks {
		if r.matches(task, filter) {
			counts[task.Status]++
		}
	}
	return counts, nil
}

func (r *fakeRepo) AddAssignee(taskID uint, userID, assignedBy uuid.UUID) error {
	task := r.tasks[taskID]
	if task.HasAssignee(userID) {
		return nil
	}
	task.Assignments = append(task.Assignments, models.TaskAssignment{
		TaskID:     taskID,
		UserID:     userID,
		AssignedBy: assignedBy,
	})
	return nil
}

func (r *fakeRepo) RemoveAssignee(taskID uint, userID uuid.UUID) error {
	task := r.tasks[taskID]
	kept := task.Assignments[:0]
	for _, a := range task.Assignments {
		if a.UserID != userID {
			kept = append(kept, a)
		}
	}
	task.Assignments = kept
	return nil
}

func (r *fakeRepo) AddTag(taskID uint, name string) error {
	tag, ok := r.resolveTag(name)
	if !ok {
		return &ValidationError{Field: "tag", Reason: "tag name is required"}
	}
	task := r.tasks[taskID]
	if !hasTag(task, tag.Name) {
		task.Tags = append(task.Tags, tag)
	}
	return nil
}

func (r *fakeRepo) RemoveTag(taskID uint, name string) error {
	name = normalizeTag(name)
	task := r.tasks[taskID]
	kept := task.Tags[:0]
	for _, tag := range task.Tags {
		if tag.Name != name {
			kept = append(kept, tag)
		}
	}
	task.Tags = kept
	return nil
}

func (r *fakeRepo) AddComment(comment *models.TaskComment) error {
	r.nextCommentID++
	comment.ID = r.nextCommentID
	r.comments[comment.ID] = comment
	return nil
}

func (r *fakeRepo) UpdateComment(comment *models.TaskComment) error {
	r.comments[comment.ID] = comment
	return nil
}

func (r *fakeRepo) CommentByID(id uint) (*models.TaskComment, error) {
	comment, ok := r.comments[id]
	if !ok {
		return nil, &NotFoundError{Kind: "comment", ID: id}
	}
	return comment, nil
}

func (r *fakeRepo) ProjectExists(id uint) (bool, error) {
	return r.projects[id], nil
}

func (r *fakeRepo) UserExists(id uuid.UUID) (bool, error) {
	return r.users[id], nil
}

func (r *fakeRepo) ActiveDepartments() ([]uint, error) {
	return r.departments, nil
}

func (r *fakeRepo) AppendLog(entry models.TaskLogEntry) error {
	r.logs = append(r.logs, entry)
	return nil
}

func (r *fakeRepo) logActions() []string {
	actions := make([]string, 0, len(r.logs))
	for _, entry := range r.logs {
		actions = append(actions, entry.Action)
	}
	return actions
}

func hasTag(task *models.Task, name string) bool {
	for _, tag := range task.Tags {
		if tag.Name == name {
			return true
		}
	}
	return false
}

// fakeNotifier records delivered events.
type fakeNotifier struct {
	events []string
}

func (n *fakeNotifier) TaskEvent(event string, task *models.Task, metadata map[string]any) {
	n.events = append(n.events, event)
}

func (n *fakeNotifier) count(event string) int {
	total := 0
	for _, e := range n.events {
		if e == event {
			total++
		}
	}
	return total
}

// fixture wires the service over an in-memory repository and the
// department tree:
//
//	1 (Engineering)
//	├── 2 (Backend)
//	└── 3 (Frontend)
//	    └── 4 (Design)
//	9 (HR, separate root)
type fixture struct {
	repo    *fakeRepo
	notify  *fakeNotifier
	service *Service

	alice *auth.User // staff, dept 2
	bob   *auth.User // staff, dept 2
	eve   *auth.User // staff, dept 9
	carol *auth.User // manager of dept 1
	dana  *auth.User // hr admin, dept 9, manages nothing
}

func newFixture() *fixture {
	source := treeSource{
		children: map[uint][]uint{
			1: {2, 3},
			3: {4},
		},
		exists: map[uint]bool{1: true, 2: true, 3: true, 4: true, 9: true},
	}
	repo := newFakeRepo()
	repo.departments = []uint{1, 2, 3, 4, 9}
	notify := &fakeNotifier{}

	f := &fixture{
		repo:    repo,
		notify:  notify,
		service: NewService(repo, source, notify),
		alice:   &auth.User{UserID: uuid.New(), Role: auth.RoleStaff, DepartmentID: 2},
		bob:     &auth.User{UserID: uuid.New(), Role: auth.RoleStaff, DepartmentID: 2},
		eve:     &auth.User{UserID: uuid.New(), Role: auth.RoleStaff, DepartmentID: 9},
		carol:   &auth.User{UserID: uuid.New(), Role: auth.RoleManager, DepartmentID: 1},
		dana:    &auth.User{UserID: uuid.New(), Role: auth.RoleHRAdmin, DepartmentID: 9},
	}
	managed := uint(1)
	f.carol.ManagedDepartmentID = &managed

	for _, user := range []*auth.User{f.alice, f.bob, f.eve, f.carol, f.dana} {
		repo.users[user.UserID] = true
	}
	return f
}

func (f *fixture) mustCreate(t *testing.T, creator *auth.User, mutate func(*NewTaskInput)) *TaskView {
	t.Helper()
	input := NewTaskInput{
		Title:       "Ship the release",
		Priority:    5,
		DueDate:     time.Now().AddDate(0, 0, 7),
		AssigneeIDs: []uuid.UUID{creator.UserID},
	}
	if mutate != nil {
		mutate(&input)
	}
	view, err := f.service.CreateTask(input, creator)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return view
}

func TestServiceCreateTask(t *testing.T) {
	f := newFixture()
	f.repo.projects[7] = true

	project := uint(7)
	view := f.mustCreate(t, f.alice, func(in *NewTaskInput) {
		in.AssigneeIDs = []uuid.UUID{f.bob.UserID}
		in.ProjectID = &project
		in.Tags = []string{"Urgent", " urgent ", "release"}
	})

	if view.ID == 0 {
		t.Fatal("expected a persisted id")
	}
	if !view.CanEdit {
		t.Fatal("creator must be able to edit the task")
	}
	stored := f.repo.tasks[view.ID]
	if stored.DepartmentID != f.alice.DepartmentID {
		t.Fatalf("department must come from the creator, got %d", stored.DepartmentID)
	}
	if !stored.HasAssignee(f.bob.UserID) {
		t.Fatal("expected bob among assignees")
	}
	if len(stored.Tags) != 2 {
		t.Fatalf("expected tags to be normalized and deduplicated, got %v", stored.Tags)
	}
	if f.notify.count(models.WebhookEventTaskCreated) != 1 {
		t.Fatalf("expected one task.created event, got %v", f.notify.events)
	}
	if actions := f.repo.logActions(); len(actions) != 1 || actions[0] != models.ActionCreate {
		t.Fatalf("expected a create log entry, got %v", actions)
	}
}

func TestServiceCreateTask_UnknownReferences(t *testing.T) {
	f := newFixture()

	input := NewTaskInput{
		Title:       "Orphan",
		Priority:    3,
		DueDate:     time.Now().AddDate(0, 0, 1),
		AssigneeIDs: []uuid.UUID{uuid.New()},
	}
	if _, err := f.service.CreateTask(input, f.alice); !IsNotFound(err) {
		t.Fatalf("expected not found for unknown assignee, got %v", err)
	}

	missing := uint(99)
	input.AssigneeIDs = []uuid.UUID{f.bob.UserID}
	input.ProjectID = &missing
	if _, err := f.service.CreateTask(input, f.alice); !IsNotFound(err) {
		t.Fatalf("expected not found for unknown project, got %v", err)
	}
}

func TestServiceCreateTask_SubtaskRules(t *testing.T) {
	f := newFixture()
	f.repo.projects[7] = true
	project := uint(7)

	parent := f.mustCreate(t, f.alice, func(in *NewTaskInput) {
		in.ProjectID = &project
		in.DueDate = time.Now().AddDate(0, 0, 10)
	})

	// Only someone holding the parent may attach subtasks to it.
	input := NewTaskInput{
		Title:        "Subtask",
		Priority:     4,
		DueDate:      time.Now().AddDate(0, 0, 5),
		ParentTaskID: &parent.ID,
		AssigneeIDs:  []uuid.UUID{f.bob.UserID},
	}
	if _, err := f.service.CreateTask(input, f.bob); !IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}

	// A subtask deadline past the parent's is rejected.
	input.AssigneeIDs = []uuid.UUID{f.alice.UserID}
	input.DueDate = time.Now().AddDate(0, 0, 15)
	if _, err := f.service.CreateTask(input, f.alice); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// A valid subtask inherits department and project from its parent.
	input.DueDate = time.Now().AddDate(0, 0, 5)
	subtask, err := f.service.CreateTask(input, f.alice)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if subtask.DepartmentID != parent.DepartmentID {
		t.Fatalf("subtask must inherit the parent department, got %d", subtask.DepartmentID)
	}
	if subtask.ProjectID == nil || *subtask.ProjectID != project {
		t.Fatal("subtask must inherit the parent project")
	}

	// Nesting stops at one level.
	nested := input
	nested.ParentTaskID = &subtask.ID
	if _, err := f.service.CreateTask(nested, f.alice); !IsDepthExceeded(err) {
		t.Fatalf("expected depth error, got %v", err)
	}
}

func TestServiceUpdateStatus_CompletionSpawnsSuccessor(t *testing.T) {
	f := newFixture()
	interval := 7
	view := f.mustCreate(t, f.alice, func(in *NewTaskInput) {
		in.RecurringInterval = &interval
		in.AssigneeIDs = []uuid.UUID{f.bob.UserID}
		in.Tags = []string{"weekly"}
	})
	originalDue := view.DueDate

	result, err := f.service.UpdateStatus(view.ID, models.TaskStatusCompleted, f.alice)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if result.Task.Status != models.TaskStatusCompleted {
		t.Fatalf("expected completed, got %s", result.Task.Status)
	}
	if result.Warning != "" {
		t.Fatalf("unexpected warning: %s", result.Warning)
	}
	if result.Successor == nil {
		t.Fatal("expected a successor task")
	}

	successor := f.repo.tasks[result.Successor.ID]
	if successor == nil {
		t.Fatal("successor must be persisted")
	}
	if !successor.DueDate.Equal(originalDue.AddDate(0, 0, interval)) {
		t.Fatalf("expected successor due %v, got %v", originalDue.AddDate(0, 0, interval), successor.DueDate)
	}
	if successor.Status != models.TaskStatusToDo {
		t.Fatalf("expected successor in to_do, got %s", successor.Status)
	}
	if !successor.HasAssignee(f.bob.UserID) {
		t.Fatal("successor must keep the assignees")
	}
	if !hasTag(successor, "weekly") {
		t.Fatal("successor must keep the tags")
	}

	for _, event := range []string{models.WebhookEventTaskStatusChange, models.WebhookEventTaskCompleted, models.WebhookEventTaskRecurred} {
		if f.notify.count(event) != 1 {
			t.Fatalf("expected one %s event, got %v", event, f.notify.events)
		}
	}
	recurrenceLogged := false
	for _, action := range f.repo.logActions() {
		if action == models.ActionRecurrence {
			recurrenceLogged = true
		}
	}
	if !recurrenceLogged {
		t.Fatal("expected a recurrence log entry")
	}
}

func TestServiceUpdateStatus_RecompletionDoesNotRespawn(t *testing.T) {
	f := newFixture()
	interval := 7
	view := f.mustCreate(t, f.alice, func(in *NewTaskInput) {
		in.RecurringInterval = &interval
	})

	if _, err := f.service.UpdateStatus(view.ID, models.TaskStatusCompleted, f.alice); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	tasksAfterFirst := len(f.repo.tasks)

	result, err := f.service.UpdateStatus(view.ID, models.TaskStatusCompleted, f.alice)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if result.Successor != nil {
		t.Fatal("re-completing must not spawn another successor")
	}
	if len(f.repo.tasks) != tasksAfterFirst {
		t.Fatalf("expected %d tasks, got %d", tasksAfterFirst, len(f.repo.tasks))
	}
}

func TestServiceUpdateStatus_RecurrenceFailureKeepsCompletion(t *testing.T) {
	f := newFixture()
	interval := 7
	view := f.mustCreate(t, f.alice, func(in *NewTaskInput) {
		in.RecurringInterval = &interval
	})

	f.repo.failCreates = 1
	result, err := f.service.UpdateStatus(view.ID, models.TaskStatusCompleted, f.alice)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if result.Successor != nil {
		t.Fatal("expected no successor after a storage failure")
	}
	if result.Warning == "" {
		t.Fatal("expected a warning explaining the recurrence failure")
	}
	if f.repo.tasks[view.ID].Status != models.TaskStatusCompleted {
		t.Fatal("the completion must survive a recurrence failure")
	}
}

func TestServiceVisibility_ManagerClosure(t *testing.T) {
	f := newFixture()
	view := f.mustCreate(t, f.alice, nil) // dept 2, inside carol's hierarchy

	got, err := f.service.GetByID(view.ID, f.carol)
	if err != nil {
		t.Fatalf("manager must see tasks of subordinate departments: %v", err)
	}
	if !got.CanEdit {
		t.Fatal("manager must be able to edit tasks in the hierarchy")
	}

	// A staff member of an unrelated department learns nothing, not
	// even that the task exists.
	if _, err := f.service.GetByID(view.ID, f.eve); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceVisibility_HRAdminAsymmetry(t *testing.T) {
	f := newFixture()
	outside := f.mustCreate(t, f.alice, nil) // dept 2
	home := f.mustCreate(t, f.eve, nil)      // dept 9, dana's department

	got, err := f.service.GetByID(outside.ID, f.dana)
	if err != nil {
		t.Fatalf("hr admin must see every task: %v", err)
	}
	if got.CanEdit {
		t.Fatal("hr admin must not be able to edit outside their department")
	}
	if _, err := f.service.UpdateTitle(outside.ID, "Renamed", f.dana); !IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}

	if _, err := f.service.UpdateTitle(home.ID, "Renamed", f.dana); err != nil {
		t.Fatalf("hr admin must edit tasks of their own department: %v", err)
	}
}

func TestServiceGetVisibleTasks(t *testing.T) {
	f := newFixture()
	owned := f.mustCreate(t, f.alice, nil)
	assigned := f.mustCreate(t, f.bob, func(in *NewTaskInput) {
		in.AssigneeIDs = []uuid.UUID{f.alice.UserID}
	})
	f.mustCreate(t, f.bob, nil) // invisible to alice

	views, err := f.service.GetVisibleTasks(f.alice, Filters{})
	if err != nil {
		t.Fatalf("GetVisibleTasks: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 visible tasks, got %d", len(views))
	}
	ids := map[uint]bool{}
	for _, v := range views {
		ids[v.ID] = true
	}
	if !ids[owned.ID] || !ids[assigned.ID] {
		t.Fatalf("expected tasks %d and %d, got %v", owned.ID, assigned.ID, ids)
	}
}

func TestServiceGetVisibleTasks_AssigneeFilter(t *testing.T) {
	f := newFixture()
	// bob holds alice's task; alice holds bob's task, which bob does
	// not hold himself.
	withBob := f.mustCreate(t, f.alice, func(in *NewTaskInput) {
		in.AssigneeIDs = []uuid.UUID{f.bob.UserID}
	})
	f.mustCreate(t, f.bob, func(in *NewTaskInput) {
		in.AssigneeIDs = []uuid.UUID{f.alice.UserID}
	})

	// Filtering by bob must not leak tasks from alice's assigned pool
	// that bob does not hold.
	views, err := f.service.GetVisibleTasks(f.alice, Filters{AssigneeID: &f.bob.UserID})
	if err != nil {
		t.Fatalf("GetVisibleTasks: %v", err)
	}
	if len(views) != 1 || views[0].ID != withBob.ID {
		t.Fatalf("expected only task %d, got %d results", withBob.ID, len(views))
	}
}

func TestServiceGetVisibleTasks_ManagerMergesPersonalPool(t *testing.T) {
	f := newFixture()
	inClosure := f.mustCreate(t, f.alice, nil) // dept 2
	// eve's task lives in dept 9, outside carol's hierarchy, but carol
	// is assigned to it.
	heldOutside := f.mustCreate(t, f.eve, func(in *NewTaskInput) {
		in.AssigneeIDs = []uuid.UUID{f.carol.UserID}
	})
	f.mustCreate(t, f.eve, nil) // outside, not held

	views, err := f.service.GetVisibleTasks(f.carol, Filters{})
	if err != nil {
		t.Fatalf("GetVisibleTasks: %v", err)
	}
	ids := map[uint]bool{}
	for _, v := range views {
		ids[v.ID] = true
	}
	if len(ids) != 2 || !ids[inClosure.ID] || !ids[heldOutside.ID] {
		t.Fatalf("expected tasks %d and %d, got %v", inClosure.ID, heldOutside.ID, ids)
	}
}

func TestServiceGetVisibleTasks_StatusFilter(t *testing.T) {
	f := newFixture()
	view := f.mustCreate(t, f.alice, nil)
	if _, err := f.service.UpdateStatus(view.ID, models.TaskStatusInProgress, f.alice); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	f.mustCreate(t, f.alice, nil)

	views, err := f.service.GetVisibleTasks(f.alice, Filters{Status: models.TaskStatusInProgress})
	if err != nil {
		t.Fatalf("GetVisibleTasks: %v", err)
	}
	if len(views) != 1 || views[0].ID != view.ID {
		t.Fatalf("expected only the in-progress task, got %d results", len(views))
	}

	if _, err := f.service.GetVisibleTasks(f.alice, Filters{Status: "done"}); !IsValidation(err) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestServiceAssignees(t *testing.T) {
	f := newFixture()
	view := f.mustCreate(t, f.alice, func(in *NewTaskInput) {
		in.AssigneeIDs = []uuid.UUID{f.bob.UserID}
	})

	// The last assignee cannot be removed.
	if _, err := f.service.RemoveAssignee(view.ID, f.bob.UserID, f.alice); !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// Removing someone who is not assigned is a not-found.
	if _, err := f.service.RemoveAssignee(view.ID, f.carol.UserID, f.alice); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	// Adding twice is idempotent.
	if _, err := f.service.AddAssignee(view.ID, f.bob.UserID, f.alice); err != nil {
		t.Fatalf("AddAssignee: %v", err)
	}
	if got := len(f.repo.tasks[view.ID].Assignments); got != 1 {
		t.Fatalf("expected 1 assignment, got %d", got)
	}

	updated, err := f.service.AddAssignee(view.ID, f.carol.UserID, f.alice)
	if err != nil {
		t.Fatalf("AddAssignee: %v", err)
	}
	if len(updated.Assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(updated.Assignments))
	}
	if f.notify.count(models.WebhookEventTaskAssigned) != 1 {
		t.Fatalf("expected one task.assigned event, got %v", f.notify.events)
	}

	updated, err = f.service.RemoveAssignee(view.ID, f.bob.UserID, f.alice)
	if err != nil {
		t.Fatalf("RemoveAssignee: %v", err)
	}
	if len(updated.Assignments) != 1 || updated.Assignments[0].UserID != f.carol.UserID {
		t.Fatal("expected only carol to remain assigned")
	}
}

func TestServiceComments(t *testing.T) {
	f := newFixture()
	view := f.mustCreate(t, f.alice, func(in *NewTaskInput) {
		in.AssigneeIDs = []uuid.UUID{f.bob.UserID}
	})

	comment, err := f.service.AddComment(view.ID, "  looks good  ", f.bob)
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if comment.Content != "looks good" {
		t.Fatalf("expected trimmed content, got %q", comment.Content)
	}

	if _, err := f.service.AddComment(view.ID, "", f.bob); !IsValidation(err) {
		t.Fatalf("expected validation error for empty comment, got %v", err)
	}

	// Commenting requires visibility; outsiders get a not-found.
	if _, err := f.service.AddComment(view.ID, "hi", f.eve); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	// Only the author may edit a comment.
	if _, err := f.service.UpdateComment(comment.ID, "changed", f.alice); !IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	updated, err := f.service.UpdateComment(comment.ID, "changed", f.bob)
	if err != nil {
		t.Fatalf("UpdateComment: %v", err)
	}
	if updated.Content != "changed" {
		t.Fatalf("expected updated content, got %q", updated.Content)
	}
}

func TestServiceTags(t *testing.T) {
	f := newFixture()
	view := f.mustCreate(t, f.alice, nil)

	updated, err := f.service.AddTag(view.ID, "  Urgent ", f.alice)
	if err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if !hasTag(&updated.Task, "urgent") {
		t.Fatalf("expected normalized tag, got %v", updated.Tags)
	}

	if _, err := f.service.AddTag(view.ID, "   ", f.alice); !IsValidation(err) {
		t.Fatalf("expected validation error for blank tag, got %v", err)
	}

	updated, err = f.service.RemoveTag(view.ID, "URGENT", f.alice)
	if err != nil {
		t.Fatalf("RemoveTag: %v", err)
	}
	if len(updated.Tags) != 0 {
		t.Fatalf("expected no tags, got %v", updated.Tags)
	}
}

func TestServiceArchive(t *testing.T) {
	f := newFixture()
	view := f.mustCreate(t, f.alice, nil)

	archived, err := f.service.Archive(view.ID, f.alice)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if !archived.Archived {
		t.Fatal("expected task to be archived")
	}

	// Idempotent.
	if _, err := f.service.Archive(view.ID, f.alice); err != nil {
		t.Fatalf("second archive must succeed: %v", err)
	}

	views, err := f.service.GetVisibleTasks(f.alice, Filters{})
	if err != nil {
		t.Fatalf("GetVisibleTasks: %v", err)
	}
	if len(views) != 0 {
		t.Fatal("archived tasks must be excluded from default listings")
	}

	views, err = f.service.GetVisibleTasks(f.alice, Filters{IncludeArchived: true})
	if err != nil {
		t.Fatalf("GetVisibleTasks: %v", err)
	}
	if len(views) != 1 {
		t.Fatal("archived tasks must appear when explicitly requested")
	}
}

func TestServicePersonalDashboard(t *testing.T) {
	f := newFixture()
	overdue := f.mustCreate(t, f.alice, func(in *NewTaskInput) {
		in.DueDate = time.Now().AddDate(0, 0, 2)
	})
	f.mustCreate(t, f.alice, nil)
	// Push the first task past its deadline.
	f.repo.tasks[overdue.ID].DueDate = time.Now().AddDate(0, 0, -1)

	dashboard, err := f.service.PersonalDashboard(f.alice)
	if err != nil {
		t.Fatalf("PersonalDashboard: %v", err)
	}
	if len(dashboard.Owned) != 2 {
		t.Fatalf("expected 2 owned tasks, got %d", len(dashboard.Owned))
	}
	if len(dashboard.Overdue) != 1 || dashboard.Overdue[0].ID != overdue.ID {
		t.Fatalf("expected exactly the overdue task, got %d entries", len(dashboard.Overdue))
	}
	if dashboard.Metrics[models.TaskStatusToDo] != 2 {
		t.Fatalf("expected 2 tasks in to_do, got %d", dashboard.Metrics[models.TaskStatusToDo])
	}
	if dashboard.Metrics[models.TaskStatusCompleted] != 0 {
		t.Fatal("expected completed count to be present and zero")
	}
}

func TestServiceDepartmentDashboard(t *testing.T) {
	f := newFixture()
	f.mustCreate(t, f.alice, nil) // dept 2

	if _, err := f.service.DepartmentDashboard(2, f.alice, false); !IsAuthorization(err) {
		t.Fatalf("staff must not read department dashboards, got %v", err)
	}
	if _, err := f.service.DepartmentDashboard(99, f.carol, false); !IsNotFound(err) {
		t.Fatalf("expected not found for unknown department, got %v", err)
	}

	dashboard, err := f.service.DepartmentDashboard(2, f.carol, false)
	if err != nil {
		t.Fatalf("DepartmentDashboard: %v", err)
	}
	if len(dashboard.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(dashboard.Tasks))
	}
	if dashboard.Metrics[models.TaskStatusToDo] != 1 {
		t.Fatalf("expected 1 task in to_do, got %d", dashboard.Metrics[models.TaskStatusToDo])
	}

	// HR admins may read any department dashboard.
	if _, err := f.service.DepartmentDashboard(2, f.dana, false); err != nil {
		t.Fatalf("hr admin must read department dashboards: %v", err)
	}

	// Archived tasks stay out of the summary until explicitly requested.
	buried := f.mustCreate(t, f.alice, nil)
	if _, err := f.service.Archive(buried.ID, f.alice); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	dashboard, err = f.service.DepartmentDashboard(2, f.carol, false)
	if err != nil {
		t.Fatalf("DepartmentDashboard: %v", err)
	}
	if len(dashboard.Tasks) != 1 {
		t.Fatalf("expected archived task to be excluded, got %d tasks", len(dashboard.Tasks))
	}
	dashboard, err = f.service.DepartmentDashboard(2, f.carol, true)
	if err != nil {
		t.Fatalf("DepartmentDashboard: %v", err)
	}
	if len(dashboard.Tasks) != 2 {
		t.Fatalf("expected archived task to be included, got %d tasks", len(dashboard.Tasks))
	}
}

func TestServiceCompanyDashboard(t *testing.T) {
	f := newFixture()
	f.mustCreate(t, f.alice, nil) // dept 2
	f.mustCreate(t, f.eve, nil)   // dept 9

	// Everyone below hr admin is rejected, managers included.
	if _, err := f.service.CompanyDashboard(f.carol); !IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}

	dashboard, err := f.service.CompanyDashboard(f.dana)
	if err != nil {
		t.Fatalf("CompanyDashboard: %v", err)
	}
	if dashboard.Total != 2 {
		t.Fatalf("expected 2 tasks, got %d", dashboard.Total)
	}
	if len(dashboard.Departments) != 5 {
		t.Fatalf("expected a summary per active department, got %d", len(dashboard.Departments))
	}
	for _, summary := range dashboard.Departments {
		switch summary.DepartmentID {
		case 2, 9:
			if summary.Total != 1 {
				t.Fatalf("expected 1 task in department %d, got %d", summary.DepartmentID, summary.Total)
			}
		default:
			if summary.Total != 0 {
				t.Fatalf("expected empty department %d, got %d", summary.DepartmentID, summary.Total)
			}
		}
	}
}

func TestServiceUpdateDueDate_SubtaskBound(t *testing.T) {
	f := newFixture()
	parent := f.mustCreate(t, f.alice, func(in *NewTaskInput) {
		in.DueDate = time.Now().AddDate(0, 0, 10)
	})
	sub := f.mustCreate(t, f.alice, func(in *NewTaskInput) {
		in.ParentTaskID = &parent.ID
		in.DueDate = time.Now().AddDate(0, 0, 5)
	})

	past := f.repo.tasks[parent.ID].DueDate.AddDate(0, 0, 3)
	if _, err := f.service.UpdateDueDate(sub.ID, past, f.alice); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	within := f.repo.tasks[parent.ID].DueDate.AddDate(0, 0, -1)
	if _, err := f.service.UpdateDueDate(sub.ID, within, f.alice); err != nil {
		t.Fatalf("UpdateDueDate: %v", err)
	}
}

func TestServiceUpdateTitle_TrimsAndLogs(t *testing.T) {
	f := newFixture()
	view := f.mustCreate(t, f.alice, nil)

	updated, err := f.service.UpdateTitle(view.ID, "  Renamed task  ", f.alice)
	if err != nil {
		t.Fatalf("UpdateTitle: %v", err)
	}
	if updated.Title != "Renamed task" {
		t.Fatalf("expected trimmed title, got %q", updated.Title)
	}
	if !strings.Contains(strings.Join(f.repo.logActions(), ","), models.ActionUpdate) {
		t.Fatalf("expected an update log entry, got %v", f.repo.logActions())
	}
	if f.notify.count(models.WebhookEventTaskUpdated) != 1 {
		t.Fatalf("expected one task.updated event, got %v", f.notify.events)
	}
}
