package tasks

import (
	"testing"

	"github.com/google/uuid"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
	"github.com/taskdesk/taskdesk-backend/apps/models"
)

func staffUser(dept uint) *auth.User {
	return &auth.User{UserID: uuid.New(), Role: auth.RoleStaff, DepartmentID: dept}
}

func managerUser(home uint, managed uint) *auth.User {
	return &auth.User{UserID: uuid.New(), Role: auth.RoleManager, DepartmentID: home, ManagedDepartmentID: &managed}
}

func hrAdminUser(home uint) *auth.User {
	return &auth.User{UserID: uuid.New(), Role: auth.RoleHRAdmin, DepartmentID: home}
}

func scopeOf(departments ...uint) Scope {
	subs := make(map[uint]bool, len(departments))
	for _, id := range departments {
		subs[id] = true
	}
	return Scope{Subordinates: subs}
}

func taskIn(dept uint, owner uuid.UUID, assignees ...uuid.UUID) *models.Task {
	task := &models.Task{ID: 1, DepartmentID: dept, OwnerID: owner}
	for _, id := range assignees {
		task.Assignments = append(task.Assignments, models.TaskAssignment{TaskID: 1, UserID: id})
	}
	return task
}

func TestCanView(t *testing.T) {
	staff := staffUser(2)
	manager := managerUser(1, 1)
	hr := hrAdminUser(9)
	stranger := uuid.New()

	tests := []struct {
		name  string
		user  *auth.User
		task  *models.Task
		scope Scope
		want  bool
	}{
		{"staff sees own task", staff, taskIn(2, staff.UserID), Scope{}, true},
		{"staff sees assigned task in other department", staff, taskIn(7, stranger, staff.UserID), Scope{}, true},
		{"staff blind to department peers", staff, taskIn(2, stranger), Scope{}, false},
		{"manager sees closure", manager, taskIn(3, stranger), scopeOf(1, 2, 3), true},
		{"manager blind outside closure", manager, taskIn(7, stranger), scopeOf(1, 2, 3), false},
		{"manager sees own task outside closure", manager, taskIn(7, manager.UserID), scopeOf(1, 2, 3), true},
		{"hr admin sees everything", hr, taskIn(7, stranger), Scope{}, true},
		{"nil user", nil, taskIn(2, stranger), Scope{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanView(tt.user, tt.task, tt.scope); got != tt.want {
				t.Fatalf("CanView = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanEdit(t *testing.T) {
	staff := staffUser(2)
	manager := managerUser(1, 1)
	hr := hrAdminUser(9)
	managed := uint(1)
	hrManager := &auth.User{UserID: uuid.New(), Role: auth.RoleHRAdmin, DepartmentID: 9, ManagedDepartmentID: &managed}
	stranger := uuid.New()

	tests := []struct {
		name  string
		user  *auth.User
		task  *models.Task
		scope Scope
		want  bool
	}{
		{"staff edits own task", staff, taskIn(2, staff.UserID), Scope{}, true},
		{"staff edits assigned task", staff, taskIn(7, stranger, staff.UserID), Scope{}, true},
		{"staff cannot edit peers", staff, taskIn(2, stranger), Scope{}, false},
		{"manager edits closure", manager, taskIn(3, stranger), scopeOf(1, 2, 3), true},
		{"manager cannot edit outside closure", manager, taskIn(7, stranger), scopeOf(1, 2, 3), false},
		// HR admins see everything but their write reach stays scoped.
		{"hr admin edits home department", hr, taskIn(9, stranger), Scope{}, true},
		{"hr admin cannot edit elsewhere", hr, taskIn(2, stranger), Scope{}, false},
		{"managing hr admin edits closure", hrManager, taskIn(3, stranger), scopeOf(1, 2, 3), true},
		{"managing hr admin loses home department fallback", hrManager, taskIn(9, stranger), scopeOf(1, 2, 3), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanEdit(tt.user, tt.task, tt.scope); got != tt.want {
				t.Fatalf("CanEdit = %v, want %v", got, tt.want)
			}
		})
	}
}
