package tasks

import (
	"github.com/taskdesk/taskdesk-backend/apps/auth"
	"github.com/taskdesk/taskdesk-backend/apps/models"
)

// Scope carries the pre-resolved department closure a policy decision
// needs. Resolving the closure is the service's job so the policy
// functions stay pure and trivially testable.
type Scope struct {
	// Subordinates holds every department reachable downward from the
	// department the user manages, the managed department included.
	// Nil when the user manages nothing.
	Subordinates map[uint]bool
}

// CanView reports whether user may see task.
//
// Staff see tasks they created or are assigned to. Managers
// additionally see every task in their managed department and its
// descendants. HR administrators see everything.
func CanView(user *auth.User, task *models.Task, scope Scope) bool {
	if user == nil || task == nil {
		return false
	}
	if user.Role == auth.RoleHRAdmin {
		return true
	}
	if task.OwnerID == user.UserID || task.HasAssignee(user.UserID) {
		return true
	}
	if user.Role == auth.RoleManager {
		return scope.Subordinates[task.DepartmentID]
	}
	return false
}

// CanEdit reports whether user may modify task.
//
// Staff edit tasks they created or are assigned to. Managers edit any
// task within their managed hierarchy. HR administrators, despite
// seeing everything, only edit tasks inside the hierarchy they manage
// or, when they manage none, tasks of their own department.
func CanEdit(user *auth.User, task *models.Task, scope Scope) bool {
	if user == nil || task == nil {
		return false
	}
	switch user.Role {
	case auth.RoleStaff:
		return task.OwnerID == user.UserID || task.HasAssignee(user.UserID)
	case auth.RoleManager:
		if task.OwnerID == user.UserID || task.HasAssignee(user.UserID) {
			return true
		}
		return scope.Subordinates[task.DepartmentID]
	case auth.RoleHRAdmin:
		if user.ManagesDepartment() {
			return scope.Subordinates[task.DepartmentID]
		}
		return task.DepartmentID == user.DepartmentID
	}
	return false
}
