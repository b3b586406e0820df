package tasks

import (
	"time"

	"github.com/taskdesk/taskdesk-backend/apps/auth"
	"github.com/taskdesk/taskdesk-backend/apps/models"
)

// StatusMetrics counts tasks per status. Every status of the enum is
// present, zero included.
type StatusMetrics map[string]int64

// PersonalDashboard summarises the caller's own workload.
type PersonalDashboard struct {
	Owned    []TaskView    `json:"owned"`
	Assigned []TaskView    `json:"assigned"`
	Overdue  []TaskView    `json:"overdue"`
	Metrics  StatusMetrics `json:"metrics"`
}

// DepartmentDashboard summarises one department's workload.
type DepartmentDashboard struct {
	DepartmentID uint          `json:"department_id"`
	Tasks        []TaskView    `json:"tasks"`
	Metrics      StatusMetrics `json:"metrics"`
	OverdueCount int           `json:"overdue_count"`
}

// DepartmentSummary is one row of the company dashboard.
type DepartmentSummary struct {
	DepartmentID uint          `json:"department_id"`
	Total        int64         `json:"total"`
	Metrics      StatusMetrics `json:"metrics"`
}

// CompanyDashboard aggregates the whole organisation.
type CompanyDashboard struct {
	Total       int64               `json:"total"`
	Metrics     StatusMetrics       `json:"metrics"`
	Departments []DepartmentSummary `json:"departments"`
}

// PersonalDashboard builds the caller's dashboard: tasks they own,
// tasks assigned to them, what is overdue, and per-status counts.
func (s *Service) PersonalDashboard(caller *auth.User) (*PersonalDashboard, error) {
	scope, err := s.scopeFor(caller)
	if err != nil {
		return nil, err
	}

	owned, err := s.repo.SearchTasks(TaskFilter{OwnerID: &caller.UserID})
	if err != nil {
		return nil, err
	}
	assigned, err := s.repo.SearchTasks(TaskFilter{AssigneeID: &caller.UserID})
	if err != nil {
		return nil, err
	}

	dashboard := &PersonalDashboard{
		Owned:    make([]TaskView, 0, len(owned)),
		Assigned: make([]TaskView, 0, len(assigned)),
		Overdue:  []TaskView{},
		Metrics:  emptyMetrics(),
	}

	now := time.Now()
	seen := make(map[uint]bool)
	collect := func(pool []models.Task, into *[]TaskView) {
		for i := range pool {
			task := &pool[i]
			view := TaskView{Task: *task, CanEdit: CanEdit(caller, task, scope)}
			*into = append(*into, view)
			if seen[task.ID] {
				continue
			}
			seen[task.ID] = true
			dashboard.Metrics[task.Status]++
			if task.Status != models.TaskStatusCompleted && task.DueDate.Before(now) {
				dashboard.Overdue = append(dashboard.Overdue, view)
			}
		}
	}
	collect(owned, &dashboard.Owned)
	collect(assigned, &dashboard.Assigned)

	return dashboard, nil
}

// DepartmentDashboard builds the workload summary of one department.
// Only callers with department-wide visibility over it may read it:
// HR administrators, or managers whose hierarchy contains it.
// Archived tasks are excluded unless includeArchived is set.
func (s *Service) DepartmentDashboard(departmentID uint, caller *auth.User, includeArchived bool) (*DepartmentDashboard, error) {
	exists, err := s.departments.DepartmentExists(departmentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &NotFoundError{Kind: "department", ID: departmentID}
	}

	scope, err := s.scopeFor(caller)
	if err != nil {
		return nil, err
	}
	if caller.Role != auth.RoleHRAdmin && !scope.Subordinates[departmentID] {
		return nil, &AuthorizationError{}
	}

	filter := TaskFilter{DepartmentIDs: []uint{departmentID}, IncludeArchived: includeArchived}
	pool, err := s.repo.SearchTasks(filter)
	if err != nil {
		return nil, err
	}

	dashboard := &DepartmentDashboard{
		DepartmentID: departmentID,
		Tasks:        make([]TaskView, 0, len(pool)),
		Metrics:      emptyMetrics(),
	}
	now := time.Now()
	for i := range pool {
		task := &pool[i]
		dashboard.Tasks = append(dashboard.Tasks, TaskView{Task: *task, CanEdit: CanEdit(caller, task, scope)})
		dashboard.Metrics[task.Status]++
		if task.Status != models.TaskStatusCompleted && task.DueDate.Before(now) {
			dashboard.OverdueCount++
		}
	}
	return dashboard, nil
}

// CompanyDashboard aggregates every department. The role check runs
// before any query: only HR administrators may read it.
func (s *Service) CompanyDashboard(caller *auth.User) (*CompanyDashboard, error) {
	if caller == nil || caller.Role != auth.RoleHRAdmin {
		return nil, &AuthorizationError{}
	}

	total, err := s.repo.CountByStatus(TaskFilter{})
	if err != nil {
		return nil, err
	}
	dashboard := &CompanyDashboard{
		Metrics:     emptyMetrics(),
		Departments: []DepartmentSummary{},
	}
	for status, count := range total {
		dashboard.Metrics[status] = count
		dashboard.Total += count
	}

	departments, err := s.repo.ActiveDepartments()
	if err != nil {
		return nil, err
	}
	for _, id := range departments {
		counts, err := s.repo.CountByStatus(TaskFilter{DepartmentIDs: []uint{id}})
		if err != nil {
			return nil, err
		}
		summary := DepartmentSummary{DepartmentID: id, Metrics: emptyMetrics()}
		for status, count := range counts {
			summary.Metrics[status] = count
			summary.Total += count
		}
		dashboard.Departments = append(dashboard.Departments, summary)
	}
	return dashboard, nil
}

func emptyMetrics() StatusMetrics {
	metrics := make(StatusMetrics, len(models.TaskStatuses))
	for _, status := range models.TaskStatuses {
		metrics[status] = 0
	}
	return metrics
}
