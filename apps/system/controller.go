package system

import (
	"strings"
	"time"

	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/db"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/taskdesk/taskdesk-backend/apps/models"
	"github.com/taskdesk/taskdesk-backend/apps/redis"
	"github.com/taskdesk/taskdesk-backend/lib/response"
)

type Controller struct {
}

func (c Controller) HealthHandler(request *evo.Request) any {
	return response.OK("ok")
}

func (c Controller) UptimeHandler(request *evo.Request) any {
	uptimeData := map[string]any{
		"uptime": int64(time.Now().Sub(StartupTime).Seconds()),
	}
	return response.OK(uptimeData)
}

// GetDepartments returns all active departments
// @Summary Get available departments
// @Description Get a list of all active departments
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {array} models.Department
// @Router /api/system/departments [get]
func (c Controller) GetDepartments(req *evo.Request) interface{} {
	var departments []models.Department
	if err := db.Where("status = ?", models.DepartmentStatusActive).Find(&departments).Error; err != nil {
		return response.Error(response.ErrDatabaseError)
	}

	return response.List(departments, len(departments))
}

// TaskStatus represents a task status option
type TaskStatus struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// GetTaskStatuses returns all available task statuses
// @Summary Get task status list
// @Description Get a list of all available task statuses with their descriptions
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {array} TaskStatus
// @Router /api/system/task-status [get]
func (c Controller) GetTaskStatuses(req *evo.Request) interface{} {
	statuses := []TaskStatus{
		{
			Value:       models.TaskStatusToDo,
			Label:       "To Do",
			Description: "Task has been created and is waiting to be started",
		},
		{
			Value:       models.TaskStatusInProgress,
			Label:       "In Progress",
			Description: "Task is actively being worked on",
		},
		{
			Value:       models.TaskStatusCompleted,
			Label:       "Completed",
			Description: "Task has been finished",
		},
		{
			Value:       models.TaskStatusBlocked,
			Label:       "Blocked",
			Description: "Task cannot progress until an impediment is removed",
		},
	}

	return response.List(statuses, len(statuses))
}

// DepartmentRequest is the payload for creating or updating a department.
type DepartmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id"`
	Status      string `json:"status"`
}

// CreateDepartment creates a new department under an optional parent.
// @Summary Create department
// @Tags System
// @Router /api/admin/departments [post]
func (c Controller) CreateDepartment(request *evo.Request) any {
	var input DepartmentRequest
	if err := request.BodyParser(&input); err != nil {
		return response.Error(response.ErrInvalidInput)
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return response.Error(response.NewError(response.ErrorCodeMissingRequired, "Department name is required", 400))
	}

	if input.ParentID != nil {
		exists, err := models.DBDepartmentSource{}.DepartmentExists(*input.ParentID)
		if err != nil {
			return response.Error(response.ErrDatabaseError)
		}
		if !exists {
			return response.Error(response.ErrDepartmentNotFound)
		}
	}

	department := models.Department{
		Name:        input.Name,
		Description: input.Description,
		ParentID:    input.ParentID,
		Status:      models.DepartmentStatusActive,
	}
	if err := db.Create(&department).Error; err != nil {
		log.Error("failed to create department: %v", err)
		return response.Error(response.ErrDatabaseError)
	}

	redis.InvalidateDepartmentCache()
	return response.Created(department)
}

// UpdateDepartment edits a department. Re-parenting is rejected when it
// would close a loop in the tree.
// @Summary Update department
// @Tags System
// @Router /api/admin/departments/{id} [put]
func (c Controller) UpdateDepartment(request *evo.Request) any {
	id := uint(request.Param("id").Int())

	var department models.Department
	if err := db.Where("id = ?", id).First(&department).Error; err != nil {
		return response.Error(response.ErrDepartmentNotFound)
	}

	var input DepartmentRequest
	if err := request.BodyParser(&input); err != nil {
		return response.Error(response.ErrInvalidInput)
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		department.Name = name
	}
	if input.Description != "" {
		department.Description = input.Description
	}
	if input.Status != "" {
		if input.Status != models.DepartmentStatusActive && input.Status != models.DepartmentStatusSuspended {
			return response.Error(response.NewError(response.ErrorCodeInvalidInput, "Invalid department status", 400))
		}
		department.Status = input.Status
	}

	if input.ParentID != nil {
		if *input.ParentID != 0 {
			exists, err := models.DBDepartmentSource{}.DepartmentExists(*input.ParentID)
			if err != nil {
				return response.Error(response.ErrDatabaseError)
			}
			if !exists {
				return response.Error(response.ErrDepartmentNotFound)
			}
			cycle, err := models.WouldCreateCycle(models.DBDepartmentSource{}, id, *input.ParentID)
			if err != nil {
				return response.Error(response.ErrDatabaseError)
			}
			if cycle {
				return response.Error(response.NewError(response.ErrorCodeConflict, "Moving the department under one of its own descendants is not allowed", 409))
			}
			department.ParentID = input.ParentID
		} else {
			// parent_id of 0 detaches the department to the top level
			department.ParentID = nil
		}
	}

	if err := db.Save(&department).Error; err != nil {
		log.Error("failed to update department %d: %v", id, err)
		return response.Error(response.ErrDatabaseError)
	}

	redis.InvalidateDepartmentCache()
	return response.OK(department)
}

// SuspendDepartment marks a department suspended. Departments are never
// hard-deleted so historical tasks keep a valid reference.
// @Summary Suspend department
// @Tags System
// @Router /api/admin/departments/{id} [delete]
func (c Controller) SuspendDepartment(request *evo.Request) any {
	id := uint(request.Param("id").Int())

	var department models.Department
	if err := db.Where("id = ?", id).First(&department).Error; err != nil {
		return response.Error(response.ErrDepartmentNotFound)
	}

	if department.Status == models.DepartmentStatusSuspended {
		return response.Message("Department already suspended")
	}

	department.Status = models.DepartmentStatusSuspended
	if err := db.Save(&department).Error; err != nil {
		log.Error("failed to suspend department %d: %v", id, err)
		return response.Error(response.ErrDatabaseError)
	}

	redis.InvalidateDepartmentCache()
	return response.Message("Department suspended")
}

// GetSettings returns all stored settings grouped by category.
func (c Controller) GetSettings(request *evo.Request) any {
	var settings []models.Setting
	if err := db.Order("category, setting_key").Find(&settings).Error; err != nil {
		return response.Error(response.ErrDatabaseError)
	}

	grouped := map[string][]models.Setting{}
	for _, setting := range settings {
		category := setting.Category
		if category == "" {
			category = "general"
		}
		grouped[category] = append(grouped[category], setting)
	}
	return response.OK(grouped)
}

// GetSetting returns a single setting by key.
func (c Controller) GetSetting(request *evo.Request) any {
	key := request.Param("key").String()
	setting, err := models.GetSetting(key)
	if err != nil {
		return response.Error(response.ErrNotFound)
	}
	return response.OK(setting)
}

// SettingRequest is the payload for writing a setting.
type SettingRequest struct {
	Value    string `json:"value"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Label    string `json:"label"`
}

// SetSetting creates or updates a setting.
func (c Controller) SetSetting(request *evo.Request) any {
	key := strings.TrimSpace(request.Param("key").String())
	if key == "" {
		return response.Error(response.ErrMissingRequired)
	}

	var input SettingRequest
	if err := request.BodyParser(&input); err != nil {
		return response.Error(response.ErrInvalidInput)
	}

	if err := models.SetSetting(key, input.Value, input.Type, input.Category, input.Label); err != nil {
		log.Error("failed to save setting %s: %v", key, err)
		return response.Error(response.ErrDatabaseError)
	}
	return response.Message("Setting saved")
}

// DeleteSetting removes a setting. Readers of the key fall back to
// their built-in defaults.
func (c Controller) DeleteSetting(request *evo.Request) any {
	key := request.Param("key").String()
	setting, err := models.GetSetting(key)
	if err != nil {
		return response.Error(response.ErrNotFound)
	}
	if err := db.Delete(setting).Error; err != nil {
		log.Error("failed to delete setting %s: %v", key, err)
		return response.Error(response.ErrDatabaseError)
	}
	return response.Message("Setting deleted")
}

// GetRateLimitSettings returns the per-endpoint rate limit configuration.
func (c Controller) GetRateLimitSettings(request *evo.Request) any {
	endpoints := redis.GetRateLimitSettings()
	return response.List(endpoints, len(endpoints))
}

// RateLimitRequest is the payload for updating an endpoint rate limit.
type RateLimitRequest struct {
	MaxRequests int  `json:"max_requests"`
	WindowSecs  int  `json:"window_seconds"`
	Enabled     bool `json:"enabled"`
}

// UpdateRateLimitSetting updates the limit for a single endpoint and
// broadcasts a reload to every running instance.
func (c Controller) UpdateRateLimitSetting(request *evo.Request) any {
	key := request.Param("key").String()

	var known bool
	for _, endpoint := range redis.DefaultEndpoints {
		if endpoint.Key == key {
			known = true
			break
		}
	}
	if !known {
		return response.Error(response.ErrNotFound)
	}

	var input RateLimitRequest
	if err := request.BodyParser(&input); err != nil {
		return response.Error(response.ErrInvalidInput)
	}
	if input.MaxRequests < 1 || input.WindowSecs < 1 {
		return response.Error(response.NewError(response.ErrorCodeInvalidInput, "max_requests and window_seconds must be positive", 400))
	}

	if err := redis.SaveRateLimitSetting(key, input.MaxRequests, input.WindowSecs, input.Enabled); err != nil {
		log.Error("failed to save rate limit setting %s: %v", key, err)
		return response.Error(response.ErrDatabaseError)
	}
	return response.Message("Rate limit updated")
}

// GetRedisStatus reports whether the distributed rate limiter backend is
// reachable.
func (c Controller) GetRedisStatus(request *evo.Request) any {
	return response.OK(map[string]any{
		"available": redis.IsAvailable(),
	})
}
