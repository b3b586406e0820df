package tasks

import (
	"errors"
	"strings"

	"github.com/getevo/evo/v2/lib/db"
	"github.com/google/uuid"
	"github.com/taskdesk/taskdesk-backend/apps/auth"
	"github.com/taskdesk/taskdesk-backend/apps/models"
	"gorm.io/gorm"
)

// TaskFilter narrows a visible-task query. Zero values mean "no
// constraint" except Statuses, where an empty slice matches every
// status.
type TaskFilter struct {
	DepartmentIDs   []uint
	AssigneeID      *uuid.UUID
	OwnerID         *uuid.UUID
	ProjectID       *uint
	Statuses        []string
	Tag             string
	IncludeArchived bool
	Limit           int
	Offset          int
}

// Repository is the persistence gateway of the task service. Every
// write that spans rows runs inside a single transaction so a failure
// partway never leaves half a task behind.
type Repository interface {
	TaskByID(id uint) (*models.Task, error)
	CreateTask(task *models.Task, assigneeIDs []uuid.UUID, assignedBy uuid.UUID, tags []string) error
	UpdateTask(task *models.Task) error
	SearchTasks(filter TaskFilter) ([]models.Task, error)
	CountByStatus(filter TaskFilter) (map[string]int64, error)

	AddAssignee(taskID uint, userID, assignedBy uuid.UUID) error
	RemoveAssignee(taskID uint, userID uuid.UUID) error
	AddTag(taskID uint, name string) error
	RemoveTag(taskID uint, name string) error

	AddComment(comment *models.TaskComment) error
	UpdateComment(comment *models.TaskComment) error
	CommentByID(id uint) (*models.TaskComment, error)

	ProjectExists(id uint) (bool, error)
	UserExists(id uuid.UUID) (bool, error)
	ActiveDepartments() ([]uint, error)

	AppendLog(entry models.TaskLogEntry) error
}

// gormRepository implements Repository against the application
// database.
type gormRepository struct{}

// NewGormRepository returns the database-backed Repository.
func NewGormRepository() Repository {
	return &gormRepository{}
}

func (r *gormRepository) TaskByID(id uint) (*models.Task, error) {
	var task models.Task
	err := db.Preload("Assignments").Preload("Tags").Where("id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Kind: "task", ID: id}
		}
		return nil, err
	}
	return &task, nil
}

func (r *gormRepository) CreateTask(task *models.Task, assigneeIDs []uuid.UUID, assignedBy uuid.UUID, tags []string) error {
	tx := db.Begin()
	if err := tx.Create(task).Error; err != nil {
		tx.Rollback()
		return err
	}
	for _, userID := range assigneeIDs {
		assignment := models.TaskAssignment{
			TaskID:     task.ID,
			UserID:     userID,
			AssignedBy: assignedBy,
		}
		if err := tx.Create(&assignment).Error; err != nil {
			tx.Rollback()
			return err
		}
		task.Assignments = append(task.Assignments, assignment)
	}
	for _, name := range tags {
		tag, err := resolveTag(tx, name)
		if err != nil {
			tx.Rollback()
			return err
		}
		if tag == nil {
			continue
		}
		if err := tx.Create(&models.TaskTag{TaskID: task.ID, TagID: tag.ID}).Error; err != nil {
			tx.Rollback()
			return err
		}
		task.Tags = append(task.Tags, *tag)
	}
	return tx.Commit().Error
}

func (r *gormRepository) UpdateTask(task *models.Task) error {
	return db.Save(task).Error
}

func (r *gormRepository) SearchTasks(filter TaskFilter) ([]models.Task, error) {
	query := db.Model(&models.Task{}).Preload("Assignments").Preload("Tags")
	query = applyFilter(query, filter)
	query = query.Order("due_date ASC, priority DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}
	var out []models.Task
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gormRepository) CountByStatus(filter TaskFilter) (map[string]int64, error) {
	query := db.Model(&models.Task{}).Select("status, COUNT(*) as total").Group("status")
	query = applyFilter(query, filter)
	var rows []struct {
		Status string
		Total  int64
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(models.TaskStatuses))
	for _, status := range models.TaskStatuses {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func applyFilter(query *gorm.DB, filter TaskFilter) *gorm.DB {
	if len(filter.DepartmentIDs) > 0 {
		query = query.Where("tasks.department_id IN (?)", filter.DepartmentIDs)
	}
	if filter.AssigneeID != nil {
		query = query.Where("tasks.id IN (?)",
			db.Model(&models.TaskAssignment{}).Select("task_id").Where("user_id = ?", *filter.AssigneeID))
	}
	if filter.OwnerID != nil {
		query = query.Where("tasks.owner_id = ?", *filter.OwnerID)
	}
	if filter.ProjectID != nil {
		query = query.Where("tasks.project_id = ?", *filter.ProjectID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("tasks.status IN (?)", filter.Statuses)
	}
	if filter.Tag != "" {
		query = query.Where("tasks.id IN (?)",
			db.Model(&models.TaskTag{}).Select("task_id").
				Where("tag_id IN (?)", db.Model(&models.Tag{}).Select("id").Where("name = ?", filter.Tag)))
	}
	if !filter.IncludeArchived {
		query = query.Where("tasks.archived = ?", false)
	}
	return query
}

func (r *gormRepository) AddAssignee(taskID uint, userID, assignedBy uuid.UUID) error {
	assignment := models.TaskAssignment{
		TaskID:     taskID,
		UserID:     userID,
		AssignedBy: assignedBy,
	}
	return db.FirstOrCreate(&assignment, models.TaskAssignment{TaskID: taskID, UserID: userID}).Error
}

func (r *gormRepository) RemoveAssignee(taskID uint, userID uuid.UUID) error {
	return db.Where("task_id = ? AND user_id = ?", taskID, userID).Delete(&models.TaskAssignment{}).Error
}

func (r *gormRepository) AddTag(taskID uint, name string) error {
	tx := db.Begin()
	tag, err := resolveTag(tx, name)
	if err != nil {
		tx.Rollback()
		return err
	}
	if tag == nil {
		tx.Rollback()
		return &ValidationError{Field: "tag", Reason: "tag name is required"}
	}
	link := models.TaskTag{TaskID: taskID, TagID: tag.ID}
	if err := tx.FirstOrCreate(&link, link).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func (r *gormRepository) RemoveTag(taskID uint, name string) error {
	var tag models.Tag
	err := db.Where("name = ?", normalizeTag(name)).First(&tag).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return db.Where("task_id = ? AND tag_id = ?", taskID, tag.ID).Delete(&models.TaskTag{}).Error
}

func (r *gormRepository) AddComment(comment *models.TaskComment) error {
	return db.Create(comment).Error
}

func (r *gormRepository) UpdateComment(comment *models.TaskComment) error {
	return db.Save(comment).Error
}

func (r *gormRepository) CommentByID(id uint) (*models.TaskComment, error) {
	var comment models.TaskComment
	err := db.Where("id = ?", id).First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Kind: "comment", ID: id}
		}
		return nil, err
	}
	return &comment, nil
}

func (r *gormRepository) ProjectExists(id uint) (bool, error) {
	var count int64
	if err := db.Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormRepository) UserExists(id uuid.UUID) (bool, error) {
	var count int64
	if err := db.Model(&auth.User{}).Where("user_id = ? AND active = ?", id, true).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormRepository) ActiveDepartments() ([]uint, error) {
	var ids []uint
	err := db.Model(&models.Department{}).
		Where("status = ?", models.DepartmentStatusActive).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *gormRepository) AppendLog(entry models.TaskLogEntry) error {
	return models.LogTaskSync(entry)
}

// resolveTag finds or creates the tag row for name. Returns nil for a
// blank name.
func resolveTag(tx *gorm.DB, name string) (*models.Tag, error) {
	name = normalizeTag(name)
	if name == "" {
		return nil, nil
	}
	var tag models.Tag
	if err := tx.Where("name = ?", name).FirstOrCreate(&tag, models.Tag{Name: name}).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func normalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
