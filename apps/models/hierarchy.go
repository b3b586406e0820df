package models

import (
	"github.com/getevo/evo/v2/lib/db"
)

// DepartmentSource provides parent/child links for the department tree.
// The production implementation reads from the database; tests supply an
// in-memory source.
type DepartmentSource interface {
	// ChildDepartments returns the ids of the direct children of the given
	// department.
	ChildDepartments(departmentID uint) ([]uint, error)
	// DepartmentExists reports whether the department exists and is active.
	DepartmentExists(departmentID uint) (bool, error)
}

// SubordinateDepartments computes the downward closure of a department:
// the department itself plus every department reachable by following
// child links transitively, to unbounded depth. The traversal keeps a
// visited set so a corrupted tree containing a cycle still terminates.
func SubordinateDepartments(source DepartmentSource, departmentID uint) ([]uint, error) {
	visited := map[uint]bool{departmentID: true}
	closure := []uint{departmentID}
	queue := []uint{departmentID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := source.ChildDepartments(current)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if visited[child] {
				continue
			}
			visited[child] = true
			closure = append(closure, child)
			queue = append(queue, child)
		}
	}

	return closure, nil
}

// InClosure reports whether target is inside the downward closure of root.
func InClosure(source DepartmentSource, root, target uint) (bool, error) {
	closure, err := SubordinateDepartments(source, root)
	if err != nil {
		return false, err
	}
	for _, id := range closure {
		if id == target {
			return true, nil
		}
	}
	return false, nil
}

// DBDepartmentSource reads the department tree from the database.
type DBDepartmentSource struct{}

func (DBDepartmentSource) ChildDepartments(departmentID uint) ([]uint, error) {
	var children []uint
	err := db.Model(&Department{}).
		Where("parent_id = ? AND status = ?", departmentID, DepartmentStatusActive).
		Pluck("id", &children).Error
	return children, err
}

func (DBDepartmentSource) DepartmentExists(departmentID uint) (bool, error) {
	var count int64
	err := db.Model(&Department{}).
		Where("id = ? AND status = ?", departmentID, DepartmentStatusActive).
		Count(&count).Error
	return count > 0, err
}

// WouldCreateCycle reports whether re-parenting departmentID under
// newParentID would close a loop in the tree. Used by the admin API
// before accepting a parent change.
func WouldCreateCycle(source DepartmentSource, departmentID, newParentID uint) (bool, error) {
	if departmentID == newParentID {
		return true, nil
	}
	return InClosure(source, departmentID, newParentID)
}
