package tasks

import (
	"github.com/getevo/evo/v2"
	"github.com/taskdesk/taskdesk-backend/apps/redis"
	"github.com/taskdesk/taskdesk-backend/lib/response"
)

// DashboardController handles the dashboard HTTP API.
type DashboardController struct{}

// Personal handles GET /api/dashboard/personal.
func (c DashboardController) Personal(request *evo.Request) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	if !redis.CheckRateLimit("dashboard.query", clientIP(request)) {
		return response.Error(redis.ErrRateLimited)
	}
	dashboard, err := DefaultService().PersonalDashboard(user)
	if err != nil {
		return errorResponse(err)
	}
	return response.OK(dashboard)
}

// Department handles GET /api/dashboard/department/:id.
func (c DashboardController) Department(request *evo.Request) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	if !redis.CheckRateLimit("dashboard.query", clientIP(request)) {
		return response.Error(redis.ErrRateLimited)
	}
	departmentID := uint(request.Param("id").Int())
	if departmentID == 0 {
		return response.Error(response.ErrInvalidInput)
	}
	dashboard, err := DefaultService().DepartmentDashboard(departmentID, user, request.Query("archived").Bool())
	if err != nil {
		return errorResponse(err)
	}
	return response.OK(dashboard)
}

// Company handles GET /api/dashboard/company. HR administrators only.
func (c DashboardController) Company(request *evo.Request) any {
	user, ok := currentUser(request)
	if !ok {
		return response.Error(response.ErrUnauthorized)
	}
	if !redis.CheckRateLimit("dashboard.query", clientIP(request)) {
		return response.Error(redis.ErrRateLimited)
	}
	dashboard, err := DefaultService().CompanyDashboard(user)
	if err != nil {
		return errorResponse(err)
	}
	return response.OK(dashboard)
}
