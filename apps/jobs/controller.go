package jobs

import (
	"github.com/getevo/evo/v2"
	"github.com/taskdesk/taskdesk-backend/lib/response"
)

// GetJobs handles GET /api/admin/jobs.
func GetJobs(request *evo.Request) any {
	s := GetScheduler()
	if s == nil {
		return response.List([]any{}, 0)
	}

	type jobInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Schedule    string `json:"schedule"`
		Enabled     bool   `json:"enabled"`
	}

	jobs := make([]jobInfo, 0)
	for _, job := range s.GetJobs() {
		jobs = append(jobs, jobInfo{
			Name:        job.Name,
			Description: job.Description,
			Schedule:    job.Schedule,
			Enabled:     job.Enabled,
		})
	}
	return response.List(jobs, len(jobs))
}

// GetJobExecutions handles GET /api/admin/jobs/executions.
func GetJobExecutions(request *evo.Request) any {
	s := GetScheduler()
	if s == nil {
		return response.List([]any{}, 0)
	}

	limit := request.Query("limit").Int()
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	executions, err := s.GetRecentExecutions(request.Query("job").String(), limit)
	if err != nil {
		return response.Error(response.ErrDatabaseError)
	}
	return response.List(executions, len(executions))
}

// RunJob handles POST /api/admin/jobs/:name/run.
func RunJob(request *evo.Request) any {
	s := GetScheduler()
	if s == nil {
		return response.Error(response.NewError(response.ErrorCodeInternalError, "Scheduler is not running", 503))
	}

	name := request.Param("name").String()
	if !s.RunNow(name) {
		return response.Error(response.ErrNotFound)
	}
	return response.Message("Job triggered")
}
