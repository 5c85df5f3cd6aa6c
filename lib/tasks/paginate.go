package tasks

// Page is one slice of a completed task's result list plus pagination
// metadata.
type Page struct {
	Records     []Record `json:"results"`
	CurrentPage int      `json:"current_page"`
	PageSize    int      `json:"page_size"`
	TotalItems  int      `json:"total_items"`
	TotalPages  int      `json:"total_pages"`
	HasNext     bool     `json:"has_next"`
	HasPrevious bool     `json:"has_previous"`
}

// Page slices a completed task's results. Out-of-range page numbers
// are clamped into [1, total_pages] rather than erroring, pagination
// never throws on client-driven bad input. Returns ErrTaskNotFound for
// unknown ids and NotReadyError while the task is not completed.
func (s *Store) Page(id string, page, pageSize int) (Page, error) {
	task, err := s.Get(id)
	if err != nil {
		return Page{}, err
	}
	if task.Status != StatusCompleted {
		return Page{}, NotReadyError{Status: task.Status, TaskError: task.Error}
	}

	if pageSize < 1 {
		pageSize = 1
	}

	total := len(task.Results)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	records := task.Results[start:end]
	if records == nil {
		records = []Record{}
	}

	return Page{
		Records:     records,
		CurrentPage: page,
		PageSize:    pageSize,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}, nil
}
