package tracking

// Statistics summarizes the records held by a store.
type Statistics struct {
	Total     int            `json:"total"`
	ByStatus  map[Status]int `json:"byStatus"`
	ByType    map[Type]int   `json:"byType"`
	BySession map[string]int `json:"bySession"`
}

// NewStatistics returns Statistics with every status and type present at zero.
func NewStatistics() Statistics {
	s := Statistics{
		ByStatus:  make(map[Status]int, len(AllStatuses)),
		ByType:    map[Type]int{TypePlanningTask: 0, TypeCodeComment: 0},
		BySession: make(map[string]int),
	}
	for _, st := range AllStatuses {
		s.ByStatus[st] = 0
	}
	return s
}

// Add folds one record into the statistics.
func (s *Statistics) Add(r Record) {
	s.Total++
	s.ByStatus[r.Status]++
	s.ByType[r.Type]++
	if r.Type == TypePlanningTask {
		s.BySession[r.Source.SessionID()]++
	}
}
