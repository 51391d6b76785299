package storage

type TaskListFilter struct {
	Completed       *bool
	Archived        *bool
	Snoozed         *bool
	LocationID      *int64
	ReminderEnabled *bool
	TitleContains   string
	Limit           int
	Offset          int
}

type LocationListFilter struct {
	Limit  int
	Offset int
}

type FocusSessionListFilter struct {
	Active *bool
	Limit  int
	Offset int
}

func Bool(v bool) *bool { return &v }

func Int64(v int64) *int64 { return &v }
