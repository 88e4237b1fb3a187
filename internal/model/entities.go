package model

// Typed domain entities. Each marshals into a Record for storage and into
// the outbox envelope for sync; the JSON field names are the remote schema.

type Course struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type Lesson struct {
	ID        string `json:"id"`
	CourseID  string `json:"courseId"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	MediaURL  string `json:"mediaUrl,omitempty"`
	Position  int    `json:"position"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type LessonProgress struct {
	ID        string  `json:"id"`
	LessonID  string  `json:"lessonId"`
	Completed bool    `json:"completed"`
	Progress  float64 `json:"progress"` // 0..1
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

type Quiz struct {
	ID        string `json:"id"`
	CourseID  string `json:"courseId"`
	Title     string `json:"title"`
	Questions []byte `json:"questions,omitempty"` // opaque question bank blob
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type QuizAttempt struct {
	ID        string  `json:"id"`
	QuizID    string  `json:"quizId"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"maxScore"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

type TimetableEntry struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	DayOfWeek int    `json:"dayOfWeek"` // 0=Sunday
	StartsAt  string `json:"startsAt"`  // HH:MM
	EndsAt    string `json:"endsAt"`
	CourseID  string `json:"courseId,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type ForumPost struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Topic     string `json:"topic"`
	Body      string `json:"body"`
	ParentID  string `json:"parentId,omitempty"` // set for replies
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Resume struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Sections  []byte `json:"sections,omitempty"` // opaque builder document
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}
