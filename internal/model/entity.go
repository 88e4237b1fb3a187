package model

// EntityType identifies which domain slice a record belongs to. The remote
// API exposes one logical endpoint per (entity type, action) pair.
type EntityType string

const (
	EntityCourse         EntityType = "course"
	EntityLesson         EntityType = "lesson"
	EntityLessonProgress EntityType = "lesson_progress"
	EntityQuiz           EntityType = "quiz"
	EntityQuizAttempt    EntityType = "quiz_attempt"
	EntityTimetableEntry EntityType = "timetable_entry"
	EntityForumPost      EntityType = "forum_post"
	EntityResume         EntityType = "resume"
)

func (t EntityType) String() string { return string(t) }

func (t EntityType) Valid() bool {
	switch t {
	case EntityCourse, EntityLesson, EntityLessonProgress, EntityQuiz,
		EntityQuizAttempt, EntityTimetableEntry, EntityForumPost, EntityResume:
		return true
	}
	return false
}

// Collection maps an entity type to its local store collection.
func (t EntityType) Collection() string {
	switch t {
	case EntityCourse:
		return "courses"
	case EntityLesson:
		return "lessons"
	case EntityLessonProgress:
		return "lesson_progress"
	case EntityQuiz:
		return "quizzes"
	case EntityQuizAttempt:
		return "quiz_attempts"
	case EntityTimetableEntry:
		return "timetable"
	case EntityForumPost:
		return "forum_posts"
	case EntityResume:
		return "resumes"
	}
	return string(t)
}

// AllEntityTypes lists every syncable entity, in pull order (parents first).
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityCourse, EntityLesson, EntityLessonProgress, EntityQuiz,
		EntityQuizAttempt, EntityTimetableEntry, EntityForumPost, EntityResume,
	}
}
