package api

// Feedback size constraints for published grades
const (
	MaxFeedbackHeight = 200
	MaxFeedbackWidth  = 160
)

// GradeUpload carries one student's grade to the learning platform.
type GradeUpload struct {
	AssignmentID string       `json:"assignment_id"`
	StudentName  string       `json:"student_name"`
	StudentID    string       `json:"student_id"`
	Score        float64      `json:"score"`
	Feedback     string       `json:"feedback"`
	FeedbackFile string       `json:"feedback_file"`
	Attachments  []Attachment `json:"attachments,omitempty"`
}

// Attachment is a file produced while grading, e.g. a driver's test log.
type Attachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}
