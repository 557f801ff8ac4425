package api

import "time"

// MsgType is a message type for streamed grading events
type MsgType string

// Streaming message type constants
const (
	StartRunMsg      MsgType = "run_start"
	StartSessionMsg  MsgType = "session_start"
	SkipSessionMsg   MsgType = "session_skip"
	StartCompileMsg  MsgType = "compile_start"
	FinishCompileMsg MsgType = "compile_finish"
	FinishSessionMsg MsgType = "session_finish"
	FinishRunMsg     MsgType = "run_finish"
)

// Output size constraints for streaming
const (
	MaxOutputHeight = 40
	MaxOutputWidth  = 80
)

// Header is the common header for all streamed messages
type Header struct {
	RunUuid string  `json:"run_uuid"`
	MsgType MsgType `json:"msg_type"`
}

// Student identifies whose submission an event is about
type Student struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	Key  string `json:"key"`
}

// StartRun message sent before the first submission is graded
type StartRun struct {
	Header
	AssignmentID string  `json:"assignment_id"`
	Mode         string  `json:"mode"`
	TotalPoints  float64 `json:"total_points"`
	StartedTime  string  `json:"started_time"`
}

// StartSession message sent when grading of one submission begins
type StartSession struct {
	Header
	Student Student `json:"student"`
}

// SkipSession message sent for a candidate that is not graded this run
type SkipSession struct {
	Header
	Student Student `json:"student"`
	Reason  string  `json:"reason"`
}

// StartCompile message sent when a submission starts building
type StartCompile struct {
	Header
	Student Student `json:"student"`
}

// FinishCompile message sent when a submission finished building
type FinishCompile struct {
	Header
	Student Student `json:"student"`
	Success bool    `json:"success"`
	Output  string  `json:"output"`
}

// FinishSession message sent with the final score of one submission
type FinishSession struct {
	Header
	Student      Student `json:"student"`
	State        string  `json:"state"`
	Score        float64 `json:"score"`
	TotalPoints  float64 `json:"total_points"`
	FeedbackPath string  `json:"feedback_path"`
}

// FinishRun message sent after the last submission
type FinishRun struct {
	Header
	Total        int     `json:"total"`
	Graded       int     `json:"graded"`
	ScoreSum     float64 `json:"score_sum"`
	ErrorMessage *string `json:"error_message"`
	FinishedTime string  `json:"finished_time"`
}

// Helper function to create a header
func NewHeader(runUuid string, msgType MsgType) Header {
	return Header{
		RunUuid: runUuid,
		MsgType: msgType,
	}
}

func NewStartRun(runUuid, assignmentID, mode string, totalPoints float64) StartRun {
	return StartRun{
		Header:       NewHeader(runUuid, StartRunMsg),
		AssignmentID: assignmentID,
		Mode:         mode,
		TotalPoints:  totalPoints,
		StartedTime:  time.Now().Format(time.RFC3339),
	}
}

func NewStartSession(runUuid string, student Student) StartSession {
	return StartSession{
		Header:  NewHeader(runUuid, StartSessionMsg),
		Student: student,
	}
}

func NewSkipSession(runUuid string, student Student, reason string) SkipSession {
	return SkipSession{
		Header:  NewHeader(runUuid, SkipSessionMsg),
		Student: student,
		Reason:  reason,
	}
}

func NewStartCompile(runUuid string, student Student) StartCompile {
	return StartCompile{
		Header:  NewHeader(runUuid, StartCompileMsg),
		Student: student,
	}
}

func NewFinishCompile(runUuid string, student Student, success bool, output string) FinishCompile {
	return FinishCompile{
		Header:  NewHeader(runUuid, FinishCompileMsg),
		Student: student,
		Success: success,
		Output:  TrimToRect(output, MaxOutputHeight, MaxOutputWidth),
	}
}

func NewFinishSession(runUuid string, student Student, state string, score, total float64, feedbackPath string) FinishSession {
	return FinishSession{
		Header:       NewHeader(runUuid, FinishSessionMsg),
		Student:      student,
		State:        state,
		Score:        score,
		TotalPoints:  total,
		FeedbackPath: feedbackPath,
	}
}

func NewFinishRun(runUuid string, total, graded int, scoreSum float64, errorMessage *string) FinishRun {
	return FinishRun{
		Header:       NewHeader(runUuid, FinishRunMsg),
		Total:        total,
		Graded:       graded,
		ScoreSum:     scoreSum,
		ErrorMessage: errorMessage,
		FinishedTime: time.Now().Format(time.RFC3339),
	}
}
