package dto

// LiveEventKind enumerates the websocket events understood by the live
// session channel. Inbound kinds are sent by clients; outbound kinds are
// produced by the server. Keeping the set closed lets a single dispatch
// switch handle every connection.
type LiveEventKind string

// Inbound event kinds.
const (
	EventJoinRoom         LiveEventKind = "join-room"
	EventLeaveRoom        LiveEventKind = "leave-room"
	EventCodeChange       LiveEventKind = "code-change"
	EventInputChange      LiveEventKind = "input-change"
	EventOutputChange     LiveEventKind = "output-change"
	EventLanguageChange   LiveEventKind = "language-change"
	EventSubmissionStatus LiveEventKind = "submission-status"
)

// Outbound event kinds.
const (
	EventCodeUpdate        LiveEventKind = "code-update"
	EventInputUpdate       LiveEventKind = "input-update"
	EventOutputUpdate      LiveEventKind = "output-update"
	EventLanguageUpdate    LiveEventKind = "language-update"
	EventStudentUpdate     LiveEventKind = "student-update"
	EventTestCaseCreated   LiveEventKind = "test-case-created"
	EventTestCasePublished LiveEventKind = "test-case-published"
	EventSubmissionUpdate  LiveEventKind = "submission-update"
	EventRoomState         LiveEventKind = "room-state"
	EventError             LiveEventKind = "error"
)

// LiveInbound is the envelope read from a websocket client. Only the fields
// relevant to the named event are populated.
type LiveInbound struct {
	Event      LiveEventKind `json:"event" validate:"required"`
	RoomID     string        `json:"room_id" validate:"omitempty,max=64"`
	Code       string        `json:"code"`
	Input      string        `json:"input"`
	Output     string        `json:"output"`
	LanguageID int           `json:"language_id"`
	TestCaseID string        `json:"test_case_id"`
	Status     string        `json:"status"`
}

// LiveOutbound is the envelope written to websocket clients.
type LiveOutbound struct {
	Event LiveEventKind `json:"event"`
	Data  interface{}   `json:"data"`
}

// StateUpdate carries a single shared-state field broadcast to a room.
// Timestamp is wall-clock milliseconds assigned by the server so receivers
// can apply last-writer-wins.
type StateUpdate struct {
	Code       string `json:"code,omitempty"`
	Input      string `json:"input,omitempty"`
	Output     string `json:"output,omitempty"`
	LanguageID int    `json:"language_id,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// RoomStateSnapshot is delivered to a client immediately after joining so a
// late joiner sees the current shared state without waiting for the next
// broadcast.
type RoomStateSnapshot struct {
	RoomID     string `json:"room_id"`
	Code       string `json:"code"`
	Input      string `json:"input"`
	Output     string `json:"output"`
	LanguageID int    `json:"language_id"`
	Timestamp  int64  `json:"timestamp"`
}

// StudentUpdate carries the full membership snapshot after a join or leave.
type StudentUpdate struct {
	RoomID   string   `json:"room_id"`
	Students []string `json:"students"`
}

// TestCaseCreatedEvent announces a new or updated test case to a room.
type TestCaseCreatedEvent struct {
	TestCase       TestCaseResponse `json:"test_case"`
	TotalTestCases int              `json:"total_test_cases"`
	Timestamp      int64            `json:"timestamp"`
}

// TestCasePublishedEvent announces that a test case's expected output was confirmed.
type TestCasePublishedEvent struct {
	TestCase  TestCaseResponse `json:"test_case"`
	Timestamp int64            `json:"timestamp"`
}

// SubmissionUpdate fans out one student's judged result together with the
// room-wide status map for the test case.
type SubmissionUpdate struct {
	TestCaseID string            `json:"test_case_id"`
	StudentID  string            `json:"student_id"`
	Status     string            `json:"status"`
	StatusMap  map[string]string `json:"status_map"`
}

// LiveError reports a rejected inbound event back to the offending client only.
type LiveError struct {
	Reason string `json:"reason"`
}
