package dto

// StudentStatsResponse aggregates one student's progress. Active counts the
// test cases in the room of the student's most recent submission, not a
// global total.
type StudentStatsResponse struct {
	StudentID       string   `json:"student_id"`
	TotalActive     int      `json:"total_active"`
	TotalAttempted  int      `json:"total_attempted"`
	TotalSolved     int      `json:"total_solved"`
	SolvedTestCases []string `json:"solved_test_cases"`
}

// StudentBreakdown is the per-student entry inside a room's statistics.
type StudentBreakdown struct {
	StudentID          string `json:"student_id"`
	Attempted          int    `json:"attempted"`
	Solved             int    `json:"solved"`
	AverageTimeSeconds int    `json:"average_time_seconds"`
}

// RoomStatsResponse aggregates a room for the teacher view. Active counts
// distinct students with a submission inside the trailing activity window;
// attempted and solved are computed over all submissions for the room.
type RoomStatsResponse struct {
	RoomID         string             `json:"room_id"`
	TotalActive    int                `json:"total_active"`
	TotalAttempted int                `json:"total_attempted"`
	TotalSolved    int                `json:"total_solved"`
	PerStudent     []StudentBreakdown `json:"per_student"`
}
