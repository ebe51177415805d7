package models

// Role is a user's authorization role.
type Role string

const (
	RoleRegular  Role = "regular"
	RoleVerified Role = "verified"
	RolePaid     Role = "paid"
	RoleAdmin    Role = "admin"
)

// EducationStage is the schooling level a question targets.
type EducationStage int

const (
	StageMiddleSchool EducationStage = iota + 1
	StageHighSchool
	StageHigherEducation
)

// ExamType distinguishes official past exams from generated mock exams.
type ExamType string

const (
	ExamAssessment ExamType = "assessment"
	ExamMock       ExamType = "mock"
)
