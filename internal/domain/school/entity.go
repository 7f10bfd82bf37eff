// Package school contains the domain model for Sponte school records:
// classes, students, and lessons. Records are read-only snapshots of the
// remote system and are never mutated locally.
package school

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ClassStatus is the lifecycle status of a class.
type ClassStatus string

const (
	// ClassActive - class is open and running (Sponte code 1).
	ClassActive ClassStatus = "active"

	// ClassClosed - class has finished (Sponte code 2).
	ClassClosed ClassStatus = "closed"

	// ClassForming - class is still being assembled (Sponte code 3).
	ClassForming ClassStatus = "forming"

	// ClassStatusUnknown - the remote system returned an unrecognized code.
	ClassStatusUnknown ClassStatus = "unknown"
)

// IsValid reports whether the status is one of the three enumerated values.
func (s ClassStatus) IsValid() bool {
	return s == ClassActive || s == ClassClosed || s == ClassForming
}

// ClassStatusFromCode maps the Sponte situacaoTurma code to a ClassStatus.
func ClassStatusFromCode(code int) ClassStatus {
	switch code {
	case 1:
		return ClassActive
	case 2:
		return ClassClosed
	case 3:
		return ClassForming
	default:
		return ClassStatusUnknown
	}
}

// Code returns the Sponte wire code for the status, or 0 when unknown.
func (s ClassStatus) Code() int {
	switch s {
	case ClassActive:
		return 1
	case ClassClosed:
		return 2
	case ClassForming:
		return 3
	default:
		return 0
	}
}

// EnrollmentStatus is the enrollment situation of a student.
type EnrollmentStatus string

const (
	// EnrollmentActive - currently enrolled (Sponte code -1).
	EnrollmentActive EnrollmentStatus = "active"

	// EnrollmentInactive - no longer enrolled (Sponte code -2).
	EnrollmentInactive EnrollmentStatus = "inactive"

	// EnrollmentProspect - interested, not yet enrolled (Sponte code -3).
	EnrollmentProspect EnrollmentStatus = "prospect"

	// EnrollmentGraduated - finished the program (Sponte code -4).
	EnrollmentGraduated EnrollmentStatus = "graduated"

	// EnrollmentDropped - abandoned the program (Sponte code -5).
	EnrollmentDropped EnrollmentStatus = "dropped"

	// EnrollmentUnknown - unrecognized remote code.
	EnrollmentUnknown EnrollmentStatus = "unknown"
)

// EnrollmentFromCode maps the Sponte situacao code to an EnrollmentStatus.
func EnrollmentFromCode(code int) EnrollmentStatus {
	switch code {
	case -1:
		return EnrollmentActive
	case -2:
		return EnrollmentInactive
	case -3:
		return EnrollmentProspect
	case -4:
		return EnrollmentGraduated
	case -5:
		return EnrollmentDropped
	default:
		return EnrollmentUnknown
	}
}

// Code returns the Sponte wire code for the enrollment status.
func (s EnrollmentStatus) Code() int {
	switch s {
	case EnrollmentActive:
		return -1
	case EnrollmentInactive:
		return -2
	case EnrollmentProspect:
		return -3
	case EnrollmentGraduated:
		return -4
	case EnrollmentDropped:
		return -5
	default:
		return 0
	}
}

// LessonStatus is the confirmation status of a lesson.
type LessonStatus string

const (
	// LessonConfirmed - the lesson happened (Sponte code 1).
	LessonConfirmed LessonStatus = "confirmed"

	// LessonPending - the lesson is not yet confirmed (Sponte code 0).
	LessonPending LessonStatus = "pending"

	// LessonStatusUnknown - unrecognized remote code.
	LessonStatusUnknown LessonStatus = "unknown"
)

// LessonStatusFromCode maps the Sponte situacao code to a LessonStatus.
func LessonStatusFromCode(code int) LessonStatus {
	switch code {
	case 1:
		return LessonConfirmed
	case 0:
		return LessonPending
	default:
		return LessonStatusUnknown
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Class is a Sponte class (turma) snapshot.
type Class struct {
	// ID is the Sponte class identifier (turmaID).
	ID int `json:"id"`

	// Name is the class display name.
	Name string `json:"name"`

	// Modality groups classes by offering type, e.g. "TECNOLOGIA".
	Modality string `json:"modality"`

	// Course is the course name the class belongs to.
	Course string `json:"course"`

	// Stage is the course stage/level name.
	Stage string `json:"stage"`

	// Teacher is the assigned teacher's name.
	Teacher string `json:"teacher"`

	// Status is one of active/closed/forming.
	Status ClassStatus `json:"status"`

	// StartDate and EndDate bound the class schedule. Zero when the remote
	// system omits them.
	StartDate time.Time `json:"start_date,omitempty"`
	EndDate   time.Time `json:"end_date,omitempty"`

	// StudentIDs are the ids of students enrolled in the class.
	StudentIDs []int `json:"student_ids,omitempty"`
}

// StudentCount returns the number of enrolled students.
func (c *Class) StudentCount() int {
	return len(c.StudentIDs)
}

// Student is a Sponte student (aluno) snapshot.
type Student struct {
	// ID is the Sponte student identifier (alunoID).
	ID int `json:"id"`

	// Name is the student's full name.
	Name string `json:"name"`

	// Status is the enrollment situation.
	Status EnrollmentStatus `json:"status"`

	// ClassIDs are the ids of classes the student is enrolled in.
	ClassIDs []int `json:"class_ids,omitempty"`
}

// IsActive reports whether the student is currently enrolled.
func (s *Student) IsActive() bool {
	return s.Status == EnrollmentActive
}

// Lesson is a Sponte lesson (aula) snapshot.
type Lesson struct {
	// ID is the Sponte lesson identifier (aulaID).
	ID int `json:"id"`

	// ClassID links the lesson to its class.
	ClassID int `json:"class_id"`

	// Date is the calendar date of the lesson.
	Date time.Time `json:"date"`

	// Status is confirmed or pending.
	Status LessonStatus `json:"status"`

	// Teacher is the name of the teacher who gave the lesson.
	Teacher string `json:"teacher,omitempty"`

	// Content is the registered lesson content, when present.
	Content string `json:"content,omitempty"`
}
