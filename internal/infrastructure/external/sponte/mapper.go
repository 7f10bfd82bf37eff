package sponte

import (
	"errors"

	"github.com/sponte-hub/sponte-dashboard/internal/domain/finance"
	"github.com/sponte-hub/sponte-dashboard/internal/domain/school"
)

// ErrNilDTO is returned when a mapper receives a nil DTO.
var ErrNilDTO = errors.New("nil DTO")

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER - DTO to domain record transformations
// ══════════════════════════════════════════════════════════════════════════════

// Mapper transforms Sponte wire DTOs into domain records. It is the
// anti-corruption layer between the remote API's Portuguese field names and
// numeric status codes and our domain model. Unknown status codes map to
// explicit "unknown" values instead of failing the whole payload.
type Mapper struct{}

// NewMapper creates a new Mapper instance.
func NewMapper() *Mapper {
	return &Mapper{}
}

// ClassFromDTO converts a ClassDTO into a school.Class.
func (m *Mapper) ClassFromDTO(dto *ClassDTO) (*school.Class, error) {
	if dto == nil {
		return nil, ErrNilDTO
	}

	studentIDs := make([]int, 0, len(dto.Students))
	for _, s := range dto.Students {
		if s.StudentID > 0 {
			studentIDs = append(studentIDs, s.StudentID)
		}
	}

	return &school.Class{
		ID:         dto.ID,
		Name:       dto.Name,
		Modality:   dto.Modality,
		Course:     dto.Course,
		Stage:      dto.Stage,
		Teacher:    dto.Teacher,
		Status:     school.ClassStatusFromCode(dto.Status),
		StartDate:  dto.StartDate.Time,
		EndDate:    dto.EndDate.Time,
		StudentIDs: studentIDs,
	}, nil
}

// ClassesFromDTOs converts a slice of ClassDTOs, preserving API order.
func (m *Mapper) ClassesFromDTOs(dtos []ClassDTO) []school.Class {
	classes := make([]school.Class, 0, len(dtos))
	for i := range dtos {
		c, err := m.ClassFromDTO(&dtos[i])
		if err != nil {
			continue
		}
		classes = append(classes, *c)
	}
	return classes
}

// StudentFromDTO converts a StudentDTO into a school.Student.
func (m *Mapper) StudentFromDTO(dto *StudentDTO) (*school.Student, error) {
	if dto == nil {
		return nil, ErrNilDTO
	}

	classIDs := make([]int, 0, len(dto.Classes))
	for _, c := range dto.Classes {
		if c.ClassID > 0 {
			classIDs = append(classIDs, c.ClassID)
		}
	}

	return &school.Student{
		ID:       dto.ID,
		Name:     dto.Name,
		Status:   school.EnrollmentFromCode(dto.Status),
		ClassIDs: classIDs,
	}, nil
}

// StudentsFromDTOs converts a slice of StudentDTOs, preserving API order.
func (m *Mapper) StudentsFromDTOs(dtos []StudentDTO) []school.Student {
	students := make([]school.Student, 0, len(dtos))
	for i := range dtos {
		s, err := m.StudentFromDTO(&dtos[i])
		if err != nil {
			continue
		}
		students = append(students, *s)
	}
	return students
}

// LessonFromDTO converts a LessonDTO into a school.Lesson.
func (m *Mapper) LessonFromDTO(dto *LessonDTO) (*school.Lesson, error) {
	if dto == nil {
		return nil, ErrNilDTO
	}

	return &school.Lesson{
		ID:      dto.ID,
		ClassID: dto.ClassID,
		Date:    dto.Date.Time,
		Status:  school.LessonStatusFromCode(dto.Status),
		Teacher: dto.Teacher,
		Content: dto.Content,
	}, nil
}

// LessonsFromDTOs converts a slice of LessonDTOs, preserving API order.
func (m *Mapper) LessonsFromDTOs(dtos []LessonDTO) []school.Lesson {
	lessons := make([]school.Lesson, 0, len(dtos))
	for i := range dtos {
		l, err := m.LessonFromDTO(&dtos[i])
		if err != nil {
			continue
		}
		lessons = append(lessons, *l)
	}
	return lessons
}

// EntryFromDTO converts an EntryDTO into a finance.Entry of the given kind.
func (m *Mapper) EntryFromDTO(dto *EntryDTO, kind finance.EntryKind) (*finance.Entry, error) {
	if dto == nil {
		return nil, ErrNilDTO
	}

	installments := make([]finance.Installment, 0, len(dto.Parcels))
	for i, p := range dto.Parcels {
		number := p.Number
		if number == 0 {
			number = i + 1
		}
		installments = append(installments, finance.Installment{
			Number:      number,
			Amount:      p.Amount,
			DueDate:     p.DueDate.Time,
			PaymentDate: p.PaymentDate.Time,
			Status:      finance.PaymentStatusFromCode(p.Status),
		})
	}

	return &finance.Entry{
		ID:           dto.ID,
		Kind:         kind,
		StudentID:    dto.StudentID,
		StudentName:  dto.StudentName,
		Description:  dto.Description,
		Amount:       dto.Amount,
		DueDate:      dto.DueDate.Time,
		PaymentDate:  dto.PaymentDate.Time,
		Status:       finance.PaymentStatusFromCode(dto.Status),
		Installments: installments,
	}, nil
}

// EntriesFromDTOs converts a slice of EntryDTOs, preserving API order.
func (m *Mapper) EntriesFromDTOs(dtos []EntryDTO, kind finance.EntryKind) []finance.Entry {
	entries := make([]finance.Entry, 0, len(dtos))
	for i := range dtos {
		e, err := m.EntryFromDTO(&dtos[i], kind)
		if err != nil {
			continue
		}
		entries = append(entries, *e)
	}
	return entries
}
