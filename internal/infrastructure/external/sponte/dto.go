// Package sponte implements the Sponte school-management API client.
// This package handles all communication with the Sponte integration
// service: login/token exchange, paginated record fetching, and mapping
// of wire DTOs into domain records.
package sponte

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// WIRE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// PagedResponse is the envelope Sponte wraps every list endpoint in.
// Records live in listDados; totalPaginas drives pagination.
type PagedResponse[T any] struct {
	// Rows carries the page's records.
	Rows []T `json:"listDados"`

	// TotalPages is the total page count for the query.
	TotalPages int `json:"totalPaginas"`

	// TotalRows is the total record count, when the API reports it.
	TotalRows int `json:"totalRegistros,omitempty"`

	// Message carries API-level error or status text.
	Message string `json:"mensagem,omitempty"`
}

// loginRequest is the body of POST /api/v1/login.
type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"senha"`
}

// loginResponse is the body returned on successful login.
type loginResponse struct {
	Token string `json:"token"`
}

// ══════════════════════════════════════════════════════════════════════════════
// DATE HANDLING
// ══════════════════════════════════════════════════════════════════════════════

// Date wraps time.Time with tolerant decoding: Sponte returns dates in a
// handful of layouts (with and without time component), and occasionally
// null or an empty string.
type Date struct {
	time.Time
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("unsupported date value %q", s)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format("2006-01-02T15:04:05"))
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHOOL DTOs
// ══════════════════════════════════════════════════════════════════════════════

// ClassDTO mirrors a turma record on the wire.
type ClassDTO struct {
	ID        int              `json:"turmaID"`
	Name      string           `json:"nomeTurma"`
	Modality  string           `json:"modalidade"`
	Course    string           `json:"nomeCurso"`
	Stage     string           `json:"nomeEstagio"`
	Teacher   string           `json:"nomeFuncionario"`
	Status    int              `json:"situacaoTurma"`
	StartDate Date             `json:"dataInicio"`
	EndDate   Date             `json:"dataTermino"`
	Students  []ClassRosterDTO `json:"alunos,omitempty"`
}

// ClassRosterDTO is the per-class enrollment stub inside a turma record.
type ClassRosterDTO struct {
	StudentID int    `json:"alunoID"`
	Name      string `json:"nomeAluno,omitempty"`
}

// StudentDTO mirrors an aluno record on the wire.
type StudentDTO struct {
	ID       int               `json:"alunoID"`
	Name     string            `json:"nomeAluno"`
	Status   int               `json:"situacao"`
	Classes  []StudentClassDTO `json:"turmas,omitempty"`
	Email    string            `json:"email,omitempty"`
	Phone    string            `json:"telefone,omitempty"`
	Enrolled Date              `json:"dataCadastro,omitempty"`
}

// StudentClassDTO is the per-student class stub inside an aluno record.
type StudentClassDTO struct {
	ClassID int    `json:"turmaID"`
	Name    string `json:"nomeTurma,omitempty"`
}

// LessonDTO mirrors an aula record on the wire.
type LessonDTO struct {
	ID      int    `json:"aulaID"`
	ClassID int    `json:"turmaID"`
	Date    Date   `json:"dataAula"`
	Status  int    `json:"situacao"`
	Teacher string `json:"nomeFuncionario,omitempty"`
	Content string `json:"conteudo,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// FINANCIAL DTOs
// ══════════════════════════════════════════════════════════════════════════════

// EntryDTO mirrors a conta (receber or pagar) record on the wire.
type EntryDTO struct {
	ID          int              `json:"contaID"`
	StudentID   int              `json:"alunoID,omitempty"`
	StudentName string           `json:"nomeAluno,omitempty"`
	Description string           `json:"descricao,omitempty"`
	Amount      float64          `json:"valor"`
	DueDate     Date             `json:"dataVencimento"`
	PaymentDate Date             `json:"dataPagamento,omitempty"`
	Status      int              `json:"situacao"`
	Parcels     []InstallmentDTO `json:"parcelas,omitempty"`
}

// InstallmentDTO mirrors one parcela inside a conta record.
type InstallmentDTO struct {
	Number      int     `json:"numeroParcela,omitempty"`
	Amount      float64 `json:"valor"`
	DueDate     Date    `json:"dataVencimento,omitempty"`
	PaymentDate Date    `json:"dataPagamento,omitempty"`
	Status      int     `json:"situacao"`
}
