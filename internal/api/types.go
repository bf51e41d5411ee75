package api

import (
	"encoding/json"
	"strings"
	"time"

	"yeoneunal/internal/datetime"
)

// RecordStatus is the processing state of an uploaded recording.
type RecordStatus string

const (
	StatusPending    RecordStatus = "pending"
	StatusProcessing RecordStatus = "processing"
	StatusCompleted  RecordStatus = "completed"
	StatusFailed     RecordStatus = "failed"
	StatusError      RecordStatus = "error"
)

// NormalizeStatus lowercases and trims a status string.
func NormalizeStatus(s string) RecordStatus {
	return RecordStatus(strings.ToLower(strings.TrimSpace(s)))
}

// Completed reports whether the report is ready to fetch.
func (s RecordStatus) Completed() bool { return s == StatusCompleted }

// Failed reports whether processing ended in failure.
func (s RecordStatus) Failed() bool { return s == StatusFailed || s == StatusError }

// Guardian is the account that registers wards.
type Guardian struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

func (g *Guardian) UnmarshalJSON(b []byte) error {
	var w struct {
		GuardianID flexID `json:"guardianId"`
		ID         flexID `json:"id"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*g = Guardian{
		ID:    firstID(w.GuardianID, w.ID),
		Name:  w.Name,
		Email: w.Email,
		Phone: w.Phone,
	}
	return nil
}

// GuardianSignup is the signup request body.
type GuardianSignup struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// Ward is a monitored person.
type Ward struct {
	ID           int64            `json:"id"`
	GuardianID   int64            `json:"guardianId,omitempty"`
	Name         string           `json:"name"`
	Gender       string           `json:"gender,omitempty"`
	Age          int              `json:"age,omitempty"`
	BirthDate    string           `json:"birthDate,omitempty"`
	Relationship string           `json:"relationship,omitempty"`
	Phone        string           `json:"phone,omitempty"`
	Diagnosis    DiagnosisPayload `json:"diagnosis"`
}

func (w *Ward) UnmarshalJSON(b []byte) error {
	var raw struct {
		WardID       flexID          `json:"wardId"`
		ID           flexID          `json:"id"`
		GuardianID   flexID          `json:"guardianId"`
		Name         string          `json:"name"`
		Gender       string          `json:"gender"`
		Age          flexID          `json:"age"`
		BirthDate    string          `json:"birthDate"`
		Relationship string          `json:"relationship"`
		Phone        string          `json:"phone"`
		Diagnosis    json.RawMessage `json:"diagnosis"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*w = Ward{
		ID:           firstID(raw.WardID, raw.ID),
		GuardianID:   int64(raw.GuardianID),
		Name:         raw.Name,
		Gender:       raw.Gender,
		Age:          int(raw.Age),
		BirthDate:    raw.BirthDate,
		Relationship: raw.Relationship,
		Phone:        raw.Phone,
	}
	// A diagnosis the client cannot read leaves the ward usable.
	_ = w.Diagnosis.UnmarshalJSON(raw.Diagnosis)
	return nil
}

// WardInput is the ward creation request. Diagnosis is sent as a JSON
// string, the form the backend stores verbatim.
type WardInput struct {
	GuardianID   int64
	Name         string
	Age          int
	Gender       string
	Phone        string
	Relationship string
	Diagnosis    DiagnosisPayload
}

func (in WardInput) MarshalJSON() ([]byte, error) {
	diag, err := in.Diagnosis.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		GuardianID   int64  `json:"guardianId"`
		Name         string `json:"name"`
		Age          int    `json:"age"`
		Gender       string `json:"gender"`
		Phone        string `json:"phone"`
		Relationship string `json:"relationship"`
		Diagnosis    string `json:"diagnosis"`
	}{in.GuardianID, in.Name, in.Age, in.Gender, in.Phone, in.Relationship, string(diag)})
}

// AudioRecord is an uploaded recording and its processing status.
type AudioRecord struct {
	ID         int64          `json:"id"`
	WardID     int64          `json:"wardId,omitempty"`
	Status     RecordStatus   `json:"status"`
	FileName   string         `json:"fileName,omitempty"`
	UploadedAt datetime.Time  `json:"uploadedAt"`
	RecordedAt datetime.Time  `json:"recordedAt"`
	CreatedAt  datetime.Time  `json:"createdAt"`
	Analysis   AnalysisResult `json:"analysisResult"`
}

func (r *AudioRecord) UnmarshalJSON(b []byte) error {
	var raw struct {
		RecordID       flexID         `json:"recordId"`
		ID             flexID         `json:"id"`
		WardID         flexID         `json:"wardId"`
		Status         string         `json:"status"`
		FileName       string         `json:"fileName"`
		UploadedAt     datetime.Time  `json:"uploadedAt"`
		RecordedAt     datetime.Time  `json:"recordedAt"`
		CreatedAt      datetime.Time  `json:"createdAt"`
		CreatedAtSnake datetime.Time  `json:"created_at"`
		Analysis       AnalysisResult `json:"analysisResult"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	created := raw.CreatedAt
	if !created.Valid {
		created = raw.CreatedAtSnake
	}
	*r = AudioRecord{
		ID:         firstID(raw.RecordID, raw.ID),
		WardID:     int64(raw.WardID),
		Status:     NormalizeStatus(raw.Status),
		FileName:   raw.FileName,
		UploadedAt: raw.UploadedAt,
		RecordedAt: raw.RecordedAt,
		CreatedAt:  created,
		Analysis:   raw.Analysis,
	}
	return nil
}

// Timestamp is the date a record is filed under: createdAt, else
// recordedAt, else uploadedAt.
func (r AudioRecord) Timestamp() (time.Time, bool) {
	return datetime.First(r.CreatedAt, r.RecordedAt, r.UploadedAt)
}

// Report is the AI analysis of one recording. Reports are immutable once
// created, apart from admin edits.
type Report struct {
	ID         int64          `json:"id"`
	RecordID   int64          `json:"recordId"`
	WardID     int64          `json:"wardId,omitempty"`
	Analysis   AnalysisResult `json:"analysisResult"`
	CreatedAt  datetime.Time  `json:"createdAt"`
	RecordedAt datetime.Time  `json:"recordedAt"`
	// Body holds the response bytes the report was decoded from.
	Body json.RawMessage `json:"-"`
}

func (r *Report) UnmarshalJSON(b []byte) error {
	var raw struct {
		ReportID       flexID         `json:"reportId"`
		ID             flexID         `json:"id"`
		RecordID       flexID         `json:"recordId"`
		AudioRecordID  flexID         `json:"audioRecordId"`
		WardID         flexID         `json:"wardId"`
		Analysis       AnalysisResult `json:"analysisResult"`
		CreatedAt      datetime.Time  `json:"createdAt"`
		CreatedAtSnake datetime.Time  `json:"created_at"`
		RecordedAt     datetime.Time  `json:"recordedAt"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	created := raw.CreatedAt
	if !created.Valid {
		created = raw.CreatedAtSnake
	}
	*r = Report{
		ID:         firstID(raw.ReportID, raw.ID),
		RecordID:   firstID(raw.RecordID, raw.AudioRecordID),
		WardID:     int64(raw.WardID),
		Analysis:   raw.Analysis,
		CreatedAt:  created,
		RecordedAt: raw.RecordedAt,
	}
	return nil
}

// Timestamp is createdAt falling back to recordedAt.
func (r Report) Timestamp() (time.Time, bool) {
	return datetime.First(r.CreatedAt, r.RecordedAt)
}
