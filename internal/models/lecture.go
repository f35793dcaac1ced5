package models

import "time"

// Subject is a taught course unit.
type Subject struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Code string `db:"code" json:"code"`
}

// TimeSlot is a named teaching period.
type TimeSlot struct {
	ID        string    `db:"id" json:"id"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	Label     string    `db:"label" json:"label"`
}

// Lecture is a scheduled class occurrence. Its TeacherID is reassigned
// when a replacement offer is approved.
type Lecture struct {
	ID         string    `db:"id" json:"id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	TimeSlotID string    `db:"time_slot_id" json:"time_slot_id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	StudentID  *string   `db:"student_id" json:"student_id,omitempty"`
	Date       time.Time `db:"date" json:"date"`
	WeekDay    int       `db:"week_day" json:"week_day"`
	Room       string    `db:"room" json:"room"`
}

// LectureView joins lecture rows with display fields for schedule listings.
type LectureView struct {
	Lecture
	SubjectName string `db:"subject_name" json:"subject_name"`
	SlotLabel   string `db:"slot_label" json:"slot_label"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}
