package cron

import "time"

// TaskKind names what a scheduled job does when it fires.
type TaskKind string

const (
	// TaskReminderDigest collects users' open reminders and delivers
	// them as a digest.
	TaskReminderDigest TaskKind = "reminder_digest"
	// TaskProfileSnapshot exports user profiles to dated JSON files.
	TaskProfileSnapshot TaskKind = "profile_snapshot"
	// TaskMessage delivers a fixed message to a channel.
	TaskMessage TaskKind = "message"
)

// Task is the work a job carries. UserID narrows digest and snapshot
// tasks to one user; empty means all known users. Channel, ChatID, and
// Message belong to message tasks and to digests that deliver somewhere.
type Task struct {
	Kind    TaskKind `json:"kind"`
	UserID  string   `json:"userId,omitempty"`
	Channel string   `json:"channel,omitempty"`
	ChatID  string   `json:"chatId,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Run records the outcome of the most recent execution.
type Run struct {
	At     time.Time `json:"at"`
	Status string    `json:"status"`
	Result string    `json:"result,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// Job is one scheduled task. Spec holds a cron expression for
// recurring jobs; one-shot jobs leave Spec empty and set At instead,
// and are removed after they fire.
type Job struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Spec      string    `json:"spec,omitempty"`
	At        time.Time `json:"at,omitempty"`
	Task      Task      `json:"task"`
	Enabled   bool      `json:"enabled"`
	LastRun   *Run      `json:"lastRun,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// OneShot reports whether the job fires once at a fixed time.
func (j Job) OneShot() bool {
	return j.Spec == ""
}
