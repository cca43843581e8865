package cron

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	rcron "github.com/robfig/cron/v3"
)

// Runner executes one task and returns a short result summary. The
// gateway injects it so the scheduler stays free of engine and bus
// dependencies.
type Runner func(Task) (string, error)

// Scheduler runs recurring jobs through a cron engine and one-shot
// jobs through timers, persisting the job set to a JSON file.
type Scheduler struct {
	path   string
	runner Runner

	mu      sync.Mutex
	jobs    map[string]*Job
	entries map[string]rcron.EntryID
	timers  map[string]*time.Timer
	cron    *rcron.Cron
	started bool
}

func NewScheduler(path string, runner Runner) *Scheduler {
	return &Scheduler{
		path:    path,
		runner:  runner,
		jobs:    make(map[string]*Job),
		entries: make(map[string]rcron.EntryID),
		timers:  make(map[string]*time.Timer),
		cron:    rcron.New(rcron.WithSeconds()),
	}
}

// Start loads persisted jobs, schedules the enabled ones, and starts
// the cron engine. One-shot jobs whose time already passed fire
// immediately.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := s.load(); err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}
	for _, job := range s.jobs {
		if !job.Enabled {
			continue
		}
		if _, ok := s.entries[job.ID]; ok {
			continue
		}
		if _, ok := s.timers[job.ID]; ok {
			continue
		}
		if err := s.schedule(job); err != nil {
			log.Printf("[cron] schedule %s: %v", job.Name, err)
		}
	}
	s.cron.Start()
	s.started = true
	log.Printf("[cron] started with %d jobs", len(s.jobs))
	return nil
}

// Stop halts the cron engine and cancels pending one-shot timers.
// Jobs stay on disk for the next start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.cron.Stop()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.started = false
	log.Printf("[cron] stopped")
}

// Add registers a recurring job with a cron spec (six fields, seconds
// first; @every descriptors work too).
func (s *Scheduler) Add(name, spec string, task Task) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &Job{
		ID:        uuid.NewString(),
		Name:      name,
		Spec:      spec,
		Task:      task,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
	if err := s.schedule(job); err != nil {
		return Job{}, err
	}
	s.jobs[job.ID] = job
	s.save()
	return *job, nil
}

// AddAt registers a one-shot job that fires once at the given time and
// is removed afterwards.
func (s *Scheduler) AddAt(name string, at time.Time, task Task) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &Job{
		ID:        uuid.NewString(),
		Name:      name,
		At:        at,
		Task:      task,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
	if err := s.schedule(job); err != nil {
		return Job{}, err
	}
	s.jobs[job.ID] = job
	s.save()
	return *job, nil
}

// Ensure registers a recurring job unless one with the same name
// already exists. Existing jobs are left untouched so restarts do not
// reset operator edits.
func (s *Scheduler) Ensure(name, spec string, task Task) (Job, error) {
	s.mu.Lock()
	for _, job := range s.jobs {
		if job.Name == name {
			existing := *job
			s.mu.Unlock()
			return existing, nil
		}
	}
	s.mu.Unlock()
	return s.Add(name, spec, task)
}

// Remove deletes a job by ID and unschedules it.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	s.unschedule(job)
	delete(s.jobs, id)
	s.save()
	return true
}

// Enable turns a job on or off in place.
func (s *Scheduler) Enable(id string, on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	if job.Enabled == on {
		return true
	}
	job.Enabled = on
	if on {
		if err := s.schedule(job); err != nil {
			log.Printf("[cron] reschedule %s: %v", job.Name, err)
		}
	} else {
		s.unschedule(job)
	}
	s.save()
	return true
}

// Jobs returns a snapshot of all jobs sorted by creation time.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// schedule wires a job into the cron engine or a timer. Caller holds
// the lock.
func (s *Scheduler) schedule(job *Job) error {
	id := job.ID
	if job.OneShot() {
		delay := time.Until(job.At)
		if delay < 0 {
			delay = 0
		}
		s.timers[id] = time.AfterFunc(delay, func() {
			s.fire(id)
		})
		return nil
	}
	entry, err := s.cron.AddFunc(job.Spec, func() {
		s.fire(id)
	})
	if err != nil {
		return fmt.Errorf("cron spec %q: %w", job.Spec, err)
	}
	s.entries[id] = entry
	return nil
}

// unschedule detaches a job from the cron engine or its timer. Caller
// holds the lock.
func (s *Scheduler) unschedule(job *Job) {
	if entry, ok := s.entries[job.ID]; ok {
		s.cron.Remove(entry)
		delete(s.entries, job.ID)
	}
	if t, ok := s.timers[job.ID]; ok {
		t.Stop()
		delete(s.timers, job.ID)
	}
}

// fire runs one job through the runner and records the outcome.
// One-shot jobs are removed after running.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok || !job.Enabled {
		s.mu.Unlock()
		return
	}
	task := job.Task
	name := job.Name
	s.mu.Unlock()

	result, err := s.runner(task)

	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok = s.jobs[id]
	if !ok {
		return
	}
	run := &Run{At: time.Now(), Status: "ok", Result: result}
	if err != nil {
		run.Status = "error"
		run.Error = err.Error()
		log.Printf("[cron] job %s failed: %v", name, err)
	} else {
		log.Printf("[cron] job %s: %s", name, result)
	}
	job.LastRun = run
	if job.OneShot() {
		s.unschedule(job)
		delete(s.jobs, id)
	}
	s.save()
}

// load reads the persisted job file. Caller holds the lock.
func (s *Scheduler) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var jobs []*Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return err
	}
	for _, job := range jobs {
		s.jobs[job.ID] = job
	}
	return nil
}

// save writes the job file. Caller holds the lock; errors only log
// since a failed save must not break the firing job.
func (s *Scheduler) save() {
	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		log.Printf("[cron] marshal jobs: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		log.Printf("[cron] create job dir: %v", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		log.Printf("[cron] write jobs: %v", err)
	}
}
