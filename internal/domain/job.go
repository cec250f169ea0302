package domain

import (
	"fmt"
	"strings"
)

// Job is one of the fixed roles articles are scored against.
type Job string

const (
	JobSecurityEngineer    Job = "Security Engineer"
	JobSoftwareDeveloper   Job = "Software Developer"
	JobDevOpsSRE           Job = "DevOps/SRE"
	JobSystemAdministrator Job = "System Administrator"
	JobSecurityAnalyst     Job = "Security Analyst"
	JobOther               Job = "Other"
)

var allJobs = []Job{
	JobSecurityEngineer,
	JobSoftwareDeveloper,
	JobDevOpsSRE,
	JobSystemAdministrator,
	JobSecurityAnalyst,
	JobOther,
}

// AllJobs returns the closed job set in scoring order.
func AllJobs() []Job {
	out := make([]Job, len(allJobs))
	copy(out, allJobs)
	return out
}

// Valid reports whether j belongs to the closed set.
func (j Job) Valid() bool {
	for _, known := range allJobs {
		if j == known {
			return true
		}
	}
	return false
}

// ParseJob validates a raw job value.
func ParseJob(raw string) (Job, error) {
	if raw == "" {
		return "", &ValidationError{Field: "job", Message: "job is required"}
	}
	job := Job(raw)
	if !job.Valid() {
		return "", InvalidJobError()
	}
	return job, nil
}

// InvalidJobError lists the accepted values.
func InvalidJobError() *ValidationError {
	names := make([]string, len(allJobs))
	for i, j := range allJobs {
		names[i] = string(j)
	}
	return &ValidationError{
		Field:   "job",
		Message: fmt.Sprintf("Invalid job. Must be one of: %s", strings.Join(names, ", ")),
	}
}
