package audit

import "context"

// Job represents one audit task that runs inside the audit worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry tracks audit jobs in registration order. Job names label log
// lines and metrics, so a name can only be registered once; later
// registrations under a taken name are dropped.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{names: make(map[string]struct{})}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	if _, taken := r.names[job.Name()]; taken {
		return
	}
	r.names[job.Name()] = struct{}{}
	r.jobs = append(r.jobs, job)
}

// Jobs returns a copy of the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
