package gateway

type fanoutJob struct {
	conns   []*WsConn
	payload []byte
}

// Fanout spreads large broadcasts over a small worker pool so an
// organization-wide push does not serialize behind one goroutine. With
// workers <= 0 it delivers inline, which tests rely on for
// determinism.
type Fanout struct {
	jobs chan fanoutJob
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		return &Fanout{}
	}
	f := &Fanout{jobs: make(chan fanoutJob, queue)}
	for i := 0; i < workers; i++ {
		go func() {
			for job := range f.jobs {
				deliver(job)
			}
		}()
	}
	return f
}

func (f *Fanout) Broadcast(conns []*WsConn, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	job := fanoutJob{conns: conns, payload: payload}
	if f.jobs == nil {
		deliver(job)
		return
	}
	f.jobs <- job
}

// Stop lets the workers drain and exit. Broadcast must not be called
// afterwards.
func (f *Fanout) Stop() {
	if f.jobs != nil {
		close(f.jobs)
	}
}

func deliver(job fanoutJob) {
	for _, c := range job.conns {
		// slow clients drop frames instead of blocking the pool
		c.Enqueue(job.payload)
	}
}
