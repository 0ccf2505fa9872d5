package registry

import (
	"testing"
	"time"

	"baduanjin-watch/internal/model"
)

func TestRegister_SecondCallReturnsExistingJob(t *testing.T) {
	reg := New()

	first, created := reg.Register(7, model.KindAnalysis, time.Second, time.Minute)
	if !created {
		t.Fatalf("first register should create a job")
	}
	second, created := reg.Register(7, model.KindAnalysis, time.Second, time.Minute)
	if created {
		t.Fatalf("second register for the same key must not create a new job")
	}
	if second.JobID != first.JobID {
		t.Fatalf("second register returned a different job: %s vs %s", second.JobID, first.JobID)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one active job, got %d", reg.Len())
	}
}

func TestRegister_DifferentKindsAreIndependent(t *testing.T) {
	reg := New()

	if _, created := reg.Register(7, model.KindAnalysis, time.Second, time.Minute); !created {
		t.Fatalf("analysis register should create")
	}
	if _, created := reg.Register(7, model.KindAudioConversion, time.Second, time.Minute); !created {
		t.Fatalf("audio conversion for the same video should be a separate slot")
	}
	if reg.Len() != 2 {
		t.Fatalf("expected two active jobs, got %d", reg.Len())
	}
}

func TestUnregister_IsIdempotentAndSignalsStop(t *testing.T) {
	reg := New()
	reg.Register(3, model.KindAnalysis, time.Second, time.Minute)

	stop, ok := reg.StopSignal(3, model.KindAnalysis)
	if !ok {
		t.Fatalf("expected stop signal for active job")
	}

	reg.Unregister(3, model.KindAnalysis)
	select {
	case <-stop:
	default:
		t.Fatalf("stop signal not closed on unregister")
	}

	// absent key is a no-op, not a panic or error
	reg.Unregister(3, model.KindAnalysis)
	reg.Unregister(99, model.KindWebConversion)

	if _, ok := reg.Get(3, model.KindAnalysis); ok {
		t.Fatalf("job still visible after unregister")
	}
}

func TestUpdate_DroppedAfterUnregister(t *testing.T) {
	reg := New()
	reg.Register(3, model.KindAnalysis, time.Second, time.Minute)
	reg.Unregister(3, model.KindAnalysis)

	mutated := false
	_, ok, err := reg.Update(3, model.KindAnalysis, func(j *model.Job) error {
		mutated = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if ok || mutated {
		t.Fatalf("update applied to unregistered job")
	}
}

func TestSnapshot_StableOrder(t *testing.T) {
	reg := New()
	reg.Register(9, model.KindAnalysis, time.Second, time.Minute)
	reg.Register(2, model.KindWebConversion, time.Second, time.Minute)
	reg.Register(2, model.KindAudioConversion, time.Second, time.Minute)

	jobs := reg.Snapshot()
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	if jobs[0].VideoID != 2 || jobs[0].Kind != model.KindAudioConversion {
		t.Fatalf("unexpected first job: %d/%s", jobs[0].VideoID, jobs[0].Kind)
	}
	if jobs[1].VideoID != 2 || jobs[1].Kind != model.KindWebConversion {
		t.Fatalf("unexpected second job: %d/%s", jobs[1].VideoID, jobs[1].Kind)
	}
	if jobs[2].VideoID != 9 {
		t.Fatalf("unexpected third job: %d/%s", jobs[2].VideoID, jobs[2].Kind)
	}
}
