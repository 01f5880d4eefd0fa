package wave_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Berkaniis/survey-tool/internal/dispatch"
	"github.com/Berkaniis/survey-tool/internal/domain"
	"github.com/Berkaniis/survey-tool/internal/service/wave"
)

// memRepo is an in-memory wave repository for unit testing.
type memRepo struct {
	mu        sync.Mutex
	waves     map[string]*domain.SendWave
	targets   []wave.Target
	campaigns map[string]bool
	templates map[string]bool
	listErr   error
}

func newMemRepo() *memRepo {
	return &memRepo{
		waves:     make(map[string]*domain.SendWave),
		campaigns: map[string]bool{"camp-1": true},
		templates: map[string]bool{"tpl-1": true},
	}
}

func (m *memRepo) CreateWave(_ context.Context, w *domain.SendWave) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.waves[cp.ID] = &cp
	return nil
}

func (m *memRepo) GetWave(_ context.Context, id string) (*domain.SendWave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.waves[id]
	if !ok {
		return nil, wave.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memRepo) MarkRunning(_ context.Context, id string, enumerated int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.waves[id]
	if !ok {
		return wave.ErrNotFound
	}
	if w.Status != domain.WavePending {
		return wave.ErrInvalidTransition
	}
	w.Status = domain.WaveRunning
	w.EnumeratedCount = enumerated
	return nil
}

func (m *memRepo) MarkFailed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.waves[id]
	if !ok {
		return wave.ErrNotFound
	}
	w.Status = domain.WaveFailed
	return nil
}

func (m *memRepo) MarkCompleted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.waves[id]
	if !ok {
		return wave.ErrNotFound
	}
	w.Status = domain.WaveCompleted
	return nil
}

func (m *memRepo) CountRecipients(_ context.Context, _ string, f domain.WaveFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.targets {
		if f.IsZero() || t.Recipient.Status == f.Status {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) ListRecipients(_ context.Context, _ string, f domain.WaveFilter) ([]wave.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []wave.Target
	for _, t := range m.targets {
		if f.IsZero() || t.Recipient.Status == f.Status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memRepo) CampaignExists(_ context.Context, id string) (bool, error) {
	return m.campaigns[id], nil
}

func (m *memRepo) TemplateExists(_ context.Context, id string) (bool, error) {
	return m.templates[id], nil
}

func (m *memRepo) addTarget(contactID, email string, status domain.RecipientStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = append(m.targets, wave.Target{
		Recipient: domain.Recipient{CampaignID: "camp-1", ContactID: contactID, Status: status},
		Contact:   domain.Contact{ID: contactID, Email: email, FirstName: "Ann"},
	})
}

// memDispatcher captures enqueued tasks.
type memDispatcher struct {
	mu    sync.Mutex
	waves map[string][]*dispatch.Task
}

func newMemDispatcher() *memDispatcher {
	return &memDispatcher{waves: make(map[string][]*dispatch.Task)}
}

func (d *memDispatcher) EnqueueWave(waveID string, tasks []*dispatch.Task) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waves[waveID] = append(d.waves[waveID], tasks...)
}

func (d *memDispatcher) tasks(waveID string) []*dispatch.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waves[waveID]
}

type stubValidator struct{ ok bool }

func (v stubValidator) ValidateConnection(context.Context) bool { return v.ok }

func newTestService(repo *memRepo, d wave.Dispatcher, connected bool) *wave.Service {
	return wave.NewService(repo, d, stubValidator{ok: connected}, nil)
}

func TestCreateSnapshotsTargetCount(t *testing.T) {
	repo := newMemRepo()
	repo.addTarget("c1", "a@example.com", domain.RecipientPending)
	repo.addTarget("c2", "b@example.com", domain.RecipientPending)
	repo.addTarget("c3", "c@example.com", domain.RecipientSent)
	svc := newTestService(repo, newMemDispatcher(), true)

	w, err := svc.Create(context.Background(), wave.CreateInput{
		CampaignID: "camp-1",
		TemplateID: "tpl-1",
		Filter:     domain.WaveFilter{Status: domain.RecipientPending},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if w.Status != domain.WavePending {
		t.Errorf("status = %s, want PENDING", w.Status)
	}
	if w.ContactCount != 2 {
		t.Errorf("contact count = %d, want 2", w.ContactCount)
	}
	if w.Kind != domain.WaveInitial {
		t.Errorf("kind = %s, want INITIAL default", w.Kind)
	}
}

func TestCreateUnknownCampaign(t *testing.T) {
	svc := newTestService(newMemRepo(), newMemDispatcher(), true)

	_, err := svc.Create(context.Background(), wave.CreateInput{
		CampaignID: "nope",
		TemplateID: "tpl-1",
	})
	if !errors.Is(err, wave.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
}

func TestStartEnqueuesMatchingRecipients(t *testing.T) {
	repo := newMemRepo()
	repo.addTarget("c1", "a@example.com", domain.RecipientPending)
	repo.addTarget("c2", "b@example.com", domain.RecipientPending)
	d := newMemDispatcher()
	svc := newTestService(repo, d, true)

	w, err := svc.Create(context.Background(), wave.CreateInput{
		CampaignID: "camp-1", TemplateID: "tpl-1",
		Filter: domain.WaveFilter{Status: domain.RecipientPending},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := svc.Start(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if n != 2 {
		t.Errorf("enqueued = %d, want 2", n)
	}

	tasks := d.tasks(w.ID)
	if len(tasks) != 2 {
		t.Fatalf("dispatcher got %d tasks, want 2", len(tasks))
	}
	if tasks[0].Email != "a@example.com" || tasks[0].TemplateID != "tpl-1" {
		t.Errorf("unexpected first task %+v", tasks[0])
	}
	if tasks[0].Vars["first_name"] != "Ann" {
		t.Errorf("task vars missing contact fields: %v", tasks[0].Vars)
	}

	got, _ := svc.Get(context.Background(), w.ID)
	if got.Status != domain.WaveRunning {
		t.Errorf("wave status = %s, want RUNNING", got.Status)
	}
	if got.EnumeratedCount != 2 {
		t.Errorf("enumerated count = %d, want 2", got.EnumeratedCount)
	}
}

func TestStartNonPendingIsNoOp(t *testing.T) {
	repo := newMemRepo()
	repo.addTarget("c1", "a@example.com", domain.RecipientPending)
	d := newMemDispatcher()
	svc := newTestService(repo, d, true)

	w, err := svc.Create(context.Background(), wave.CreateInput{
		CampaignID: "camp-1", TemplateID: "tpl-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Start(context.Background(), w.ID); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	n, err := svc.Start(context.Background(), w.ID)
	if !errors.Is(err, wave.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if n != 0 {
		t.Errorf("second start enqueued %d tasks", n)
	}
	if len(d.tasks(w.ID)) != 1 {
		t.Errorf("dispatcher got %d tasks, want only the first start's", len(d.tasks(w.ID)))
	}
}

func TestStartUnknownWave(t *testing.T) {
	svc := newTestService(newMemRepo(), newMemDispatcher(), true)

	_, err := svc.Start(context.Background(), "missing")
	if !errors.Is(err, wave.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStartRefusedWhenProviderDown(t *testing.T) {
	repo := newMemRepo()
	repo.addTarget("c1", "a@example.com", domain.RecipientPending)
	d := newMemDispatcher()
	svc := newTestService(repo, d, false)

	w, err := svc.Create(context.Background(), wave.CreateInput{
		CampaignID: "camp-1", TemplateID: "tpl-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Start(context.Background(), w.ID)
	if !errors.Is(err, wave.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}

	// The wave stays PENDING so it can be started once the provider is back.
	got, _ := svc.Get(context.Background(), w.ID)
	if got.Status != domain.WavePending {
		t.Errorf("wave status = %s, want PENDING", got.Status)
	}
	if len(d.tasks(w.ID)) != 0 {
		t.Error("tasks enqueued despite provider being down")
	}
}

func TestStartEnumerationFailureMarksWaveFailed(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, newMemDispatcher(), true)

	w, err := svc.Create(context.Background(), wave.CreateInput{
		CampaignID: "camp-1", TemplateID: "tpl-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	repo.mu.Lock()
	repo.listErr = errors.New("db gone")
	repo.mu.Unlock()

	if _, err := svc.Start(context.Background(), w.ID); err == nil {
		t.Fatal("expected enumeration error")
	}
	got, _ := svc.Get(context.Background(), w.ID)
	if got.Status != domain.WaveFailed {
		t.Errorf("wave status = %s, want FAILED", got.Status)
	}
}

func TestStartEmptyEnumerationCompletesWave(t *testing.T) {
	repo := newMemRepo()
	d := newMemDispatcher()
	svc := newTestService(repo, d, true)

	w, err := svc.Create(context.Background(), wave.CreateInput{
		CampaignID: "camp-1", TemplateID: "tpl-1",
		Filter: domain.WaveFilter{Status: domain.RecipientPending},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := svc.Start(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if n != 0 {
		t.Errorf("enqueued = %d, want 0", n)
	}
	got, _ := svc.Get(context.Background(), w.ID)
	if got.Status != domain.WaveCompleted {
		t.Errorf("wave status = %s, want COMPLETED", got.Status)
	}
}

// Snapshot-vs-live divergence: recipients added after wave creation are
// included at start, and the snapshot count is preserved unchanged.
func TestStartSurfacesSnapshotDivergence(t *testing.T) {
	repo := newMemRepo()
	repo.addTarget("c1", "a@example.com", domain.RecipientPending)
	d := newMemDispatcher()
	svc := newTestService(repo, d, true)

	w, err := svc.Create(context.Background(), wave.CreateInput{
		CampaignID: "camp-1", TemplateID: "tpl-1",
		Filter: domain.WaveFilter{Status: domain.RecipientPending},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	repo.addTarget("c2", "b@example.com", domain.RecipientPending)

	n, err := svc.Start(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if n != 2 {
		t.Errorf("enumerated = %d, want 2", n)
	}
	got, _ := svc.Get(context.Background(), w.ID)
	if got.ContactCount != 1 {
		t.Errorf("snapshot count = %d, want 1 (unchanged)", got.ContactCount)
	}
	if got.EnumeratedCount != 2 {
		t.Errorf("enumerated count = %d, want 2", got.EnumeratedCount)
	}
}
