package permit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xkilldash9x/autopermit/internal/config"
	"github.com/xkilldash9x/autopermit/internal/schedule"
)

// fakePage is an in-memory portal. Elements listed in missing never become
// visible; elements listed in stale become visible but every action on them
// hangs until its context ends. Every interaction is appended to actions as
// "verb:id[:arg]".
type fakePage struct {
	mu         sync.Mutex
	actions    []string
	missing    map[string]bool
	stale      map[string]bool
	texts      map[string]string
	screenshot []byte
	shotErr    error
	actErr     map[string]error
}

func newFakePage() *fakePage {
	return &fakePage{
		missing:    map[string]bool{},
		stale:      map[string]bool{},
		texts:      map[string]string{ExpirationLabelID: "2/22/2024 6:52:05 PM"},
		screenshot: []byte("\x89PNG fake"),
		actErr:     map[string]error{},
	}
}

func (p *fakePage) record(a string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, a)
}

func (p *fakePage) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.actions...)
}

func (p *fakePage) WaitVisible(ctx context.Context, id string) (Element, error) {
	if p.missing[id] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	p.record("wait:" + id)
	return &fakeElement{page: p, id: id}, nil
}

func (p *fakePage) FullScreenshot(context.Context) ([]byte, error) {
	p.record("screenshot")
	return p.screenshot, p.shotErr
}

type fakeElement struct {
	page *fakePage
	id   string
}

// act records a and returns the configured result, or hangs for a stale element.
func (e *fakeElement) act(ctx context.Context, a string) error {
	e.page.record(a)
	if e.page.stale[e.id] {
		<-ctx.Done()
		return ctx.Err()
	}
	return e.page.actErr[e.id]
}

func (e *fakeElement) SendKeys(ctx context.Context, text string) error {
	return e.act(ctx, fmt.Sprintf("type:%s:%s", e.id, text))
}

func (e *fakeElement) Click(ctx context.Context) error {
	return e.act(ctx, "click:"+e.id)
}

func (e *fakeElement) SelectByText(ctx context.Context, text string) error {
	return e.act(ctx, fmt.Sprintf("select:%s:%s", e.id, text))
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	if err := e.act(ctx, "text:"+e.id); err != nil {
		return "", err
	}
	return e.page.texts[e.id], nil
}

// fakeScheduler keeps tasks by name, like a real host scheduler.
type fakeScheduler struct {
	tasks     map[string]schedule.Task
	registers int
	err       error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{tasks: map[string]schedule.Task{}}
}

func (s *fakeScheduler) Register(_ context.Context, task schedule.Task) error {
	if s.err != nil {
		return s.err
	}
	s.registers++
	s.tasks[task.Name] = task
	return nil
}

func (s *fakeScheduler) Unregister(_ context.Context, name string) error {
	if _, ok := s.tasks[name]; !ok {
		return errors.New("task not found")
	}
	delete(s.tasks, name)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Timeout:                 1,
		PortalURL:               config.DefaultPortalURL,
		PropertyLocation:        "Sunset Apartments",
		ApartmentNumber:         "204",
		PlateNumber:             "ABC1234",
		VehicleMake:             "Honda",
		VehicleModel:            "Civic",
		VehicleColor:            "Blue",
		ScreenshotFolder:        "/permits",
		SendScreenshotInDiscord: true,
		IReadTheConfigWarning:   true,
	}
}

// shortTimeout keeps missing-element tests fast.
const shortTimeout = 50 * time.Millisecond
