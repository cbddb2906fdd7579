package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// fakeSession is an in-memory Session for pool and navigator tests.
type fakeSession struct {
	id           string
	alive        bool
	closed       bool
	navErrs      []error // consumed per Navigate call; nil entry means success
	navCalls     int
	html         string
	helperErr    error
	helperCalled int
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id, alive: true}
}

func (f *fakeSession) ID() string  { return f.id }
func (f *fakeSession) Alive() bool { return f.alive }

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	f.navCalls++
	if len(f.navErrs) > 0 {
		err := f.navErrs[0]
		f.navErrs = f.navErrs[1:]
		return err
	}
	return nil
}

func (f *fakeSession) HTML(ctx context.Context) (string, error) {
	if f.html == "" {
		return "", errors.New("no page loaded")
	}
	return f.html, nil
}

func (f *fakeSession) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	f.helperCalled++
	return f.helperErr
}

func (f *fakeSession) Click(ctx context.Context, selector string) error {
	f.helperCalled++
	return f.helperErr
}

func (f *fakeSession) FillInput(ctx context.Context, selector, value string) error {
	f.helperCalled++
	return f.helperErr
}

func (f *fakeSession) Scroll(ctx context.Context) error {
	f.helperCalled++
	return f.helperErr
}

func (f *fakeSession) Close() {
	f.closed = true
	f.alive = false
}

// fakeFactory creates numbered fake sessions and records how many were built.
func fakeFactory() (Factory, *int) {
	count := new(int)
	factory := func(ctx context.Context) (Session, error) {
		*count++
		return newFakeSession(fmt.Sprintf("fake-%d", *count)), nil
	}
	return factory, count
}
