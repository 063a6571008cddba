package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCaseLocksSerializeSameCase(t *testing.T) {
	l := newCaseLocks()
	release := l.lock(1)

	acquired := make(chan struct{})
	go func() {
		r := l.lock(1)
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held case lock")
	case <-time.After(20 * time.Millisecond):
	}
	release()
	<-acquired
	assert.Eventually(t, func() bool { return l.held() == 0 }, time.Second, time.Millisecond)
}

func TestCaseLocksIndependentCases(t *testing.T) {
	l := newCaseLocks()
	r1 := l.lock(1)
	done := make(chan struct{})
	go func() {
		r2 := l.lock(2)
		r2()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different case blocked")
	}
	r1()
	assert.Equal(t, 0, l.held())
}

func TestCaseLocksReleaseDropsEntries(t *testing.T) {
	l := newCaseLocks()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			l.lock(id % 5)()
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(t, 0, l.held())
}

func TestNilCaseLocksIsNoop(t *testing.T) {
	var l *caseLocks
	l.lock(1)()
}
