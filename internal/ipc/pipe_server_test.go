package ipc

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitForCount(t *testing.T, counter *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if counter.Load() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("activation count = %d, want %d", counter.Load(), want)
}

func TestActivationServerInvokesCallbackPerConnection(t *testing.T) {
	channel := testChannel(t)
	var count atomic.Int32
	srv := NewActivationServer(channel, func() { count.Add(1) })
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	for range 3 {
		conn, err := dialChannel(srv.Address(), time.Second)
		if err != nil {
			t.Fatalf("dialChannel() error = %v", err)
		}
		conn.Close()
	}
	waitForCount(t, &count, 3)
}

func TestActivationServerStartTwiceFails(t *testing.T) {
	srv := NewActivationServer(testChannel(t), func() {})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	if err := srv.Start(); err == nil {
		t.Fatal("second Start() error = nil, want already started")
	}
}

func TestActivationServerRequiresCallback(t *testing.T) {
	if err := NewActivationServer(testChannel(t), nil).Start(); err == nil {
		t.Fatal("Start() without callback error = nil")
	}
}

func TestActivationServerStopIsIdempotent(t *testing.T) {
	channel := testChannel(t)
	srv := NewActivationServer(channel, func() {})
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() before Start error = %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	if Probe(channel, 200*time.Millisecond) {
		t.Fatal("Probe() = true after Stop, want false")
	}
}

func TestActivationServerRecoversFromCallbackPanic(t *testing.T) {
	channel := testChannel(t)
	var count atomic.Int32
	srv := NewActivationServer(channel, func() {
		if count.Add(1) == 1 {
			panic("first activation fails")
		}
	})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	Probe(channel, time.Second)
	waitForCount(t, &count, 1)

	// The accept loop restarts after the backoff and keeps serving.
	deadline := time.Now().Add(3 * time.Second)
	for count.Load() < 2 && time.Now().Before(deadline) {
		Probe(channel, 200*time.Millisecond)
		time.Sleep(50 * time.Millisecond)
	}
	if count.Load() < 2 {
		t.Fatalf("activation count = %d after panic, want accept loop restarted", count.Load())
	}
}
