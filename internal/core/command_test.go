package core

import (
	"sync"
	"testing"
)

func TestSubmitDropsOldest(t *testing.T) {
	c := NewCommandChannel(2)

	for i, payload := range []string{`1`, `2`} {
		if c.Submit(LightCommand(SourceMQTT, []byte(payload))) {
			t.Fatalf("submit %d dropped a command on an empty queue", i)
		}
	}
	if !c.Submit(LightCommand(SourceMQTT, []byte(`3`))) {
		t.Fatal("submit on a full queue did not report a drop")
	}

	var got []string
	for c.Len() > 0 {
		got = append(got, string((<-c.C()).Payload))
	}
	if len(got) != 2 || got[0] != "2" || got[1] != "3" {
		t.Errorf("queued = %v, want [2 3]", got)
	}
	if c.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", c.Dropped())
	}
}

func TestSubmitConcurrent(t *testing.T) {
	c := NewCommandChannel(4)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Submit(Command{Type: CmdLight})
			}
		}()
	}
	wg.Wait()

	if c.Len() != 4 {
		t.Errorf("Len = %d, want a full queue of 4", c.Len())
	}
	if c.Dropped() != 400-4 {
		t.Errorf("Dropped = %d, want %d", c.Dropped(), 400-4)
	}
}
