package state

import (
	"encoding/json"
	"sync"
	"testing"
)

func mustDecode(t *testing.T, s string) map[string]any {
	t.Helper()
	m, err := Decode([]byte(s))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return m
}

func TestSetFieldCreatesRegion(t *testing.T) {
	s := New(nil)
	s.SetField("form", "name", "ada")

	v, ok := s.Field("form", "name")
	if !ok || v != "ada" {
		t.Errorf("Field = %v,%v, want ada,true", v, ok)
	}
}

func TestSetFieldReplacesNonObject(t *testing.T) {
	s := New(map[string]any{"r": "scalar"})
	s.SetField("r", "f", "v")

	m, ok := s.Get("r")
	if !ok {
		t.Fatal("region missing")
	}
	if got := m.(map[string]any)["f"]; got != "v" {
		t.Errorf("f = %v, want v", got)
	}
}

func TestSetFieldKeepsSiblings(t *testing.T) {
	s := New(mustDecode(t, `{"todo":{"list":["a"],"item":""}}`))
	s.SetField("todo", "item", "milk")

	raw, _ := s.Slice("todo")
	if raw["todo"] != `{"item":"milk","list":["a"]}` {
		t.Errorf("todo = %s", raw["todo"])
	}
}

func TestMergeAllIsShallow(t *testing.T) {
	s := New(mustDecode(t, `{"a":{"x":1,"y":2},"b":{"z":3}}`))
	s.MergeAll(mustDecode(t, `{"a":{"x":9},"c":true}`))

	raw, err := s.Slice("")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"a": `{"x":9}`,
		"b": `{"z":3}`,
		"c": `true`,
	}
	for k, v := range want {
		if raw[k] != v {
			t.Errorf("%s = %s, want %s", k, raw[k], v)
		}
	}
	if len(raw) != len(want) {
		t.Errorf("len = %d, want %d", len(raw), len(want))
	}
}

func TestSlicePrefix(t *testing.T) {
	s := New(mustDecode(t, `{"form":{"a":1},"form.child":{"b":2},"other":{"c":3}}`))

	raw, err := s.Slice("form")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["form"]; !ok {
		t.Error("form missing")
	}
	if _, ok := raw["form.child"]; !ok {
		t.Error("form.child missing")
	}
	if _, ok := raw["other"]; ok {
		t.Error("other should not be included")
	}
}

func TestNumbersRoundTrip(t *testing.T) {
	s := New(mustDecode(t, `{"n":{"big":12345678901234567890,"f":1.50}}`))
	raw, _ := s.Slice("n")
	if raw["n"] != `{"big":12345678901234567890,"f":1.50}` {
		t.Errorf("n = %s", raw["n"])
	}
}

func TestSnapshotIsDeep(t *testing.T) {
	s := New(mustDecode(t, `{"r":{"list":["a","b"]}}`))
	snap := s.Snapshot()

	snap["r"].(map[string]any)["list"].([]any)[0] = "changed"

	raw, _ := s.Slice("r")
	if raw["r"] != `{"list":["a","b"]}` {
		t.Errorf("store mutated through snapshot: %s", raw["r"])
	}
}

func TestResetAndKeys(t *testing.T) {
	s := New(mustDecode(t, `{"b":1,"a":2}`))
	if got := s.Keys(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Keys = %v", got)
	}
	s.Reset(map[string]any{"z": 1})
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
	if _, ok := s.Get("a"); ok {
		t.Error("reset should drop old keys")
	}
}

func TestMarshalJSON(t *testing.T) {
	s := New(mustDecode(t, `{"r":{"x":1}}`))
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"r":{"x":1}}` {
		t.Errorf("json = %s", b)
	}
}

func TestDecodeRejectsNonObject(t *testing.T) {
	if _, err := Decode([]byte(`[1,2]`)); err == nil {
		t.Error("expected error for array")
	}
	m, err := Decode([]byte(`null`))
	if err != nil || m == nil || len(m) != 0 {
		t.Errorf("null should decode to empty state, got %v, %v", m, err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.SetField("r", "f", j)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.MergeAll(map[string]any{"q": j})
				_, _ = s.Slice("")
			}
		}()
	}
	wg.Wait()
}
