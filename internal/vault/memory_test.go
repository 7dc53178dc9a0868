package vault

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestMemoryVault_RoundTrip(t *testing.T) {
	v := NewMemoryVault("mem")
	data := "hello"
	if err := v.PutContent("backups/x", strings.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("PutContent() error = %v", err)
	}

	var buf bytes.Buffer
	if err := v.GetContent("backups/x", &buf); err != nil {
		t.Fatalf("GetContent() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("GetContent() = %q, want %q", buf.String(), data)
	}
	if err := v.GetContent("missing", &buf); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetContent(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryVault_SizeMismatch(t *testing.T) {
	v := NewMemoryVault("mem")
	if err := v.PutContent("k", strings.NewReader("abc"), 4); err == nil {
		t.Error("PutContent() expected size mismatch error")
	}
	if v.Len() != 0 {
		t.Errorf("Len() = %d after failed put, want 0", v.Len())
	}
}

func TestMemoryVault_ListContent(t *testing.T) {
	v := NewMemoryVault("mem")
	for _, key := range []string{"backups/2", "backups/1", "keys/k"} {
		if err := v.PutContent(key, strings.NewReader(""), 0); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}
	}
	got, err := v.ListContent("backups/")
	if err != nil {
		t.Fatalf("ListContent() error = %v", err)
	}
	if want := []string{"backups/1", "backups/2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListContent() = %v, want %v", got, want)
	}
}

func TestMemoryVault_Concurrent(t *testing.T) {
	v := NewMemoryVault("mem")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "k" + strings.Repeat("x", i)
			if err := v.PutContent(key, strings.NewReader("d"), 1); err != nil {
				t.Errorf("PutContent() error = %v", err)
			}
			v.ListContent("")
		}(i)
	}
	wg.Wait()
	if v.Len() != 20 {
		t.Errorf("Len() = %d, want 20", v.Len())
	}
}
