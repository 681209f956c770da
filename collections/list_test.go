package collections

import "testing"

func TestStaticListReturnsCorrectItem(t *testing.T) {
	l := NewStaticList[int](6)
	e1, _ := l.Push(10)
	e2, _ := l.Push(20)
	e3, _ := l.Push(30)
	if l.Get(e3) != 30 || l.Get(e2) != 20 || l.Get(e1) != 10 {
		t.Fatal("unexpected items")
	}
	if l.Remove(e3) != 30 {
		t.Fatal("remove e3")
	}
	if l.Get(e2) != 20 || l.Get(e1) != 10 {
		t.Fatal("unexpected items after remove")
	}
}

func TestStaticListLen(t *testing.T) {
	l := NewStaticList[int](6)
	if l.Len() != 0 {
		t.Fatal("want 0")
	}
	e1, _ := l.Push(1)
	e2, _ := l.Push(2)
	e3, _ := l.Push(3)
	if l.Len() != 3 {
		t.Fatal("want 3")
	}
	l.Remove(e2)
	if l.Len() != 2 {
		t.Fatal("want 2")
	}
	l.Remove(e1)
	if l.Len() != 1 {
		t.Fatal("want 1")
	}
	l.Remove(e3)
	if l.Len() != 0 {
		t.Fatal("want 0")
	}
}

func TestStaticListPushAlternateWithRemove(t *testing.T) {
	l := NewStaticList[int](6)
	e1, _ := l.Push(1)
	e2, _ := l.Push(2)
	l.Remove(e2)
	e3, _ := l.Push(3)
	l.Remove(e1)
	l.Remove(e3)
	if l.Len() != 0 {
		t.Fatal("want 0")
	}
}

func TestStaticListPushWhenFull(t *testing.T) {
	l := NewStaticList[int](6)
	for i := 1; i <= 6; i++ {
		if _, err := l.Push(i); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if _, err := l.Push(7); err != ErrListFull {
		t.Fatalf("want ErrListFull, got %v", err)
	}
}

func TestStaticListUseReferenceFromAnotherListPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic using a foreign handle")
		}
	}()
	l1 := NewStaticList[int](6)
	l2 := NewStaticList[int](6)
	e, _ := l1.Push(1)
	l2.Remove(e)
}
