package intrlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroValueIsCorrupt(t *testing.T) {
	var l List
	assert.Equal(t, StateCorrupt, l.State())
}

func TestInitIsEmpty(t *testing.T) {
	l := New()
	assert.Equal(t, StateEmpty, l.State())
	assert.Equal(t, 0, l.Len())
	assert.Nil(t, l.Front())
	assert.Nil(t, l.Back())
}

func TestPushFrontPushBackOrder(t *testing.T) {
	l := New()
	l.PushBack("b")
	l.PushBack("c")
	l.PushFront("a")

	assert.Equal(t, StateNonEmpty, l.State())
	assert.Equal(t, 3, l.Len())

	var got []string
	l.Each(func(e *Element) { got = append(got, e.Value.(string)) })
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestRemoveUnlinksAndReturnsValue(t *testing.T) {
	l := New()
	e1 := l.PushBack(1)
	e2 := l.PushBack(2)
	e3 := l.PushBack(3)

	got := l.Remove(e2)
	assert.Equal(t, 2, got)
	assert.Equal(t, 2, l.Len())

	var vals []int
	l.Each(func(e *Element) { vals = append(vals, e.Value.(int)) })
	assert.Equal(t, []int{1, 3}, vals)

	assert.Nil(t, e2.Next())
	assert.Nil(t, e2.Prev())
	assert.Equal(t, e3, e1.Next())
}

func TestPopFrontPopBack(t *testing.T) {
	l := New()
	l.PushBack("a")
	l.PushBack("b")
	l.PushBack("c")

	assert.Equal(t, "a", l.PopFront())
	assert.Equal(t, "c", l.PopBack())
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, "b", l.PopFront())
	assert.Equal(t, StateEmpty, l.State())
	assert.Nil(t, l.PopFront())
	assert.Nil(t, l.PopBack())
}

func TestInsertAfter(t *testing.T) {
	l := New()
	a := l.PushBack("a")
	l.PushBack("c")
	l.InsertAfter("b", a)

	var got []string
	l.Each(func(e *Element) { got = append(got, e.Value.(string)) })
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestPriorityInsertStableFIFOAmongEqualPriorities(t *testing.T) {
	l := New()
	l.PriorityInsert("low-1", 1)
	l.PriorityInsert("high-1", 10)
	l.PriorityInsert("low-2", 1)
	l.PriorityInsert("high-2", 10)
	l.PriorityInsert("mid", 5)

	var got []string
	l.Each(func(e *Element) { got = append(got, e.Value.(string)) })
	assert.Equal(t, []string{"high-1", "high-2", "mid", "low-1", "low-2"}, got)
}

func TestPriorityInsertIntoEmptyList(t *testing.T) {
	l := New()
	l.PriorityInsert("only", 0)
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, "only", l.Front().Value)
}

func TestNextPrevNilOutsideList(t *testing.T) {
	e := &Element{Value: "detached"}
	assert.Nil(t, e.Next())
	assert.Nil(t, e.Prev())
}
