package fswatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{0, ""},
		{Create, "CREATE"},
		{Write, "WRITE"},
		{Create | Write, "CREATE|WRITE"},
		{Create | Remove, "CREATE|REMOVE"},
		{Remove | Create | Write, "CREATE|WRITE|REMOVE"},
		{Rescan, "RESCAN"},
		{Create | Rescan, "CREATE|RESCAN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.String())
	}
}

func TestOpHas(t *testing.T) {
	op := Create | Write
	assert.True(t, op.Has(Create))
	assert.True(t, op.Has(Write))
	assert.True(t, op.Has(Create|Write))
	assert.False(t, op.Has(Chmod))
	assert.False(t, op.Has(Create|Chmod))
}

func TestEventString(t *testing.T) {
	e := Event{Path: "/tmp/foo", Op: Create}
	assert.Equal(t, `"/tmp/foo": CREATE`, e.String())

	e = Event{Path: "/tmp/foo", Err: errors.New("boom")}
	assert.Equal(t, `"/tmp/foo": error: boom`, e.String())

	e = Event{Path: "/tmp/watched/file.txt", Op: Write | Chmod}
	assert.Equal(t, `"/tmp/watched/file.txt": WRITE|CHMOD`, e.String())
}

func TestRecursiveModeString(t *testing.T) {
	assert.Equal(t, "Recursive", Recursive.String())
	assert.Equal(t, "NonRecursive", NonRecursive.String())
}

func TestInflateSplitsCoalescedFlags(t *testing.T) {
	in := []Event{
		{Path: "/a", Op: Create | Write | Chmod, Cookie: 7},
	}
	want := []Event{
		{Path: "/a", Op: Create, Cookie: 7},
		{Path: "/a", Op: Write, Cookie: 7},
		{Path: "/a", Op: Chmod, Cookie: 7},
	}
	assert.Equal(t, want, Inflate(in))
}

func TestInflateCanonicalOrderIgnoresInputOrder(t *testing.T) {
	in := []Event{{Path: "/a", Op: Remove | Create}}
	want := []Event{
		{Path: "/a", Op: Create},
		{Path: "/a", Op: Remove},
	}
	assert.Equal(t, want, Inflate(in))
}

func TestInflatePassesThroughSingleBitEvents(t *testing.T) {
	in := []Event{
		{Path: "/a", Op: Create},
		{Path: "/a", Op: Rescan},
		{Path: "/a", Err: errors.New("fail")},
	}
	assert.Equal(t, in, Inflate(in))
}

func TestInflateIsIdempotent(t *testing.T) {
	in := []Event{{Path: "/a", Op: Create | Rename, Cookie: 3}}
	once := Inflate(in)
	twice := Inflate(once)
	assert.Equal(t, once, twice)
}

func TestErrorIsMatchesSentinel(t *testing.T) {
	err := errPathNotFound("/missing")
	assert.True(t, errors.Is(err, ErrPathNotFound))
	assert.False(t, errors.Is(err, ErrWatchNotFound))

	var fsErr *Error
	require.True(t, errors.As(err, &fsErr))
	assert.Equal(t, KindPathNotFound, fsErr.Kind)
	assert.Equal(t, "/missing", fsErr.Path)
}

func TestErrorMessageFormatting(t *testing.T) {
	assert.Equal(t, "path not found: /missing", errPathNotFound("/missing").Error())
	assert.Equal(t, "generic", errGeneric(nil).Error())

	wrapped := errIO("/x", errors.New("disk exploded"))
	assert.Equal(t, "io: /x: disk exploded", wrapped.Error())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "generic", KindGeneric.String())
	assert.Equal(t, "io", KindIO.String())
	assert.Equal(t, "path not found", KindPathNotFound.String())
	assert.Equal(t, "watch not found", KindWatchNotFound.String())
}
